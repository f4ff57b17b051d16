// errors.go - Fault taxonomy shared by every stage of a batch run.
package template

import "errors"

var (
	// ErrInvalidInput marks unparsable or out-of-contract input (JSON, project files, boxes).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotMeasured marks geometry work attempted before the background's
	// displayed and natural sizes are known.
	ErrNotMeasured = errors.New("background not measured")

	// ErrUnready marks a batch run requested without records, boxes or an image.
	ErrUnready = errors.New("batch not ready")
)
