// validator.go - Check a project against its dataset before a batch run.
package template

import (
	"fmt"
	"strings"
)

// ValidateProject reports non-fatal problems: unbound boxes, bindings to keys
// the first record does not have, and duplicate box IDs.
// Missing keys are never fatal; such boxes render empty text.
func ValidateProject(p *Project, ds *Dataset) []string {
	if p == nil {
		return nil
	}

	known := make(map[string]struct{})
	if ds != nil {
		for _, k := range ds.Keys {
			known[k] = struct{}{}
		}
	}

	var warnings []string
	ids := make(map[string]struct{}, len(p.Boxes))
	for _, b := range p.Boxes {
		if _, dup := ids[b.ID]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate box id %q", b.ID))
		}
		ids[b.ID] = struct{}{}

		if !b.Bound() {
			warnings = append(warnings, fmt.Sprintf("box %q is not bound to a field, skipped", b.ID))
			continue
		}
		if ds == nil || len(ds.Keys) == 0 {
			continue
		}
		if _, ok := known[b.FieldKey]; !ok {
			warnings = append(warnings, fmt.Sprintf("box %q is bound to %q, which the first record does not have, renders empty", b.ID, b.FieldKey))
		}
	}

	return warnings
}

// FormatKeys returns a human-readable listing of selectable field keys.
func FormatKeys(ds *Dataset) string {
	if ds == nil || len(ds.Records) == 0 {
		return "No records.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Records: %d\n", len(ds.Records))
	sb.WriteString("Fields:\n")
	first := ds.Records[0]
	for _, k := range ds.Keys {
		fmt.Fprintf(&sb, "  %-20s %s\n", k+":", Stringify(first[k]))
	}
	return sb.String()
}
