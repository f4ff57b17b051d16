// parser.go - Sample project generation for textstamp init.
package template

// GetExampleJSON returns a sample project.json and data.json for textstamp init.
func GetExampleJSON() (projectJSON, dataJSON string) {
	projectJSON = `{
  "meta": {
    "name": "Name badges",
    "version": "1.0",
    "author": "textstamp",
    "description": "One badge per attendee"
  },
  "background": {
    "source": "background.png"
  },
  "boxes": [
    {
      "id": "box-name",
      "x": 40, "y": 60, "width": 560, "height": 80,
      "jsonKey": "name",
      "fontSize": 48,
      "fontFamily": "Go",
      "color": "#1a1a2e",
      "textAlign": "center"
    },
    {
      "id": "box-role",
      "x": 40, "y": 160, "width": 560, "height": 60,
      "jsonKey": "role",
      "fontSize": 24,
      "fontFamily": "Go Italic",
      "color": "#444444",
      "textAlign": "center"
    },
    {
      "id": "box-bio",
      "x": 40, "y": 240, "width": 560, "height": 160,
      "jsonKey": "bio",
      "fontSize": 18,
      "fontFamily": "Go",
      "color": "#222222",
      "textAlign": "justify"
    }
  ],
  "output": {
    "format": "png"
  }
}`

	dataJSON = `[
  {
    "name": "Ana",
    "role": "Speaker",
    "bio": "Ana builds rendering pipelines and has opinions about kerning tables and line breaking."
  },
  {
    "name": "Bob",
    "role": "Attendee",
    "bio": "Bob is here for the coffee."
  }
]`
	return
}

// ParseExample returns the sample project parsed, for tests and the init command.
func ParseExample() (*Project, *Dataset, error) {
	p, d := GetExampleJSON()
	project, _, err := ParseProject([]byte(p), "")
	if err != nil {
		return nil, nil, err
	}
	ds, err := ParseData([]byte(d))
	if err != nil {
		return nil, nil, err
	}
	return project, ds, nil
}
