package ops

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Element is one node from the uiautomator hierarchy dump.
type Element struct {
	Text        string `json:"text,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
	Class       string `json:"class,omitempty"`
	ContentDesc string `json:"content_desc,omitempty"`
	Bounds      string `json:"bounds,omitempty"`
	Clickable   bool   `json:"clickable"`
	Enabled     bool   `json:"enabled"`
}

// criteria filters hierarchy elements by attribute equality. Empty fields
// are not compared.
type criteria struct {
	text        string
	resourceID  string
	class       string
	contentDesc string
}

func (c criteria) empty() bool {
	return c.text == "" && c.resourceID == "" && c.class == "" && c.contentDesc == ""
}

func (c criteria) matches(e Element) bool {
	if c.text != "" && e.Text != c.text {
		return false
	}
	if c.resourceID != "" && e.ResourceID != c.resourceID {
		return false
	}
	if c.class != "" && e.Class != c.class {
		return false
	}
	if c.contentDesc != "" && e.ContentDesc != c.contentDesc {
		return false
	}
	return true
}

// parseHierarchy walks the dump XML and flattens every <node> element.
func parseHierarchy(dump string) ([]Element, error) {
	decoder := xml.NewDecoder(strings.NewReader(dump))
	var elements []Element

	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parsing UI hierarchy: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "node" {
			continue
		}

		var e Element
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "text":
				e.Text = attr.Value
			case "resource-id":
				e.ResourceID = attr.Value
			case "class":
				e.Class = attr.Value
			case "content-desc":
				e.ContentDesc = attr.Value
			case "bounds":
				e.Bounds = attr.Value
			case "clickable":
				e.Clickable = attr.Value == "true"
			case "enabled":
				e.Enabled = attr.Value == "true"
			}
		}
		elements = append(elements, e)
	}

	return elements, nil
}

var boundsPattern = regexp.MustCompile(`\[(\d+),(\d+)\]\[(\d+),(\d+)\]`)

// boundsCenter returns the center point of an element's bounds
// attribute, formatted as "[x1,y1][x2,y2]".
func boundsCenter(bounds string) (x, y int, ok bool) {
	m := boundsPattern.FindStringSubmatch(bounds)
	if m == nil {
		return 0, 0, false
	}
	x1, _ := strconv.Atoi(m[1])
	y1, _ := strconv.Atoi(m[2])
	x2, _ := strconv.Atoi(m[3])
	y2, _ := strconv.Atoi(m[4])
	return (x1 + x2) / 2, (y1 + y2) / 2, true
}
