package eligibility

import "strings"

// X12 default delimiters. Real 271 payloads declare their delimiters in the
// ISA envelope; every clearinghouse we integrate with uses the defaults, and
// the parser tolerates stray whitespace and line breaks between segments.
const (
	segmentTerminator = "~"
	elementSeparator  = "*"
)

// Segment is one parsed X12 segment: an ID and its elements.
type Segment struct {
	ID       string
	Elements []string
}

// Element returns the 1-based element (NM103 is Element(3)), or "" when the
// segment is shorter than requested. Field-order variation never panics.
func (s Segment) Element(i int) string {
	if i < 1 || i > len(s.Elements) {
		return ""
	}
	return strings.TrimSpace(s.Elements[i-1])
}

// ParseSegments tokenizes eligibility-response text on the segment
// terminator and splits each segment into elements. Empty segments are
// dropped; IDs are upper-cased for matching.
func ParseSegments(text string) []Segment {
	var segments []Segment
	for _, raw := range strings.Split(text, segmentTerminator) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, elementSeparator)
		id := strings.ToUpper(strings.TrimSpace(parts[0]))
		if id == "" {
			continue
		}
		segments = append(segments, Segment{ID: id, Elements: parts[1:]})
	}
	return segments
}
