package tooltip

import "strings"

type Style struct {
	Background  string
	Stroke      string
	Color       string
	BorderStyle string
}

var defaultStyle = Style{Background: "#ffffff", Stroke: "#000000", Color: "#000000", BorderStyle: "solid"}

// CSS returns inline declarations for the tooltip box. A nil style gets
// black on white.
func CSS(s *Style) string {
	st := defaultStyle
	if s != nil {
		st = Style{
			Background:  firstNonEmpty(s.Background, defaultStyle.Background),
			Stroke:      firstNonEmpty(s.Stroke, defaultStyle.Stroke),
			Color:       firstNonEmpty(s.Color, defaultStyle.Color),
			BorderStyle: borderStyle(s.BorderStyle),
		}
	}
	return "background: " + st.Background +
		"; border-color: " + st.Stroke +
		"; color: " + st.Color +
		"; border-style: " + st.BorderStyle + ";"
}

func borderStyle(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dashed":
		return "dashed"
	case "dotted":
		return "dotted"
	default:
		return "solid"
	}
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
