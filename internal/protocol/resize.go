package protocol

import "strings"

const FrameResizeContext = "iframe.resize"

// FrameResizeMessage is the payload an embedded diagram posts to its host
// page once it knows its own dimensions. Numeric fields are pointers so a
// missing field can be told apart from a zero value.
type FrameResizeMessage struct {
	Context       string   `json:"context"`
	Src           string   `json:"src"`
	AspectRatio   *float64 `json:"aspectRatio,omitempty"`
	ToolbarHeight *float64 `json:"toolbarHeight,omitempty"`
}

func (m FrameResizeMessage) IsResize() bool {
	return m.Context == FrameResizeContext
}

// StripFragment removes everything from the first '#' on.
func StripFragment(src string) string {
	if i := strings.IndexByte(src, '#'); i >= 0 {
		return src[:i]
	}
	return src
}
