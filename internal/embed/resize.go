package embed

import (
	"math"
	"strconv"
	"strings"
)

// Dimensions are the diagram properties reported by an embedded frame.
type Dimensions struct {
	AspectRatio   float64
	ToolbarHeight float64
}

// Size is the rendered frame size in pixels.
type Size struct {
	Width  float64
	Height float64
}

func (s Size) finite() bool {
	return isFinite(s.Width) && isFinite(s.Height)
}

// Compute sizes a frame so that the diagram area keeps its aspect ratio.
// maxHeight <= 0 means no cap. When the cap binds the height is pinned to
// it and the width shrinks; the toolbar is excluded from the ratio.
func Compute(availableWidth float64, dims Dimensions, maxHeight float64) Size {
	calculatedHeight := availableWidth/dims.AspectRatio + dims.ToolbarHeight
	if maxHeight <= 0 || calculatedHeight <= maxHeight {
		return Size{Width: availableWidth, Height: calculatedHeight}
	}
	diagramHeight := maxHeight - dims.ToolbarHeight
	width := diagramHeight * dims.AspectRatio
	if width < 0 {
		width = 0
	}
	return Size{Width: width, Height: maxHeight}
}

func (d Dimensions) valid() bool {
	return isFinite(d.AspectRatio) && d.AspectRatio > 0 &&
		isFinite(d.ToolbarHeight) && d.ToolbarHeight >= 0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseMaxHeight reads a CSS max-height declaration. Only pixel values
// ("300px") and bare numbers are understood; anything else means no cap.
func ParseMaxHeight(style string) (float64, bool) {
	s := strings.TrimSpace(strings.ToLower(style))
	s = strings.TrimSuffix(s, "px")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) || v <= 0 {
		return 0, false
	}
	return v, true
}
