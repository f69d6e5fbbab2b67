package embed

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/izzyreal/wsbridge/internal/protocol"
)

var (
	ErrMalformedMessage = errors.New("malformed frame resize message")
	ErrOriginRejected   = errors.New("message origin not allowed")
)

type frameState struct {
	src  string
	dims Dimensions
}

// Resizer keeps embedded diagram frames sized as their content reports its
// dimensions and as their containers change width.
type Resizer struct {
	doc            Document
	allowedOrigins []string

	mu    sync.Mutex
	state map[string]frameState
}

// NewResizer returns a resizer for doc. allowedOrigins are doublestar
// patterns matched against the sender origin; none means any origin.
func NewResizer(doc Document, allowedOrigins []string) (*Resizer, error) {
	patterns := make([]string, 0, len(allowedOrigins))
	for _, p := range allowedOrigins {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid origin pattern %q", p)
		}
		patterns = append(patterns, p)
	}
	return &Resizer{
		doc:            doc,
		allowedOrigins: patterns,
		state:          make(map[string]frameState),
	}, nil
}

// HandleMessage processes one cross-document message. It reports whether a
// frame was resized. Messages that are not resize notifications are ignored
// without error, as are notifications for sources not in the document.
func (r *Resizer) HandleMessage(origin string, payload []byte) (bool, error) {
	var msg protocol.FrameResizeMessage
	if err := json.Unmarshal(payload, &msg); err != nil || !msg.IsResize() {
		return false, nil
	}
	if !r.originAllowed(origin) {
		return false, fmt.Errorf("%w: %q", ErrOriginRejected, origin)
	}
	src := protocol.StripFragment(strings.TrimSpace(msg.Src))
	if src == "" || msg.AspectRatio == nil || msg.ToolbarHeight == nil {
		return false, fmt.Errorf("%w: src, aspectRatio and toolbarHeight are required", ErrMalformedMessage)
	}
	dims := Dimensions{AspectRatio: *msg.AspectRatio, ToolbarHeight: *msg.ToolbarHeight}
	if !dims.valid() {
		return false, fmt.Errorf("%w: aspectRatio=%v toolbarHeight=%v", ErrMalformedMessage, dims.AspectRatio, dims.ToolbarHeight)
	}

	// Only the first frame with this source is resized.
	for _, f := range r.doc.Frames() {
		if protocol.StripFragment(f.Src) != src {
			continue
		}
		size := Compute(f.ContainerWidth, dims, f.MaxHeight)
		if !size.finite() {
			return false, fmt.Errorf("%w: aspectRatio=%v toolbarHeight=%v gives size %vx%v", ErrMalformedMessage, dims.AspectRatio, dims.ToolbarHeight, size.Width, size.Height)
		}
		r.mu.Lock()
		r.state[f.ID] = frameState{src: src, dims: dims}
		r.mu.Unlock()
		r.apply(f, size)
		return true, nil
	}
	slog.Debug("frame resize message matched no frame", "src", src)
	return false, nil
}

// HandleViewportResize recomputes every frame the resizer has dimensions
// for and returns how many were resized. Dimensions are dropped for frames
// that left the document or now show a different source, and for frames
// whose new width no longer yields a finite size.
func (r *Resizer) HandleViewportResize() int {
	frames := r.doc.Frames()
	keep := make(map[string]struct{}, len(frames))
	resized := 0
	for _, f := range frames {
		r.mu.Lock()
		st, ok := r.state[f.ID]
		r.mu.Unlock()
		if !ok || protocol.StripFragment(f.Src) != st.src {
			continue
		}
		size := Compute(f.ContainerWidth, st.dims, f.MaxHeight)
		if !size.finite() {
			slog.Warn("dropping frame dimensions with non-finite size", "frame_id", f.ID, "width", size.Width, "height", size.Height)
			continue
		}
		keep[f.ID] = struct{}{}
		r.apply(f, size)
		resized++
	}

	r.mu.Lock()
	for id := range r.state {
		if _, ok := keep[id]; !ok {
			delete(r.state, id)
		}
	}
	r.mu.Unlock()
	return resized
}

// Dimensions returns the last reported dimensions for a frame.
func (r *Resizer) Dimensions(frameID string) (Dimensions, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state[frameID]
	return st.dims, ok
}

func (r *Resizer) apply(f Frame, size Size) {
	r.doc.SetFrameSize(f.ID, size)
	slog.Debug("frame resized", "frame_id", f.ID, "width", size.Width, "height", size.Height)
}

func (r *Resizer) originAllowed(origin string) bool {
	if len(r.allowedOrigins) == 0 {
		return true
	}
	for _, p := range r.allowedOrigins {
		if ok, _ := doublestar.Match(p, origin); ok {
			return true
		}
	}
	return false
}
