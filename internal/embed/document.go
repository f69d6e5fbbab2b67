package embed

import "sync"

// Frame is a snapshot of one embedded diagram viewport as seen by the host
// document at the time of an event.
type Frame struct {
	ID             string
	Src            string
	ContainerWidth float64
	// MaxHeight is the pixel cap from the embedding page's style; 0 means none.
	MaxHeight float64
}

// Document is the host page the resizer works against.
type Document interface {
	Frames() []Frame
	SetFrameSize(id string, size Size)
}

// MemoryDocument keeps frames in memory. It backs the bridge command and
// tests; a real page implementation would read the live DOM instead.
type MemoryDocument struct {
	mu     sync.Mutex
	frames []Frame
	sizes  map[string]Size
}

func NewMemoryDocument(frames ...Frame) *MemoryDocument {
	return &MemoryDocument{
		frames: append([]Frame(nil), frames...),
		sizes:  make(map[string]Size),
	}
}

func (d *MemoryDocument) Frames() []Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Frame(nil), d.frames...)
}

func (d *MemoryDocument) SetFrameSize(id string, size Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sizes[id] = size
}

func (d *MemoryDocument) Size(id string) (Size, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sizes[id]
	return s, ok
}

// SetContainerWidth simulates the parent container changing width, as
// happens on viewport resize.
func (d *MemoryDocument) SetContainerWidth(id string, width float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.frames {
		if d.frames[i].ID == id {
			d.frames[i].ContainerWidth = width
			return true
		}
	}
	return false
}

// SetSrc simulates a frame being navigated to another source.
func (d *MemoryDocument) SetSrc(id, src string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.frames {
		if d.frames[i].ID == id {
			d.frames[i].Src = src
			return true
		}
	}
	return false
}

func (d *MemoryDocument) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.frames[:0]
	for _, f := range d.frames {
		if f.ID != id {
			out = append(out, f)
		}
	}
	d.frames = out
	delete(d.sizes, id)
}
