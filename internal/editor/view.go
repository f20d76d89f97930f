package editor

// Point is a node position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the visible region of the canvas.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Layout is the view state captured with each snapshot.
type Layout struct {
	Positions map[string]Point `json:"positions,omitempty"`
	Viewport  Viewport         `json:"viewport"`
}

// Clone returns a deep copy.
func (l Layout) Clone() Layout {
	out := Layout{Viewport: l.Viewport}
	if l.Positions != nil {
		out.Positions = make(map[string]Point, len(l.Positions))
		for k, v := range l.Positions {
			out.Positions[k] = v
		}
	}
	return out
}

// View is the canvas the editor keeps in sync. Layout computation stays
// outside the editor; it only captures and reinstalls what the view reports.
type View interface {
	// Layout returns the current layout, or false when none is available.
	Layout() (Layout, bool)

	// RefreshGraph rebuilds the canvas from the store's document.
	RefreshGraph()

	// SetPositions reinstalls node positions.
	SetPositions(map[string]Point)

	// SetViewport reinstalls the viewport.
	SetViewport(Viewport)

	// Select highlights nodes by id.
	Select(ids []string)
}
