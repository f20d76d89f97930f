package testutil

import (
	"github.com/timeax/servicegraph/internal/editor"
)

// View is an editor.View that records what the editor asks of it.
//
// Not safe for concurrent use, like the editor itself.
type View struct {
	// Current is the layout reported by Layout. Nil reports none.
	Current *editor.Layout

	Refreshes int
	Selected  [][]string

	// Installed counts SetPositions calls.
	Installed int
}

// NewView creates a view that reports no layout.
func NewView() *View {
	return &View{}
}

// NewViewWithLayout creates a view reporting l.
func NewViewWithLayout(l editor.Layout) *View {
	return &View{Current: &l}
}

// Layout implements editor.View.
func (v *View) Layout() (editor.Layout, bool) {
	if v.Current == nil {
		return editor.Layout{}, false
	}
	return v.Current.Clone(), true
}

// RefreshGraph implements editor.View.
func (v *View) RefreshGraph() {
	v.Refreshes++
}

// SetPositions implements editor.View.
func (v *View) SetPositions(p map[string]editor.Point) {
	v.Installed++
	if v.Current == nil {
		v.Current = &editor.Layout{}
	}
	v.Current.Positions = p
}

// SetViewport implements editor.View.
func (v *View) SetViewport(vp editor.Viewport) {
	if v.Current == nil {
		v.Current = &editor.Layout{}
	}
	v.Current.Viewport = vp
}

// Select implements editor.View.
func (v *View) Select(ids []string) {
	v.Selected = append(v.Selected, append([]string(nil), ids...))
}

// Move sets one node position, as a user dragging it would.
func (v *View) Move(id string, p editor.Point) {
	if v.Current == nil {
		v.Current = &editor.Layout{}
	}
	if v.Current.Positions == nil {
		v.Current.Positions = map[string]editor.Point{}
	}
	v.Current.Positions[id] = p
}
