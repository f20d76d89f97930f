package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeax/servicegraph/internal/compiler"
	"github.com/timeax/servicegraph/internal/editor"
)

func TestRecorder_KeepsOrder(t *testing.T) {
	r := NewRecorder()
	r.Notify(editor.Event{Type: editor.EventCommand, Command: "addTag"})
	r.Notify(editor.Event{Type: editor.EventError, Error: &editor.ErrorInfo{Code: "command"}})
	r.Notify(editor.Event{Type: editor.EventChange, Reason: editor.ReasonMutation})

	assert.Equal(t, []editor.EventType{editor.EventCommand, editor.EventError, editor.EventChange}, r.Types())
	assert.Equal(t, []string{"command"}, r.ErrorCodes())
	assert.Len(t, r.OfType(editor.EventChange), 1)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestView_RecordsCalls(t *testing.T) {
	v := NewView()
	_, ok := v.Layout()
	assert.False(t, ok)

	v.Move("t:root", editor.Point{X: 1, Y: 2})
	l, ok := v.Layout()
	require.True(t, ok)
	assert.Equal(t, editor.Point{X: 1, Y: 2}, l.Positions["t:root"])

	// Layout hands out a copy
	l.Positions["t:root"] = editor.Point{}
	again, _ := v.Layout()
	assert.Equal(t, editor.Point{X: 1, Y: 2}, again.Positions["t:root"])

	v.RefreshGraph()
	v.Select([]string{"t:root"})
	assert.Equal(t, 1, v.Refreshes)
	assert.Equal(t, [][]string{{"t:root"}}, v.Selected)
}

func TestSampleDocument_IsValid(t *testing.T) {
	doc := SampleDocument()
	assert.Empty(t, compiler.Validate(&doc))
	for _, f := range doc.Fields {
		for _, o := range f.Options {
			if o.ServiceID != "" {
				assert.True(t, SampleCapabilities().HasService(o.ServiceID), o.ServiceID)
			}
		}
	}
}
