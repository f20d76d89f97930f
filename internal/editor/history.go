package editor

import (
	"github.com/timeax/servicegraph/internal/model"
)

// snapshot is one undo/redo unit. layout is nil when the view reported none.
type snapshot struct {
	doc    model.Document
	layout *Layout
}

// state is a recorded point in history. The anchor state (the document
// before the first commit) has an empty entry and no commands.
type state struct {
	snap  snapshot
	entry model.HistoryRecord
	cmds  []Command
}

// history is a bounded linear list of states with a cursor.
//
// states[idx] is the current document. Undo moves to idx-1, redo to idx+1.
// limit bounds len(states); trimming drops the oldest states and shifts idx.
type history struct {
	limit  int
	states []state
	idx    int
}

func newHistory(limit int) *history {
	return &history{limit: limit, idx: -1}
}

// commit records after as the new current state. before anchors an empty
// history. The redo tail is discarded.
func (h *history) commit(before snapshot, after state) {
	if len(h.states) == 0 {
		h.states = append(h.states, state{snap: before})
		h.idx = 0
	}
	h.states = append(h.states[:h.idx+1], after)
	h.idx++

	if over := len(h.states) - h.limit; over > 0 {
		h.states = append([]state(nil), h.states[over:]...)
		h.idx -= over
	}
}

func (h *history) canUndo() bool { return h.idx > 0 }

func (h *history) canRedo() bool { return h.idx >= 0 && h.idx < len(h.states)-1 }

// undo moves the cursor back. It returns the undone state and the state to
// reinstall.
func (h *history) undo() (undone, target state, ok bool) {
	if !h.canUndo() {
		return state{}, state{}, false
	}
	undone = h.states[h.idx]
	h.idx--
	return undone, h.states[h.idx], true
}

// redo moves the cursor forward and returns the state to reinstall.
func (h *history) redo() (state, bool) {
	if !h.canRedo() {
		return state{}, false
	}
	h.idx++
	return h.states[h.idx], true
}

// len is the number of entries that can be undone or redone.
func (h *history) len() int {
	if len(h.states) == 0 {
		return 0
	}
	return len(h.states) - 1
}

// labels lists entry labels oldest first, excluding the anchor.
func (h *history) labels() []string {
	if len(h.states) < 2 {
		return nil
	}
	out := make([]string, 0, len(h.states)-1)
	for _, s := range h.states[1:] {
		out = append(out, s.entry.Label)
	}
	return out
}
