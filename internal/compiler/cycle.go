package compiler

import (
	"fmt"
	"strings"

	"github.com/timeax/servicegraph/internal/model"
)

// CycleWarning describes a loop in the tag parent graph.
//
// The structural operations never create one, so a warning means the
// document was produced or edited outside of them.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["t:a", "t:b", "t:a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "error"
}

// AnalyzeTagCycles finds every cycle in the tag parent graph.
//
// The algorithm:
//  1. Build child → parent edges (parents missing from the document are ignored)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-parent as a cycle
//
// A forest returns an empty list.
func AnalyzeTagCycles(d *model.Document) []CycleWarning {
	if len(d.Tags) == 0 {
		return []CycleWarning{}
	}

	graph := buildParentGraph(d)
	order := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		order = append(order, t.ID)
	}
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// parentGraph maps tag_id → parent ids (at most one for a well-formed tag).
type parentGraph map[string][]string

func buildParentGraph(d *model.Document) parentGraph {
	graph := make(parentGraph, len(d.Tags))
	for _, t := range d.Tags {
		if graph[t.ID] == nil {
			graph[t.ID] = []string{}
		}
		if t.ParentID != "" && d.Tag(t.ParentID) != nil {
			graph[t.ID] = append(graph[t.ID], t.ParentID)
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph parentGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Roots are visited in the given order so results are deterministic.
func tarjanSCC(graph parentGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, graph parentGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("tag is its own parent: %s → %s", id, id),
			Level:   "error",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("tag parent cycle: %s", strings.Join(path, " → ")),
		Level:   "error",
	}
}

// reconstructCyclePath walks parent edges inside the SCC from its first
// member back to itself.
func reconstructCyclePath(scc []string, graph parentGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
