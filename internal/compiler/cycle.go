package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/fracmul/internal/ir"
)

// CycleWarning describes rules that can feed each other.
//
// Feedback loops are how rewrite programs compute, so these are reported at
// info level: they mark where a run may spend most of its steps or fail to
// halt.
type CycleWarning struct {
	Rules   []int  `json:"rules"`   // cycle path by rule index: [0, 2, 0]
	Message string `json:"message"` // Human-readable description
	Level   string `json:"level"`   // "info"
}

// AnalyzeCycles performs static cycle analysis on rules.
//
// Rule i feeds rule j when i produces a name that j consumes. Strongly
// connected components of that graph (Tarjan's algorithm), plus single rules
// that feed themselves, are reported in ascending order of their lowest
// rule index.
//
// An acyclic program returns an empty list.
func AnalyzeCycles(rules []ir.Rule) []CycleWarning {
	warnings := []CycleWarning{}
	if len(rules) == 0 {
		return warnings
	}

	graph := buildFeedGraph(rules)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || graph.hasEdge(scc[0], scc[0]) {
			warnings = append(warnings, sccToWarning(scc, graph, rules))
		}
	}

	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return a.Rules[0] - b.Rules[0]
	})
	return warnings
}

// feedGraph maps rule index to the indices of rules it can enable,
// ascending.
type feedGraph [][]int

func (g feedGraph) hasEdge(from, to int) bool {
	_, found := slices.BinarySearch(g[from], to)
	return found
}

func buildFeedGraph(rules []ir.Rule) feedGraph {
	consumers := make(map[ir.Name][]int)
	for j, r := range rules {
		for _, g := range r.Left.Groups() {
			consumers[g.Name] = append(consumers[g.Name], j)
		}
	}

	graph := make(feedGraph, len(rules))
	for i, r := range rules {
		var next []int
		for _, g := range r.Right.Groups() {
			next = append(next, consumers[g.Name]...)
		}
		slices.Sort(next)
		graph[i] = slices.Compact(next)
	}
	return graph
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Each component is returned sorted ascending.
func tarjanSCC(graph feedGraph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(graph))
		lowlink = make([]int, len(graph))
		onStack = make([]bool, len(graph))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for v := range graph {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}
	return sccs
}

func sccToWarning(scc []int, graph feedGraph, rules []ir.Rule) CycleWarning {
	path := cyclePath(scc, graph)

	parts := make([]string, len(path))
	for i, r := range path {
		parts[i] = fmt.Sprintf("#%d (%s)", r, rules[r])
	}

	msg := "rules feed each other: " + strings.Join(parts, " -> ")
	if len(scc) == 1 {
		msg = fmt.Sprintf("rule #%d (%s) feeds itself", scc[0], rules[scc[0]])
	}
	return CycleWarning{Rules: path, Message: msg, Level: "info"}
}

// cyclePath returns the shortest cycle through the component's lowest rule,
// found by breadth-first search restricted to the component.
func cyclePath(scc []int, graph feedGraph) []int {
	start := scc[0]
	if len(scc) == 1 {
		return []int{start, start}
	}

	member := make(map[int]bool, len(scc))
	for _, v := range scc {
		member[v] = true
	}

	parent := map[int]int{}
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range graph[v] {
			if !member[w] {
				continue
			}
			if w == start {
				path := []int{start}
				for cur := v; cur != start; cur = parent[cur] {
					path = append(path, cur)
				}
				slices.Reverse(path[1:])
				return append(path, start)
			}
			if _, seen := parent[w]; !seen {
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return []int{start}
}
