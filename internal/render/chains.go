// Package render draws converted clouds: an interactive go-echarts page for
// the browser and a static gonum/plot projection for reports.
package render

import (
	"github.com/banshee-data/scanrig/internal/cloud"
)

// Chains decomposes edges into polylines of point indices. Every edge
// appears exactly once as a consecutive pair in exactly one chain. Walks
// start at odd-degree vertices so open paths are kept whole.
func Chains(n int, edges []cloud.Edge) [][]int {
	type incident struct{ edge, other int }
	adj := make([][]incident, n)
	for i, e := range edges {
		if e.A < 0 || e.A >= n || e.B < 0 || e.B >= n {
			continue
		}
		adj[e.A] = append(adj[e.A], incident{i, e.B})
		adj[e.B] = append(adj[e.B], incident{i, e.A})
	}

	used := make([]bool, len(edges))
	next := make([]int, n) // cursor into adj per vertex
	take := func(v int) (int, bool) {
		for ; next[v] < len(adj[v]); next[v]++ {
			in := adj[v][next[v]]
			if !used[in.edge] {
				used[in.edge] = true
				next[v]++
				return in.other, true
			}
		}
		return 0, false
	}
	walk := func(start int) []int {
		chain := []int{start}
		for v := start; ; {
			w, ok := take(v)
			if !ok {
				return chain
			}
			chain = append(chain, w)
			v = w
		}
	}

	var chains [][]int
	for pass := 0; pass < 2; pass++ {
		for v := range n {
			if pass == 0 && len(adj[v])%2 == 0 {
				continue
			}
			for {
				chain := walk(v)
				if len(chain) < 2 {
					break
				}
				chains = append(chains, chain)
			}
		}
	}
	return chains
}
