package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/cs-au-dk/contra/analysis/defs"
	L "github.com/cs-au-dk/contra/analysis/lattice"
	"github.com/cs-au-dk/contra/utils/dot"
	"github.com/cs-au-dk/contra/utils/graph"
)

// secondaryTask checks whether a task other than inference was provided,
// and executes it. It reports whether a task ran.
func (pl pipeline) secondaryTask(ctx context.Context) bool {
	switch {
	// equations : prints the per-method equations without solving them.
	case task.IsEquations():
		eqs, err := pl.equations(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		printEquations(os.Stdout, eqs)

	// deps-to-dot : renders which equations depend on which keys. Equations
	// that depend on each other cyclically are clustered.
	case task.IsDepsToDot():
		eqs, err := pl.equations(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		dg := dependencyGraph(eqs)

		var buf bytes.Buffer
		if err := dg.WriteDot(&buf); err != nil {
			log.Fatalln(err)
		}
		nodes, edges := dg.Size()
		log.Printf("Dependency graph: %d keys, %d dependencies", nodes, edges)

		path, err := dot.DotToImage(opts.Out(), opts.OutputFormat(), buf.Bytes())
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Println(path)

	default:
		return false
	}
	return true
}

// dependencies maps the base key of every equation to the base keys it
// depends on.
func dependencies(eqs equations) map[defs.Key][]defs.Key {
	deps := map[defs.Key]defs.KeySet{}
	add := func(k defs.Key, ks defs.KeySet) {
		k = k.Base()
		prev := deps[k]
		ks.ForEach(func(d defs.Key) {
			prev = prev.Add(d.Base())
		})
		deps[k] = prev
	}
	for _, eq := range eqs.nullity {
		add(eq.Key, L.Dependencies(eq.Result))
	}
	for _, eq := range eqs.purity {
		add(eq.Key, eq.Effects.Dependencies())
	}

	res := make(map[defs.Key][]defs.Key, len(deps))
	for k, ks := range deps {
		res[k] = ks.Keys()
	}
	return res
}

// dependencyGraph renders the keys that have equations or are depended
// upon. Each strongly connected component with a cycle is one cluster.
func dependencyGraph(eqs equations) *dot.DotGraph {
	deps := dependencies(eqs)

	seen := map[defs.Key]bool{}
	nodes := []defs.Key{}
	visit := func(k defs.Key) {
		if !seen[k] {
			seen[k] = true
			nodes = append(nodes, k)
		}
	}
	for k, ks := range deps {
		visit(k)
		for _, d := range ks {
			visit(d)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Less(nodes[j])
	})

	G := graph.Of(func(k defs.Key) []defs.Key {
		return deps[k]
	})
	scc := G.SCC(nodes)

	return G.ToDotGraph(nodes, &graph.DotConfig[defs.Key]{
		Node: func(k defs.Key) (string, dot.DotAttrs) {
			attrs := dot.DotAttrs{"label": k.String()}
			if _, ok := deps[k]; !ok {
				// Defined only by the known facts or not at all.
				attrs["style"] = "dashed"
			}
			return k.String(), attrs
		},
		Cluster: func(k defs.Key) any {
			if c := scc.ComponentOf(k); c >= 0 && scc.Cyclic(c) {
				return c
			}
			return nil
		},
		ClusterAttrs: func(key any) (string, dot.DotAttrs) {
			return fmt.Sprint(key), dot.DotAttrs{"label": "cycle", "color": "red"}
		},
		Options: map[string]string{"rankdir": "LR"},
	})
}
