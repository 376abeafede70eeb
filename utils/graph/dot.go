package graph

import (
	"fmt"

	"github.com/cs-au-dk/contra/utils/dot"
)

// DotConfig controls how ToDotGraph presents nodes.
type DotConfig[T comparable] struct {
	// Node gives the dot ID and attributes of a node. The default ID is the
	// printed node.
	Node func(node T) (string, dot.DotAttrs)
	// Cluster groups nodes that share a non-nil key.
	Cluster func(node T) any
	// ClusterAttrs gives the dot ID and attributes of a cluster.
	ClusterAttrs func(key any) (string, dot.DotAttrs)
	Options      map[string]string
}

func (cfg *DotConfig[T]) node(n T) *dot.DotNode {
	if cfg.Node == nil {
		return &dot.DotNode{ID: fmt.Sprint(n)}
	}
	id, attrs := cfg.Node(n)
	return &dot.DotNode{ID: id, Attrs: attrs}
}

func (cfg *DotConfig[T]) cluster(key any) *dot.DotCluster {
	if cfg.ClusterAttrs == nil {
		return dot.NewDotCluster(fmt.Sprint(key))
	}
	id, attrs := cfg.ClusterAttrs(key)
	cl := dot.NewDotCluster(id)
	if attrs != nil {
		cl.Attrs = attrs
	}
	return cl
}

// ToDotGraph renders the subgraph induced by nodes, in the given order.
func (G Graph[T]) ToDotGraph(nodes []T, cfg *DotConfig[T]) *dot.DotGraph {
	if cfg == nil {
		cfg = &DotConfig[T]{}
	}

	dg := &dot.DotGraph{Options: map[string]string{"rankdir": "TB"}}
	for k, v := range cfg.Options {
		dg.Options[k] = v
	}

	clusters := make(map[any]*dot.DotCluster)
	dnodes := make(map[T]*dot.DotNode, len(nodes))
	for _, n := range nodes {
		dn := cfg.node(n)
		dnodes[n] = dn

		var key any
		if cfg.Cluster != nil {
			key = cfg.Cluster(n)
		}
		if key == nil {
			dg.Nodes = append(dg.Nodes, dn)
			continue
		}
		cl, ok := clusters[key]
		if !ok {
			cl = cfg.cluster(key)
			clusters[key] = cl
			dg.Clusters = append(dg.Clusters, cl)
		}
		cl.Nodes = append(cl.Nodes, dn)
	}

	for _, n := range nodes {
		for _, e := range G.Edges(n) {
			if to, ok := dnodes[e]; ok {
				dg.Edges = append(dg.Edges, &dot.DotEdge{From: dnodes[n], To: to})
			}
		}
	}

	return dg
}
