package graph

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/contra/utils/dot"
)

func TestToDotGraph(t *testing.T) {
	scc := depGraph.SCC([]string{"main"})
	dg := depGraph.ToDotGraph([]string{"parse", "expr", "term", "atom"}, &DotConfig[string]{
		Cluster: func(m string) any {
			if c := scc.ComponentOf(m); scc.Cyclic(c) {
				return c
			}
			return nil
		},
		ClusterAttrs: func(key any) (string, dot.DotAttrs) {
			return fmt.Sprint("scc", key), nil
		},
		Options: map[string]string{"rankdir": "LR"},
	})

	nodes, edges := dg.Size()
	assert.Equal(t, 4, nodes)
	// parse->expr, expr->term, expr->parse, term->expr, term->atom
	assert.Equal(t, 5, edges)
	require.Len(t, dg.Clusters, 1)
	assert.Len(t, dg.Clusters[0].Nodes, 3)
	assert.Len(t, dg.Nodes, 1)

	var buf bytes.Buffer
	require.NoError(t, dg.WriteDot(&buf))
	assert.Contains(t, buf.String(), `rankdir="LR"`)
	assert.Contains(t, buf.String(), `subgraph "cluster_scc`)
	assert.Contains(t, buf.String(), `"parse" -> "expr"`)
}
