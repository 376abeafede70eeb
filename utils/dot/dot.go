// Package dot writes graphs in the Graphviz dot language and renders them
// to images with go-graphviz.
package dot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/goccy/go-graphviz"
)

type DotAttrs map[string]string

// String renders the attributes sorted by name.
func (p DotAttrs) String() string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%q", k, p[k])
	}
	return strings.Join(parts, " ")
}

type DotNode struct {
	ID    string
	Attrs DotAttrs
}

type DotEdge struct {
	From, To *DotNode
	Attrs    DotAttrs
}

// DotCluster is a boxed group of nodes. Clusters do not nest.
type DotCluster struct {
	ID    string
	Nodes []*DotNode
	Attrs DotAttrs
}

func NewDotCluster(id string) *DotCluster {
	return &DotCluster{ID: id, Attrs: DotAttrs{}}
}

// Name is the subgraph name; the cluster_ prefix makes dot draw a box.
func (c *DotCluster) Name() string {
	return "cluster_" + c.ID
}

type DotGraph struct {
	Title    string
	Clusters []*DotCluster
	Nodes    []*DotNode
	Edges    []*DotEdge
	// Options recognized: rankdir and nodesep.
	Options map[string]string
}

// Size is the number of nodes and visible edges.
func (g *DotGraph) Size() (nodes, edges int) {
	nodes = len(g.Nodes)
	for _, c := range g.Clusters {
		nodes += len(c.Nodes)
	}
	for _, e := range g.Edges {
		if !strings.Contains(e.Attrs["style"], "invis") {
			edges++
		}
	}
	return
}

var dotTemplate = template.Must(template.New("graph").
	Option("missingkey=zero").
	Parse(`{{define "node"}}{{printf "%q" .ID}} [{{.Attrs}}];{{end -}}
digraph {{printf "%q" (or .Title "Equations")}} {
	rankdir={{printf "%q" (or .Options.rankdir "LR")}};
	nodesep={{printf "%q" (or .Options.nodesep "0.3")}};
	fontname="Helvetica";
	node [shape="box" style="rounded,filled" fillcolor="aliceblue" fontname="Helvetica" fontsize="11"];
	edge [arrowsize="0.7"];
{{range .Clusters}}
	subgraph {{printf "%q" .Name}} {
		{{.Attrs}}
		{{- range .Nodes}}
		{{template "node" .}}
		{{- end}}
	}
{{end}}
	{{- range .Nodes}}
	{{template "node" .}}
	{{- end}}
	{{- range .Edges}}
	{{printf "%q -> %q" .From.ID .To.ID}} [{{.Attrs}}];
	{{- end}}
}
`))

func (g *DotGraph) WriteDot(w io.Writer) error {
	return dotTemplate.Execute(w, g)
}

// DotToImage renders dot source to <outfname>.<format>, keeping the source
// next to the image in <outfname>.dot, and returns the path of the image.
// An empty outfname places both in the temporary directory.
func DotToImage(outfname, format string, src []byte) (string, error) {
	base := outfname
	if base == "" {
		base = filepath.Join(os.TempDir(), "contra-deps")
	}
	if err := os.WriteFile(base+".dot", src, 0o644); err != nil {
		return "", err
	}

	gv := graphviz.New()
	defer gv.Close()
	graph, err := graphviz.ParseBytes(src)
	if err != nil {
		return "", fmt.Errorf("parsing %s.dot: %w", base, err)
	}
	defer graph.Close()

	img := base + "." + format
	if err := gv.RenderFilename(graph, graphviz.Format(format), img); err != nil {
		return "", fmt.Errorf("rendering %s: %w", img, err)
	}
	return img, nil
}
