package dependencies

import (
	"fmt"
	"strings"
)

// CytoscapeNode represents a node in Cytoscape.js format
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData contains node data for Cytoscape.js
type CytoscapeNodeData struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MinVersion string `json:"minVersion,omitempty"`
	Type       string `json:"type"` // "current", "dependency"
}

// CytoscapeEdge represents an edge in Cytoscape.js format
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData contains edge data for Cytoscape.js
type CytoscapeEdgeData struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	MinVersion string `json:"minVersion,omitempty"`
	Type       string `json:"type,omitempty"` // "direct", "transitive"
}

// CytoscapeGraph represents the complete graph in Cytoscape.js format
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// ToCytoscape converts g into Cytoscape.js elements
func ToCytoscape(g *Graph) CytoscapeGraph {
	cytoGraph := CytoscapeGraph{
		Nodes: make([]CytoscapeNode, 0, len(g.order)),
		Edges: make([]CytoscapeEdge, 0),
	}

	for _, key := range g.order {
		n := g.nodes[key]
		data := CytoscapeNodeData{
			ID:   key,
			Name: n.dep.ID.String(),
			Type: "dependency",
		}
		if key == g.root {
			data.Type = "current"
		} else if !n.dep.MinVersion.IsUnknown() {
			data.MinVersion = n.dep.MinVersion.String()
		}
		cytoGraph.Nodes = append(cytoGraph.Nodes, CytoscapeNode{Data: data})
	}

	for _, key := range g.order {
		for _, e := range g.nodes[key].children {
			childKey := e.to
			edge := CytoscapeEdgeData{
				ID:     key + "->" + childKey,
				Source: key,
				Target: childKey,
				Type:   "transitive",
			}
			if key == g.root {
				edge.Type = "direct"
			}
			if !e.dep.MinVersion.IsUnknown() {
				edge.MinVersion = e.dep.MinVersion.String()
			}
			cytoGraph.Edges = append(cytoGraph.Edges, CytoscapeEdge{Data: edge})
		}
	}

	return cytoGraph
}

// ToDOT renders g in Graphviz DOT format
func ToDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	for _, key := range g.order {
		fmt.Fprintf(&b, "  %q;\n", g.nodes[key].dep.ID.String())
	}
	for _, key := range g.order {
		from := g.nodes[key].dep.ID.String()
		for _, e := range g.nodes[key].children {
			to := g.nodes[e.to].dep.ID.String()
			if !e.dep.MinVersion.IsUnknown() {
				fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", from, to, ">="+e.dep.MinVersion.String())
			} else {
				fmt.Fprintf(&b, "  %q -> %q;\n", from, to)
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}
