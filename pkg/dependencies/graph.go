package dependencies

import (
	"context"
	"fmt"

	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

// Expansion is the result of expanding one graph node.
type Expansion struct {
	// Children are the node's dependencies. Only package-kind entries become edges.
	Children manifest.DependencyList
	// Problems are non-fatal findings about the node, accumulated by the graph.
	Problems []error
	// Resolved is the version the node was expanded at, if any.
	Resolved version.Version
}

// ExpandFunc expands a node into its dependencies. A returned error aborts the build.
type ExpandFunc func(ctx context.Context, node manifest.Dependency) (Expansion, error)

// Graph is a dependency graph rooted at one dependency. Nodes are keyed by
// normalized package identifier, so every target appears once no matter how
// many edges lead to it.
type Graph struct {
	root     string
	nodes    map[string]*node
	order    []string
	problems []error
}

type node struct {
	dep      manifest.Dependency
	children []edge
	incoming []manifest.Dependency
	resolved version.Version
	expanded bool
}

type edge struct {
	to  string
	dep manifest.Dependency
}

// NewGraph creates a graph containing only root
func NewGraph(root manifest.Dependency) *Graph {
	key := root.ID.Normalize()
	return &Graph{
		root:  key,
		nodes: map[string]*node{key: {dep: root}},
		order: []string{key},
	}
}

// BuildGraph creates a graph rooted at root and expands it with expand.
func BuildGraph(ctx context.Context, root manifest.Dependency, expand ExpandFunc) (*Graph, error) {
	g := NewGraph(root)
	if err := g.Build(ctx, expand); err != nil {
		return nil, err
	}
	return g, nil
}

// Build expands every reachable node exactly once, breadth first.
func (g *Graph) Build(ctx context.Context, expand ExpandFunc) error {
	queue := []string{g.root}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := queue[0]
		queue = queue[1:]

		n := g.nodes[key]
		if n.expanded {
			continue
		}
		n.expanded = true

		exp, err := expand(ctx, n.dep)
		if err != nil {
			return fmt.Errorf("failed to expand %s: %w", n.dep.ID, err)
		}
		g.problems = append(g.problems, exp.Problems...)
		n.resolved = exp.Resolved

		for _, child := range exp.Children.Items() {
			if child.Kind != manifest.KindPackage {
				continue
			}
			childKey := child.ID.Normalize()
			cn, ok := g.nodes[childKey]
			if !ok {
				cn = &node{dep: child}
				g.nodes[childKey] = cn
				g.order = append(g.order, childKey)
				queue = append(queue, childKey)
			}
			cn.incoming = append(cn.incoming, child)
			n.children = append(n.children, edge{to: childKey, dep: child})
		}
	}

	return nil
}

// Root returns the dependency the graph was built from.
func (g *Graph) Root() manifest.Dependency {
	return g.nodes[g.root].dep
}

// IsRoot reports whether id names the root node.
func (g *Graph) IsRoot(id manifest.PackageID) bool {
	return id.Normalize() == g.root
}

// Nodes returns every node in discovery order. Each node is the dependency
// value it was first reached through.
func (g *Graph) Nodes() []manifest.Dependency {
	out := make([]manifest.Dependency, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.nodes[key].dep)
	}
	return out
}

// Len returns the number of nodes, root included.
func (g *Graph) Len() int {
	return len(g.order)
}

// Children returns the dependencies id declares, each with the minimum
// version id asks for.
func (g *Graph) Children(id manifest.PackageID) []manifest.Dependency {
	n, ok := g.nodes[id.Normalize()]
	if !ok {
		return nil
	}
	out := make([]manifest.Dependency, 0, len(n.children))
	for _, e := range n.children {
		out = append(out, e.dep)
	}
	return out
}

// Requirements returns every edge value pointing at id, one per depending node.
func (g *Graph) Requirements(id manifest.PackageID) []manifest.Dependency {
	n, ok := g.nodes[id.Normalize()]
	if !ok {
		return nil
	}
	out := make([]manifest.Dependency, len(n.incoming))
	copy(out, n.incoming)
	return out
}

// Resolved returns the version id was expanded at. Unknown means the node
// could not be resolved or was never expanded.
func (g *Graph) Resolved(id manifest.PackageID) version.Version {
	n, ok := g.nodes[id.Normalize()]
	if !ok {
		return version.Unknown
	}
	return n.resolved
}

// Problems returns the findings accumulated from every expansion.
func (g *Graph) Problems() []error {
	out := make([]error, len(g.problems))
	copy(out, g.problems)
	return out
}

// HasLoop reports whether any node can reach itself, self-loops included.
func (g *Graph) HasLoop() bool {
	return g.FindLoop() != nil
}

// FindLoop returns the first cycle found as a path that starts and ends with
// the same identifier, or nil for an acyclic graph.
func (g *Graph) FindLoop() []manifest.PackageID {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var path []string
	var loop []string

	var visit func(key string) bool
	visit = func(key string) bool {
		color[key] = gray
		path = append(path, key)

		for _, e := range g.nodes[key].children {
			child := e.to
			switch color[child] {
			case white:
				if visit(child) {
					return true
				}
			case gray:
				for i := len(path) - 1; i >= 0; i-- {
					if path[i] == child {
						loop = append(append([]string{}, path[i:]...), child)
						break
					}
				}
				return true
			}
		}

		color[key] = black
		path = path[:len(path)-1]
		return false
	}

	for _, key := range g.order {
		if color[key] == white && visit(key) {
			ids := make([]manifest.PackageID, 0, len(loop))
			for _, k := range loop {
				ids = append(ids, g.nodes[k].dep.ID)
			}
			return ids
		}
	}
	return nil
}
