package rules

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// A Graph is the dependency graph reachable from one requested target.
// Nodes are rule targets plus ruleless prerequisites (leaf files).
type Graph struct {
	base  *node
	rs    *RuleSet
	vars  *VarTable
	nodes map[string]*node
	order []*node // topological plan, prerequisites first
}

type node struct {
	target  string
	rule    *Rule // nil for leaf files
	prereqs []*node
	phony   bool
	exists  bool

	// for cycle checking
	onstack bool
	visited bool
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NewGraph resolves target and everything reachable from it against the rule
// set, expanding prerequisite text through vars before edges are built. It
// fails with UnknownTargetError for a ruleless prerequisite that is not an
// existing file, and with CyclicDependencyError if the graph has a cycle; in
// both cases no commands have run.
func NewGraph(rs *RuleSet, vars *VarTable, target string) (*Graph, error) {
	g := &Graph{
		rs:    rs,
		vars:  vars,
		nodes: make(map[string]*node),
	}
	t, err := vars.Expand(target)
	if err != nil {
		return nil, err
	}
	g.base, err = g.resolve(t)
	if err != nil {
		return nil, err
	}
	if err := g.checkCycles(g.base, nil); err != nil {
		return nil, err
	}
	g.plan(g.base)
	return g, nil
}

func (g *Graph) resolve(target string) (*node, error) {
	if n, ok := g.nodes[target]; ok {
		return n, nil
	}
	n := &node{
		target: target,
		phony:  g.rs.IsPhony(target),
		exists: exists(target),
	}
	g.nodes[target] = n

	r, ok := g.rs.Lookup(target)
	if !ok {
		// a leaf with no rule is only valid if the file already exists
		if !n.phony && !n.exists {
			return nil, &UnknownTargetError{Target: target}
		}
		return n, nil
	}
	n.rule = r

	prereqs, err := g.expandPrereqs(r)
	if err != nil {
		return nil, err
	}
	for _, p := range prereqs {
		if p == target {
			return nil, &CyclicDependencyError{Cycle: []string{target, target}}
		}
		pn, err := g.resolve(p)
		if err != nil {
			return nil, err
		}
		n.prereqs = append(n.prereqs, pn)
	}
	return n, nil
}

// expandPrereqs resolves variable references in a rule's prerequisite list
// and then glob patterns against the filesystem. A word that held a variable
// reference contributes each whitespace-separated name of its expansion;
// literal words pass through verbatim, since quoting was already resolved at
// parse time and a quoted name may legitimately contain spaces.
func (g *Graph) expandPrereqs(r *Rule) ([]string, error) {
	var names []string
	for _, p := range r.Prereqs {
		if !strings.ContainsRune(p, '$') {
			names = append(names, p)
			continue
		}
		text, err := g.vars.Expand(p)
		if err != nil {
			return nil, err
		}
		names = append(names, strings.Fields(text)...)
	}
	return expandGlobs(names, g.rs)
}

func (g *Graph) checkCycles(n *node, path []string) error {
	if n.onstack {
		cycle := append(path, n.target)
		for i, t := range cycle {
			if t == n.target {
				cycle = cycle[i:]
				break
			}
		}
		return &CyclicDependencyError{Cycle: cycle}
	}
	if n.visited {
		return nil
	}
	n.onstack = true
	path = append(path, n.target)
	for _, p := range n.prereqs {
		if err := g.checkCycles(p, path); err != nil {
			return err
		}
	}
	n.onstack = false
	n.visited = true
	return nil
}

// plan emits nodes in depth-first post-order: every prerequisite strictly
// before its dependent, each node exactly once. Prerequisites keep the order
// they were written in.
func (g *Graph) plan(base *node) {
	seen := make(map[*node]bool)
	var visit func(n *node)
	visit = func(n *node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, p := range n.prereqs {
			visit(p)
		}
		g.order = append(g.order, n)
	}
	visit(base)
}

// Plan returns the execution order of rule targets. Leaf files and synthetic
// targets are omitted.
func (g *Graph) Plan() []string {
	targets := make([]string, 0, len(g.order))
	for _, n := range g.order {
		if n.rule == nil || strings.HasPrefix(n.target, ":") {
			continue
		}
		targets = append(targets, n.target)
	}
	return targets
}

func (g *Graph) Size() int {
	return len(g.nodes)
}

// RuleSet returns the rules this graph was built from.
func (g *Graph) RuleSet() *RuleSet { return g.rs }

// Vars returns the variable table this graph was built with.
func (g *Graph) Vars() *VarTable { return g.vars }

func (g *Graph) Visualize(w io.Writer) {
	fmt.Fprintln(w, "digraph pwmake {")
	fmt.Fprintln(w, "rankdir=\"LR\";")
	visited := make(map[*node]bool)
	var visit func(n *node)
	visit = func(n *node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, p := range n.prereqs {
			fmt.Fprintf(w, "    \"%s\" -> \"%s\";\n", n.target, p.target)
			visit(p)
		}
	}
	visit(g.base)
	fmt.Fprintln(w, "}")
}
