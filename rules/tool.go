package rules

import (
	"fmt"
	"io"
	"sort"

	"github.com/zyedidia/generic/mapset"
)

var tools = []Tool{
	&ListTool{},
	&HelpTool{},
	&PlanTool{},
	&GraphTool{},
	&VarsTool{},
	&StatusTool{},
}

// A Tool is a read-only reporter over the parsed rules and the dependency
// graph. Tools never execute commands.
type Tool interface {
	Run(g *Graph, args []string) error
	String() string
}

type ListTool struct {
	W io.Writer
}

func (t *ListTool) Run(g *Graph, args []string) error {
	for _, tl := range tools {
		fmt.Fprintln(t.W, tl)
	}
	return nil
}

func (t *ListTool) String() string {
	return "list - list all available tools"
}

// HelpTool prints every target that carries '## help' text on its rule line.
// Targets without an annotation are omitted; the annotation is the opt-in
// that marks a target as part of the mkfile's public surface.
type HelpTool struct {
	W io.Writer
}

func (t *HelpTool) Run(g *Graph, args []string) error {
	for _, r := range g.rs.Rules() {
		if r.Help == "" {
			continue
		}
		fmt.Fprintf(t.W, "%s\t%s\n", r.Target, r.Help)
	}
	return nil
}

func (t *HelpTool) String() string {
	return "help - list targets annotated with '## help text'"
}

// PlanTool dumps the fully resolved run: variables, phony names, raw rules,
// the topological target order, and the command sequence. Commands are
// printed expanded unless 'raw' is passed.
type PlanTool struct {
	W io.Writer
}

func (t *PlanTool) Run(g *Graph, args []string) error {
	raw := len(args) > 0 && args[0] == "raw"

	fmt.Fprintln(t.W, "# variables")
	g.vars.Each(func(v *Var) {
		fmt.Fprintf(t.W, "%s %s %s\n", v.Name, v.Mode, v.Value)
	})

	fmt.Fprintln(t.W, "# phony")
	phony := g.rs.PhonyNames()
	sort.Strings(phony)
	for _, name := range phony {
		fmt.Fprintln(t.W, name)
	}

	fmt.Fprintln(t.W, "# rules")
	for _, r := range g.rs.Rules() {
		fmt.Fprintln(t.W, r)
		for _, c := range r.Commands {
			fmt.Fprintf(t.W, "\t%s\n", c.Text)
		}
	}

	fmt.Fprintln(t.W, "# plan")
	for _, target := range g.Plan() {
		fmt.Fprintln(t.W, target)
	}

	fmt.Fprintln(t.W, "# commands")
	for _, target := range g.Plan() {
		r, ok := g.rs.Lookup(target)
		if !ok {
			continue
		}
		if raw {
			for _, c := range r.Commands {
				fmt.Fprintln(t.W, c.Text)
			}
			continue
		}
		recipe, err := g.ExpandRecipe(r)
		if err != nil {
			return err
		}
		for _, cmd := range recipe {
			fmt.Fprintln(t.W, cmd)
		}
	}
	return nil
}

func (t *PlanTool) String() string {
	return "plan - dump the resolved execution plan (pass 'raw' for unexpanded commands)"
}

// GraphTool renders the dependency graph as text, a tree, or dot.
type GraphTool struct {
	W io.Writer
}

func (t *GraphTool) text(n *node, visited mapset.Set[*node]) {
	if visited.Has(n) {
		return
	}
	visited.Put(n)
	for _, p := range n.prereqs {
		fmt.Fprintf(t.W, "%s -> %s\n", n.target, p.target)
		t.text(p, visited)
	}
}

func (t *GraphTool) tree(indent string, n *node) {
	fmt.Fprintf(t.W, "%s%s\n", indent, n.target)
	for _, p := range n.prereqs {
		t.tree(indent+"| ", p)
	}
}

func (t *GraphTool) Run(g *Graph, args []string) error {
	choice := "text"
	if len(args) > 0 {
		choice = args[0]
	}
	switch choice {
	case "text":
		t.text(g.base, mapset.New[*node]())
	case "tree":
		t.tree("", g.base)
	case "dot":
		g.Visualize(t.W)
	default:
		return fmt.Errorf("invalid argument '%s', must be one of: text, tree, dot", choice)
	}
	return nil
}

func (t *GraphTool) String() string {
	return "graph - print the dependency graph in specified format: text, tree, dot"
}

// VarsTool dumps the variable table with mode and provenance.
type VarsTool struct {
	W io.Writer
}

func (t *VarsTool) Run(g *Graph, args []string) error {
	g.vars.Each(func(v *Var) {
		fmt.Fprintf(t.W, "%s %s %s (%s)\n", v.Name, v.Mode, v.Value, v.Origin)
	})
	return nil
}

func (t *VarsTool) String() string {
	return "vars - dump the variable table with provenance"
}

// StatusTool compares each planned recipe against the fingerprint recorded
// by the last completed run.
type StatusTool struct {
	W  io.Writer
	Db *Database
}

func (t *StatusTool) Run(g *Graph, args []string) error {
	for _, target := range g.Plan() {
		r, ok := g.rs.Lookup(target)
		if !ok || len(r.Commands) == 0 {
			continue
		}
		recipe, err := g.ExpandRecipe(r)
		if err != nil {
			return err
		}
		status := "new"
		switch {
		case t.Db.HasRecipe(target, recipe):
			status = "unchanged"
		case t.Db.Known(target):
			status = "changed"
		}
		fmt.Fprintf(t.W, "%s: %s\n", target, status)
	}
	return nil
}

func (t *StatusTool) String() string {
	return "status - report which recipes changed since the last run"
}
