package rules

import (
	"fmt"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

// A Command is one line of a rule's recipe. Text keeps its variable
// references unexpanded until execution.
type Command struct {
	Text  string
	Quiet bool // leading '@': do not echo before running
	Line  int
}

// A Rule builds one target from a list of prerequisites. Prereqs may contain
// unexpanded variable references and glob patterns; they are resolved when
// the dependency graph is built.
type Rule struct {
	Target   string
	Prereqs  []string
	Commands []Command
	Help     string // trailing '## text' on the rule line
	Line     int
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s: %s", r.Target, strings.Join(r.Prereqs, " "))
}

// A RuleSet holds the parsed rules of one mkfile, in declaration order, plus
// the set of phony target names.
type RuleSet struct {
	rules   []*Rule
	targets map[string]int
	phony   mapset.Set[string]
}

func NewRuleSet() *RuleSet {
	return &RuleSet{
		targets: make(map[string]int),
		phony:   mapset.New[string](),
	}
}

// Add registers a rule. Redefining a target replaces the earlier rule
// in-place (last definition wins) and returns the rule that was replaced.
func (rs *RuleSet) Add(r *Rule) (prev *Rule) {
	if i, ok := rs.targets[r.Target]; ok {
		prev = rs.rules[i]
		rs.rules[i] = r
		return prev
	}
	rs.targets[r.Target] = len(rs.rules)
	rs.rules = append(rs.rules, r)
	return nil
}

// MarkPhony records a target name as phony: it never maps to a file and is
// always considered out of date.
func (rs *RuleSet) MarkPhony(name string) {
	rs.phony.Put(name)
}

func (rs *RuleSet) IsPhony(name string) bool {
	return rs.phony.Has(name)
}

// PhonyNames returns the phony set in unspecified order.
func (rs *RuleSet) PhonyNames() []string {
	names := make([]string, 0, rs.phony.Size())
	rs.phony.Each(func(name string) {
		names = append(names, name)
	})
	return names
}

func (rs *RuleSet) Lookup(target string) (*Rule, bool) {
	i, ok := rs.targets[target]
	if !ok {
		return nil, false
	}
	return rs.rules[i], true
}

// MainTarget returns the default target: the first rule defined in the file.
func (rs *RuleSet) MainTarget() string {
	if len(rs.rules) == 0 {
		return ""
	}
	return rs.rules[0].Target
}

// Rules returns all rules in declaration order.
func (rs *RuleSet) Rules() []*Rule {
	return rs.rules
}
