package rules

import (
	"errors"
	"strings"
	"testing"
)

func parseAll(t *testing.T, input string) (*RuleSet, *VarTable) {
	t.Helper()
	vars := NewVarTable()
	rs := NewRuleSet()
	if err := Parse(input, "mkfile", vars, rs, ParseOptions{}, nil); err != nil {
		t.Fatal(err)
	}
	return rs, vars
}

func parseErr(t *testing.T, input string) *ParseError {
	t.Helper()
	err := Parse(input, "mkfile", NewVarTable(), NewRuleSet(), ParseOptions{}, nil)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	return perr
}

func TestParseBasic(t *testing.T) {
	rs, vars := parseAll(t, `file := a

all: ${file}.txt
	echo built ${file}

a.txt:
	echo making a.txt
`)
	if got := len(rs.Rules()); got != 2 {
		t.Fatalf("expected 2 rules, got %d", got)
	}
	all, ok := rs.Lookup("all")
	if !ok {
		t.Fatal("missing rule 'all'")
	}
	// prerequisites stay raw until the graph is built
	if len(all.Prereqs) != 1 || all.Prereqs[0] != "${file}.txt" {
		t.Fatalf("unexpected prereqs %v", all.Prereqs)
	}
	if len(all.Commands) != 1 || all.Commands[0].Text != "echo built ${file}" {
		t.Fatalf("unexpected commands %v", all.Commands)
	}
	if rs.MainTarget() != "all" {
		t.Fatalf("expected main target 'all', got %q", rs.MainTarget())
	}
	if v, ok := vars.Lookup("file"); !ok || v.Value != "a" {
		t.Fatalf("unexpected variable %v", v)
	}
}

func TestHelpText(t *testing.T) {
	rs, _ := parseAll(t, `clean: ## remove artifacts
	@echo cleaning
`)
	r, _ := rs.Lookup("clean")
	if r.Help != "remove artifacts" {
		t.Fatalf("got help %q", r.Help)
	}
}

func TestPhony(t *testing.T) {
	rs, _ := parseAll(t, `.PHONY: clean dist

clean:
	@echo cleaning
`)
	if !rs.IsPhony("clean") || !rs.IsPhony("dist") {
		t.Fatal("phony names not recorded")
	}
	if _, ok := rs.Lookup(".PHONY"); ok {
		t.Fatal(".PHONY must not become a rule")
	}
}

func TestQuietCommand(t *testing.T) {
	rs, _ := parseAll(t, "all:\n\t@echo hi\n\techo loud\n")
	r, _ := rs.Lookup("all")
	if !r.Commands[0].Quiet || r.Commands[0].Text != "echo hi" {
		t.Fatalf("unexpected command %+v", r.Commands[0])
	}
	if r.Commands[1].Quiet {
		t.Fatal("second command must not be quiet")
	}
	if r.Commands[1].Line != 3 {
		t.Fatalf("expected line 3, got %d", r.Commands[1].Line)
	}
}

func TestOrphanCommand(t *testing.T) {
	perr := parseErr(t, "\techo hi\n")
	if perr.Line != 1 || !strings.Contains(perr.Msg, "orphan") {
		t.Fatalf("unexpected error %v", perr)
	}
}

func TestMalformedLine(t *testing.T) {
	perr := parseErr(t, "all: ok\n\techo hi\nnot a rule\n")
	if perr.Line != 3 {
		t.Fatalf("expected line 3, got %d", perr.Line)
	}
}

func TestDeclarationAfterRuleFails(t *testing.T) {
	perr := parseErr(t, "all:\n\techo hi\nx = 1\n")
	if !strings.Contains(perr.Msg, "before the first rule") {
		t.Fatalf("unexpected error %v", perr)
	}
}

func TestContinuationBackslash(t *testing.T) {
	_, vars := parseAll(t, "deps = a \\\n b\n")
	v, _ := vars.Lookup("deps")
	if strings.Join(strings.Fields(v.Value), " ") != "a b" {
		t.Fatalf("got %q", v.Value)
	}
}

func TestContinuationBacktick(t *testing.T) {
	rs, _ := parseAll(t, "all:\n\techo one `\ntwo\n")
	r, _ := rs.Lookup("all")
	if len(r.Commands) != 1 || !strings.Contains(r.Commands[0].Text, "two") {
		t.Fatalf("unexpected commands %v", r.Commands)
	}
}

func TestContinuationPipe(t *testing.T) {
	rs, _ := parseAll(t, "all:\n\tcat f |\n\t\tsort\n")
	r, _ := rs.Lookup("all")
	if len(r.Commands) != 1 || r.Commands[0].Text != "cat f | sort" {
		t.Fatalf("unexpected commands %v", r.Commands)
	}
}

func TestTrailingComments(t *testing.T) {
	rs, vars := parseAll(t, `x = 1 # one
url = "http://host#frag"

all: a b # not prereqs
	echo '#' stays
a:
	@echo a
b:
	@echo b
`)
	if v, _ := vars.Lookup("x"); v.Value != "1" {
		t.Fatalf("got %q", v.Value)
	}
	// '#' inside quotes is not a comment
	if v, _ := vars.Lookup("url"); v.Value != "http://host#frag" {
		t.Fatalf("got %q", v.Value)
	}
	r, _ := rs.Lookup("all")
	if len(r.Prereqs) != 2 {
		t.Fatalf("unexpected prereqs %v", r.Prereqs)
	}
	// command lines keep their '#' by default
	if r.Commands[0].Text != "echo '#' stays" {
		t.Fatalf("got %q", r.Commands[0].Text)
	}
}

func TestStripCommentsOption(t *testing.T) {
	vars := NewVarTable()
	rs := NewRuleSet()
	err := Parse("all:\n\techo hi # gone\n", "mkfile", vars, rs, ParseOptions{StripComments: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, _ := rs.Lookup("all")
	if r.Commands[0].Text != "echo hi" {
		t.Fatalf("got %q", r.Commands[0].Text)
	}
}

func TestQuotedPrereq(t *testing.T) {
	rs, _ := parseAll(t, "all: \"a b.txt\"\n\techo hi\n")
	r, _ := rs.Lookup("all")
	if len(r.Prereqs) != 1 || r.Prereqs[0] != "a b.txt" {
		t.Fatalf("unexpected prereqs %v", r.Prereqs)
	}
}

func TestRedefinitionWarnsAndLastWins(t *testing.T) {
	var warnings []string
	vars := NewVarTable()
	rs := NewRuleSet()
	err := Parse(`all:
	echo first
all:
	echo second
`, "mkfile", vars, rs, ParseOptions{}, func(msg string) {
		warnings = append(warnings, msg)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "redefined") {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	r, _ := rs.Lookup("all")
	if r.Commands[0].Text != "echo second" {
		t.Fatalf("expected last definition to win, got %q", r.Commands[0].Text)
	}
	if got := len(rs.Rules()); got != 1 {
		t.Fatalf("expected 1 rule, got %d", got)
	}
}

func TestTargetNameExpansion(t *testing.T) {
	rs, _ := parseAll(t, "name := out\n\n${name}:\n\techo hi\n")
	if _, ok := rs.Lookup("out"); !ok {
		t.Fatal("expected target name to be expanded")
	}
}

func TestQuotedVariableValue(t *testing.T) {
	_, vars := parseAll(t, "msg=\"hello world\"\n")
	if v, _ := vars.Lookup("msg"); v.Value != "hello world" {
		t.Fatalf("got %q", v.Value)
	}
}

func TestCustomTargetDelimiter(t *testing.T) {
	vars := NewVarTable()
	rs := NewRuleSet()
	err := Parse("all= a b\n\techo hi\na=\n\techo a\nb=\n\techo b\n", "mkfile", vars, rs,
		ParseOptions{TargetDelim: "="}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := rs.Lookup("all")
	if !ok || len(r.Prereqs) != 2 {
		t.Fatalf("unexpected rules %v", rs.Rules())
	}
}
