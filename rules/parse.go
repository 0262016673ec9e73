package rules

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ParseOptions control the mkfile dialect.
type ParseOptions struct {
	// TargetDelim separates a target from its prerequisites. Defaults to ":".
	TargetDelim string
	// StripComments also strips trailing '#' comments from command lines.
	// Off by default since command text may legitimately contain '#'.
	StripComments bool
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.TargetDelim == "" {
		o.TargetDelim = ":"
	}
	return o
}

// An InfoFn receives non-fatal diagnostics, such as redefinition warnings.
type InfoFn func(msg string)

type parser struct {
	path    string
	opts    ParseOptions
	vars    *VarTable
	rules   *RuleSet
	cur     *Rule
	sawRule bool
	info    InfoFn
}

// Parse reads the mkfile text into rs, declaring variables into vars as they
// are encountered. Variable declarations are only valid before the first
// rule. Rule target names are expanded immediately; prerequisites and
// commands stay raw until graph construction and execution.
func Parse(input, path string, vars *VarTable, rs *RuleSet, opts ParseOptions, info InfoFn) error {
	if info == nil {
		info = func(string) {}
	}
	p := &parser{
		path:  path,
		opts:  opts.withDefaults(),
		vars:  vars,
		rules: rs,
		info:  info,
	}
	for _, ln := range logicalLines(input) {
		if err := p.parseLine(ln); err != nil {
			return err
		}
	}
	return nil
}

type line struct {
	text string
	num  int
}

// logicalLines splits the input into lines, joining explicit continuations
// first. A line ending in '\' or '`' is joined with the next line, marker
// removed; a line ending in '|' is joined keeping the pipe.
func logicalLines(input string) []line {
	raw := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	out := make([]line, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		text := raw[i]
		num := i + 1
		for i+1 < len(raw) {
			trimmed := strings.TrimRight(text, " \t")
			if strings.HasSuffix(trimmed, "\\") || strings.HasSuffix(trimmed, "`") {
				i++
				text = trimmed[:len(trimmed)-1] + raw[i]
				continue
			}
			if strings.HasSuffix(trimmed, "|") {
				i++
				text = trimmed + " " + strings.TrimLeft(raw[i], " \t")
				continue
			}
			break
		}
		out = append(out, line{text: text, num: num})
	}
	return out
}

func (p *parser) parseLine(ln line) error {
	text := ln.text
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}
	if text[0] == ' ' || text[0] == '\t' {
		return p.parseCommand(trimmed, ln.num)
	}
	return p.parseUnindented(text, ln.num)
}

func (p *parser) parseCommand(text string, num int) error {
	if p.cur == nil {
		return &ParseError{Path: p.path, Line: num, Msg: "orphan command line: no target rule defined yet"}
	}
	if p.opts.StripComments {
		if i := indexUnquoted(text, "#"); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		if text == "" {
			return nil
		}
	}
	quiet := false
	if strings.HasPrefix(text, "@") {
		quiet = true
		text = strings.TrimSpace(text[1:])
	}
	p.cur.Commands = append(p.cur.Commands, Command{Text: text, Quiet: quiet, Line: num})
	return nil
}

func (p *parser) parseUnindented(text string, num int) error {
	// '## text' on a rule line is help text, not a comment.
	help := ""
	if i := indexUnquoted(text, "##"); i >= 0 {
		help = strings.TrimSpace(text[i+2:])
		text = text[:i]
	}
	if i := indexUnquoted(text, "#"); i >= 0 {
		text = text[:i]
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	delim := indexUnquoted(text, p.opts.TargetDelim)
	imm := indexUnquoted(text, ":=")
	eq := indexUnquoted(text, "=")

	switch {
	case imm >= 0 && (delim < 0 || imm <= delim):
		return p.parseDecl(text[:imm], text[imm+2:], Immediate, num)
	case eq >= 0 && (delim < 0 || eq < delim):
		return p.parseDecl(text[:eq], text[eq+1:], Deferred, num)
	case delim >= 0:
		return p.parseRule(text[:delim], text[delim+len(p.opts.TargetDelim):], help, num)
	}
	return &ParseError{
		Path: p.path,
		Line: num,
		Msg:  fmt.Sprintf("expected 'target%s prerequisites...' or 'name = value'", p.opts.TargetDelim),
	}
}

func (p *parser) parseDecl(name, raw string, mode VarMode, num int) error {
	if p.sawRule {
		return &ParseError{Path: p.path, Line: num, Msg: "variable declarations must appear before the first rule"}
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t") {
		return &ParseError{Path: p.path, Line: num, Msg: fmt.Sprintf("invalid variable name %q", name)}
	}
	value := strings.TrimSpace(raw)
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	if err := p.vars.Declare(name, value, mode); err != nil {
		return err
	}
	return nil
}

func (p *parser) parseRule(left, right, help string, num int) error {
	names, err := shellquote.Split(left)
	if err != nil {
		return &ParseError{Path: p.path, Line: num, Msg: fmt.Sprintf("malformed target: %v", err)}
	}
	if len(names) != 1 {
		return &ParseError{Path: p.path, Line: num, Msg: "expected exactly one target per rule"}
	}
	prereqs, err := shellquote.Split(right)
	if err != nil {
		return &ParseError{Path: p.path, Line: num, Msg: fmt.Sprintf("malformed prerequisite list: %v", err)}
	}

	// the target name may itself hold variable references; the table is
	// complete at this point since declarations precede the first rule
	target, err := p.vars.Expand(names[0])
	if err != nil {
		return err
	}

	if target == ".PHONY" {
		for _, name := range prereqs {
			p.rules.MarkPhony(name)
		}
		p.cur = nil
		return nil
	}

	r := &Rule{Target: target, Prereqs: prereqs, Help: help, Line: num}
	if prev := p.rules.Add(r); prev != nil {
		p.info(fmt.Sprintf("%s:%d: target '%s' redefined (previous definition at line %d); last definition wins",
			p.path, num, target, prev.Line))
	}
	p.cur = r
	p.sawRule = true
	return nil
}

// indexUnquoted returns the index of the first occurrence of sub outside of
// single or double quotes, or -1.
func indexUnquoted(s, sub string) int {
	var inSingle, inDouble bool
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'' && !inDouble:
			inSingle = !inSingle
		case s[i] == '"' && !inSingle:
			inDouble = !inDouble
		case !inSingle && !inDouble && strings.HasPrefix(s[i:], sub):
			return i
		}
	}
	return -1
}
