package rules

import (
	"fmt"
	"strings"
)

// A ParseError reports a malformed line in a mkfile.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// A CyclicDependencyError reports a dependency cycle. Cycle holds the full
// path, starting and ending at the same target.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

// An UnknownTargetError reports a target that has no rule and does not exist
// as a file.
type UnknownTargetError struct {
	Target string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("no rule to make target '%s'", e.Target)
}

// An ExpansionOverflowError reports a variable whose expansion exceeded the
// recursion limit, usually a self-reference.
type ExpansionOverflowError struct {
	Name string
}

func (e *ExpansionOverflowError) Error() string {
	return fmt.Sprintf("expansion depth exceeded while expanding '${%s}'", e.Name)
}

// A CommandError reports the first failing command of a run. Commands after
// it are not executed; side effects of commands before it are not undone.
type CommandError struct {
	Target string
	Cmd    string
	Line   int
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("'%s': command '%s' failed: %v", e.Target, e.Cmd, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
