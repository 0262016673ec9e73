package rules

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	shexpand "mvdan.cc/sh/v3/expand"
)

// An ExecContext carries the execution environment explicitly instead of
// relying on ambient process state, so runners can be tested by injection.
type ExecContext struct {
	Dir    string
	Env    []string // overlay; nil means the process environment
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (ec ExecContext) withDefaults() ExecContext {
	if ec.Env == nil {
		ec.Env = os.Environ()
	}
	if ec.Stdin == nil {
		ec.Stdin = os.Stdin
	}
	if ec.Stdout == nil {
		ec.Stdout = os.Stdout
	}
	if ec.Stderr == nil {
		ec.Stderr = os.Stderr
	}
	return ec
}

// A Runner executes one fully expanded command line.
type Runner interface {
	Run(ctx context.Context, cmd string) error
}

// A ShellRunner executes commands with an embedded POSIX shell interpreter.
// All commands of a run share one interpreter, so shell state such as the
// working directory persists across command lines.
type ShellRunner struct {
	runner *interp.Runner
	parser *syntax.Parser
}

func NewShellRunner(ec ExecContext) (*ShellRunner, error) {
	ec = ec.withDefaults()
	opts := []interp.RunnerOption{
		interp.StdIO(ec.Stdin, ec.Stdout, ec.Stderr),
		interp.Env(shexpand.ListEnviron(ec.Env...)),
	}
	if ec.Dir != "" {
		opts = append(opts, interp.Dir(ec.Dir))
	}
	r, err := interp.New(opts...)
	if err != nil {
		return nil, err
	}
	return &ShellRunner{runner: r, parser: syntax.NewParser()}, nil
}

func (s *ShellRunner) Run(ctx context.Context, cmd string) error {
	prog, err := s.parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return err
	}
	return s.runner.Run(ctx, prog)
}

// An ExecRunner executes each command as a subprocess: 'shell -c cmd' when a
// shell program is configured, otherwise the command is split into words
// itself.
type ExecRunner struct {
	Shell string
	ec    ExecContext
}

func NewExecRunner(shell string, ec ExecContext) *ExecRunner {
	return &ExecRunner{Shell: shell, ec: ec.withDefaults()}
}

func (e *ExecRunner) Run(ctx context.Context, cmd string) error {
	var name string
	var args []string
	if e.Shell != "" {
		name = e.Shell
		args = []string{"-c", cmd}
	} else {
		words, err := shellquote.Split(cmd)
		if err != nil {
			return err
		}
		if len(words) == 0 {
			return nil
		}
		name = words[0]
		args = words[1:]
	}
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = e.ec.Dir
	c.Env = e.ec.Env
	c.Stdin = e.ec.Stdin
	c.Stdout = e.ec.Stdout
	c.Stderr = e.ec.Stderr
	return c.Run()
}

// A Printer displays commands as they are executed.
type Printer interface {
	SetSteps(n int)
	Print(cmd, target string, step int)
	Done(target string)
}

// Options for the Executor.
type Options struct {
	NoExec bool // expand and echo commands without running them
}

// An Executor runs a graph's execution plan strictly in order, one command
// at a time. The first failing command aborts the whole run.
type Executor struct {
	vars   *VarTable
	runner Runner
	p      Printer
	db     *Database
	opts   Options
}

func NewExecutor(vars *VarTable, runner Runner, p Printer, db *Database, opts Options) *Executor {
	return &Executor{
		vars:   vars,
		runner: runner,
		p:      p,
		db:     db,
		opts:   opts,
	}
}

// Exec runs every planned target's commands, prerequisites first. Commands
// are variable-expanded just before execution and echoed unless suppressed
// with '@'. Side effects of commands that ran before a failure are not
// undone.
func (e *Executor) Exec(ctx context.Context, g *Graph) error {
	nsteps := 0
	for _, n := range g.order {
		if n.rule != nil && len(n.rule.Commands) > 0 {
			nsteps++
		}
	}
	e.p.SetSteps(nsteps)

	step := 0
	for _, n := range g.order {
		if n.rule == nil || len(n.rule.Commands) == 0 {
			continue
		}
		step++
		recipe := make([]string, 0, len(n.rule.Commands))
		for _, c := range n.rule.Commands {
			cmd, err := e.vars.Expand(c.Text)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cmd) == "" {
				continue
			}
			recipe = append(recipe, cmd)
			// a dry run shows the whole sequence, '@' lines included
			if !c.Quiet || e.opts.NoExec {
				e.p.Print(cmd, n.target, step)
			}
			if e.opts.NoExec {
				continue
			}
			if err := e.runner.Run(ctx, cmd); err != nil {
				return &CommandError{Target: n.target, Cmd: cmd, Line: c.Line, Err: err}
			}
		}
		if e.db != nil && !e.opts.NoExec {
			e.db.InsertRecipe(n.target, recipe)
		}
		e.p.Done(n.target)
	}
	return nil
}

// ExpandRecipe returns a node's fully expanded command lines without running
// them, for reporters.
func (g *Graph) ExpandRecipe(r *Rule) ([]string, error) {
	recipe := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		cmd, err := g.vars.Expand(c.Text)
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", r.Target, err)
		}
		recipe = append(recipe, cmd)
	}
	return recipe, nil
}
