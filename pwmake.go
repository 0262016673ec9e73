// Package pwmake runs targets from a declarative mkfile: variable
// declarations, 'target: prerequisites' rules with indented command lines,
// and phony targets. Commands run sequentially, prerequisites first, in an
// embedded shell whose state persists across command lines.
package pwmake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"

	"github.com/btklab/pwmake/rules"
)

// Flags for modifying the behavior of pwmake.
type Flags struct {
	File          string
	RunDir        string
	DryRun        bool
	Quiet         bool
	Style         string
	Shell         string
	Params        []string
	StripComments bool
	TargetDelim   string
	CacheDir      string
	Tool          string
	ToolArgs      []string
}

// Flags that may be set in a .pwmake.toml file.
type UserFlags struct {
	File          *string `toml:"file"`
	RunDir        *string `toml:"directory"`
	DryRun        *bool   `toml:"dry_run"`
	Quiet         *bool   `toml:"quiet"`
	Style         *string `toml:"style"`
	Shell         *string `toml:"shell"`
	StripComments *bool   `toml:"strip_comments"`
	CacheDir      *string `toml:"cache"`
}

type assign struct {
	name  string
	value string
}

// Parses 'args' for expressions of the form 'key=value'. Assignments that
// are found are returned, along with the remaining arguments (targets).
func makeAssigns(args []string) ([]assign, []string) {
	assigns := make([]assign, 0, len(args))
	targets := make([]string, 0)
	for _, a := range args {
		before, after, found := strings.Cut(a, "=")
		if found {
			assigns = append(assigns, assign{name: before, value: after})
		} else {
			targets = append(targets, a)
		}
	}
	return assigns, targets
}

// Run parses the mkfile named by flags, builds the dependency graph for the
// requested targets (args holds targets and 'name=value' overrides), and
// either executes the plan or runs the requested reporter tool. All build
// output is written to 'out'; warnings go to the default logger.
func Run(ctx context.Context, out io.Writer, args []string, flags Flags) error {
	if flags.RunDir != "" {
		if err := os.Chdir(flags.RunDir); err != nil {
			return err
		}
	}

	cliAssigns, targets := makeAssigns(args)

	vars := rules.NewVarTable()
	vars.SetParams(flags.Params)
	for _, a := range cliAssigns {
		vars.Override(a.name, a.value)
	}

	data, err := os.ReadFile(flags.File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s does not exist", flags.File)
		}
		return err
	}

	rs := rules.NewRuleSet()
	err = rules.Parse(string(data), flags.File, vars, rs, rules.ParseOptions{
		TargetDelim:   flags.TargetDelim,
		StripComments: flags.StripComments,
	}, func(msg string) {
		log.Warn(msg)
	})
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		main := rs.MainTarget()
		if main == "" {
			return errors.New("no targets")
		}
		targets = []string{main}
	}

	root := targets[0]
	if len(targets) > 1 {
		rs.Add(&rules.Rule{Target: ":build", Prereqs: targets})
		rs.MarkPhony(":build")
		root = ":build"
	}

	g, err := rules.NewGraph(rs, vars, root)
	if err != nil {
		return err
	}

	db := openDatabase(flags)

	var w io.Writer = out
	if flags.Quiet {
		w = io.Discard
	}

	if flags.Tool != "" {
		var t rules.Tool
		switch flags.Tool {
		case "list":
			t = &rules.ListTool{W: w}
		case "help":
			t = &rules.HelpTool{W: w}
		case "plan":
			t = &rules.PlanTool{W: w}
		case "graph":
			t = &rules.GraphTool{W: w}
		case "vars":
			t = &rules.VarsTool{W: w}
		case "status":
			t = &rules.StatusTool{W: w, Db: db}
		default:
			return fmt.Errorf("unknown tool: %s", flags.Tool)
		}
		return t.Run(g, flags.ToolArgs)
	}

	var printer rules.Printer
	switch flags.Style {
	case "steps":
		printer = &StepPrinter{w: w}
	case "progress":
		printer = &ProgressPrinter{w: w, showCommands: !flags.Quiet}
	default:
		printer = &BasicPrinter{w: w}
	}

	ec := rules.ExecContext{Stdout: out}
	var runner rules.Runner
	if flags.Shell != "" {
		runner = rules.NewExecRunner(flags.Shell, ec)
	} else {
		runner, err = rules.NewShellRunner(ec)
		if err != nil {
			return err
		}
	}

	ex := rules.NewExecutor(vars, runner, printer, db, rules.Options{
		NoExec: flags.DryRun,
	})
	execerr := ex.Exec(ctx, g)

	if !flags.DryRun {
		if err := db.Save(); err != nil {
			log.Warn(fmt.Sprintf("saving recipe database: %v", err))
		}
	}
	return execerr
}

func openDatabase(flags Flags) *rules.Database {
	if flags.CacheDir == "" || flags.CacheDir == "." {
		return rules.NewDatabase(filepath.Join(".pwmake", filepath.Base(flags.File)))
	}
	dir := flags.CacheDir
	if dir == "$cache" {
		dir = filepath.Join(xdg.CacheHome, "pwmake")
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return rules.NewCacheDatabase(dir, filepath.Join(wd, flags.File))
}
