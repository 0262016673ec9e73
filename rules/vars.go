package rules

import (
	"fmt"

	"github.com/btklab/pwmake/expand"
)

// Expansion of a deferred variable re-enters the table, so a self-reference
// would recurse forever without a cap.
const maxExpandDepth = 100

type VarMode int

const (
	// Deferred variables ('name = value') keep their raw text and expand at
	// the point of use.
	Deferred VarMode = iota
	// Immediate variables ('name := value') expand their value once, at the
	// declaration line.
	Immediate
)

func (m VarMode) String() string {
	if m == Immediate {
		return ":="
	}
	return "="
}

type VarOrigin int

const (
	OriginFile VarOrigin = iota
	OriginPredefined
	OriginOverride
)

func (o VarOrigin) String() string {
	switch o {
	case OriginPredefined:
		return "predefined"
	case OriginOverride:
		return "override"
	}
	return "file"
}

// A Var is a single entry of the variable table. Value is fully expanded for
// Immediate variables and raw for Deferred ones.
type Var struct {
	Name   string
	Value  string
	Mode   VarMode
	Origin VarOrigin
}

// A VarTable resolves variable references for rule prerequisites and command
// lines. Overrides and predefined positionals always win over file
// declarations; among file declarations the last one wins.
type VarTable struct {
	vars  map[string]*Var
	names []string // declaration order, for dumps
	depth int
}

func NewVarTable() *VarTable {
	return &VarTable{vars: make(map[string]*Var)}
}

// Declare registers a file-level variable. It is a no-op when an override or
// predefined variable of the same name exists. Immediate declarations expand
// their value against the table as it stands.
func (t *VarTable) Declare(name, raw string, mode VarMode) error {
	if v, ok := t.vars[name]; ok && v.Origin != OriginFile {
		return nil
	}
	value := raw
	if mode == Immediate {
		var err error
		value, err = t.Expand(raw)
		if err != nil {
			return err
		}
	}
	t.set(&Var{Name: name, Value: value, Mode: mode, Origin: OriginFile})
	return nil
}

// Override registers a caller-supplied variable that beats any file
// declaration regardless of order. The value is taken literally.
func (t *VarTable) Override(name, value string) {
	t.set(&Var{Name: name, Value: value, Mode: Immediate, Origin: OriginOverride})
}

// SetParams installs the predefined positional variables: 'params' (all
// values joined by spaces), 'param' (the first value), and 'params[n]'.
func (t *VarTable) SetParams(params []string) {
	join := ""
	for i, p := range params {
		if i > 0 {
			join += " "
		}
		join += p
		t.set(&Var{
			Name:   fmt.Sprintf("params[%d]", i),
			Value:  p,
			Mode:   Immediate,
			Origin: OriginPredefined,
		})
	}
	param := ""
	if len(params) > 0 {
		param = params[0]
	}
	t.set(&Var{Name: "param", Value: param, Mode: Immediate, Origin: OriginPredefined})
	t.set(&Var{Name: "params", Value: join, Mode: Immediate, Origin: OriginPredefined})
}

func (t *VarTable) set(v *Var) {
	if _, ok := t.vars[v.Name]; !ok {
		t.names = append(t.names, v.Name)
	}
	t.vars[v.Name] = v
}

// Lookup returns the table entry for name.
func (t *VarTable) Lookup(name string) (*Var, bool) {
	v, ok := t.vars[name]
	return v, ok
}

// Each calls fn for every variable in declaration order.
func (t *VarTable) Each(fn func(v *Var)) {
	for _, name := range t.names {
		fn(t.vars[name])
	}
}

// Expand replaces every ${name} reference in text. Undefined names expand to
// the empty string. Deferred values are resolved recursively against the
// current table; recursion beyond maxExpandDepth fails with
// ExpansionOverflowError.
func (t *VarTable) Expand(text string) (string, error) {
	t.depth = 0
	return expand.Expand(text, t.resolve, isBareName)
}

func (t *VarTable) resolve(name string) (string, error) {
	v, ok := t.vars[name]
	if !ok {
		return "", nil
	}
	if v.Mode == Immediate {
		return v.Value, nil
	}
	t.depth++
	defer func() { t.depth-- }()
	if t.depth > maxExpandDepth {
		return "", &ExpansionOverflowError{Name: name}
	}
	return expand.Expand(v.Value, t.resolve, isBareName)
}

// Only the predefined positionals may be referenced without braces.
func isBareName(name string) bool {
	return name == "param" || name == "params"
}
