package rules

import (
	"errors"
	"testing"
)

func expandOrFatal(t *testing.T, vt *VarTable, text string) string {
	t.Helper()
	got, err := vt.Expand(text)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestDeclareAndExpand(t *testing.T) {
	vt := NewVarTable()
	if err := vt.Declare("file", "a", Immediate); err != nil {
		t.Fatal(err)
	}
	if got := expandOrFatal(t, vt, "echo built ${file}"); got != "echo built a" {
		t.Fatalf("got %q", got)
	}
}

func TestLastDeclarationWins(t *testing.T) {
	vt := NewVarTable()
	vt.Declare("x", "1", Immediate)
	vt.Declare("x", "2", Immediate)
	if got := expandOrFatal(t, vt, "${x}"); got != "2" {
		t.Fatalf("got %q", got)
	}
}

func TestOverrideBeatsFileDeclaration(t *testing.T) {
	// override first, declaration second
	vt := NewVarTable()
	vt.Override("x", "2")
	vt.Declare("x", "1", Immediate)
	if got := expandOrFatal(t, vt, "${x}"); got != "2" {
		t.Fatalf("override then declare: got %q", got)
	}

	// declaration first, override second
	vt = NewVarTable()
	vt.Declare("x", "1", Immediate)
	vt.Override("x", "2")
	if got := expandOrFatal(t, vt, "${x}"); got != "2" {
		t.Fatalf("declare then override: got %q", got)
	}
}

func TestImmediateForwardReferenceIsEmpty(t *testing.T) {
	vt := NewVarTable()
	vt.Declare("early", "${late}x", Immediate)
	vt.Declare("late", "v", Immediate)
	if got := expandOrFatal(t, vt, "${early}"); got != "x" {
		t.Fatalf("got %q", got)
	}
}

func TestDeferredForwardReferenceResolves(t *testing.T) {
	vt := NewVarTable()
	vt.Declare("fwd", "${late}x", Deferred)
	vt.Declare("late", "v", Immediate)
	if got := expandOrFatal(t, vt, "${fwd}"); got != "vx" {
		t.Fatalf("got %q", got)
	}
}

func TestDeferredChain(t *testing.T) {
	vt := NewVarTable()
	vt.Declare("a", "${b}", Deferred)
	vt.Declare("b", "${c}", Deferred)
	vt.Declare("c", "end", Immediate)
	if got := expandOrFatal(t, vt, "${a}"); got != "end" {
		t.Fatalf("got %q", got)
	}
}

func TestExpansionOverflow(t *testing.T) {
	vt := NewVarTable()
	vt.Declare("a", "${a}", Deferred)
	_, err := vt.Expand("${a}")
	var overflow *ExpansionOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected ExpansionOverflowError, got %v", err)
	}
	if overflow.Name != "a" {
		t.Fatalf("expected offending variable 'a', got %q", overflow.Name)
	}
}

func TestMutualRecursionOverflows(t *testing.T) {
	vt := NewVarTable()
	vt.Declare("a", "${b}", Deferred)
	vt.Declare("b", "${a}", Deferred)
	var overflow *ExpansionOverflowError
	if _, err := vt.Expand("${a}"); !errors.As(err, &overflow) {
		t.Fatalf("expected ExpansionOverflowError, got %v", err)
	}
}

func TestImmediateSelfReferenceIsEmpty(t *testing.T) {
	// at declaration time the old value does not exist yet
	vt := NewVarTable()
	if err := vt.Declare("a", "${a}", Immediate); err != nil {
		t.Fatal(err)
	}
	if got := expandOrFatal(t, vt, "[${a}]"); got != "[]" {
		t.Fatalf("got %q", got)
	}
}

func TestUndefinedExpandsToEmpty(t *testing.T) {
	vt := NewVarTable()
	if got := expandOrFatal(t, vt, "[${nope}]"); got != "[]" {
		t.Fatalf("got %q", got)
	}
}

func TestParams(t *testing.T) {
	vt := NewVarTable()
	vt.SetParams([]string{"x", "y"})
	if got := expandOrFatal(t, vt, "$param ${params} ${params[1]}"); got != "x x y y" {
		t.Fatalf("got %q", got)
	}
}

func TestParamsEmpty(t *testing.T) {
	vt := NewVarTable()
	vt.SetParams(nil)
	if got := expandOrFatal(t, vt, "[$param][${params}]"); got != "[][]" {
		t.Fatalf("got %q", got)
	}
}
