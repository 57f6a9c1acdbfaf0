package main

import "testing"

func TestSymbolTableLookupAutoCreatesUndefinedGlobal(t *testing.T) {
	var curSec *Section
	t_ := NewSymbolTable(&curSec)
	sym := t_.Lookup("foo")
	if sym.Name != "foo" || sym.Defined || sym.Binding != BindGlobal {
		t.Errorf("Lookup(foo) = %+v, want an undefined global named foo", sym)
	}
	if again := t_.Lookup("foo"); again != sym {
		t.Error("a second Lookup of the same name should return the same *Symbol")
	}
}

func TestSymbolTableFindDoesNotCreate(t *testing.T) {
	var curSec *Section
	t_ := NewSymbolTable(&curSec)
	if _, ok := t_.Find("bar"); ok {
		t.Error("Find should not report ok for a never-mentioned name")
	}
	t_.Lookup("bar")
	if _, ok := t_.Find("bar"); !ok {
		t.Error("Find should report ok once the name has been looked up")
	}
}

func TestSymbolTableDotIsSingleton(t *testing.T) {
	var curSec *Section
	t_ := NewSymbolTable(&curSec)
	a := t_.Lookup(".")
	b := t_.Lookup(".")
	if a != b {
		t.Error("\".\" should resolve to the same singleton symbol every time")
	}
}

func TestSymbolTableDefineAndBinding(t *testing.T) {
	var curSec *Section
	t_ := NewSymbolTable(&curSec)
	sec := &Section{Name: ".text"}
	sym := t_.Lookup("start")
	t_.Define(sym, sec, 16)
	if !sym.Defined || sym.Section != sec || sym.Value != 16 {
		t.Errorf("Define did not set Section/Value/Defined: %+v", sym)
	}

	t_.SetLocal(sym)
	if sym.Binding != BindLocal {
		t.Error("SetLocal should set BindLocal")
	}
	t_.SetGlobal(sym)
	if sym.Binding != BindGlobal {
		t.Error("SetGlobal should set BindGlobal")
	}
}

func TestSymbolIsLocalOnly(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{".Ldot1", true},
		{".L42", true},
		{"foo", false},
		{".text", false}, // not a .L-prefixed compiler-private name
		{"L", false},
	}
	for _, c := range cases {
		sym := &Symbol{Name: c.name}
		if got := sym.IsLocalOnly(); got != c.want {
			t.Errorf("IsLocalOnly(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSymbolTableEachPreservesFirstMentionOrder(t *testing.T) {
	var curSec *Section
	t_ := NewSymbolTable(&curSec)
	t_.Lookup("c")
	t_.Lookup("a")
	t_.Lookup("b")

	var order []string
	t_.Each(func(sym *Symbol) { order = append(order, sym.Name) })
	want := []string{"c", "a", "b"}
	if len(order) != len(want) {
		t.Fatalf("Each() visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}
