package main

import "testing"

func TestFoldAddConstants(t *testing.T) {
	e, err := foldAdd(exprNumber(2), exprNumber(3))
	if err != nil {
		t.Fatalf("foldAdd: %v", err)
	}
	if e.Kind != ExprNumber || e.Num != 5 {
		t.Errorf("got %+v, want ExprNumber(5)", e)
	}
}

func TestFoldAddSymbolPlusConstant(t *testing.T) {
	sym := &Symbol{Name: "label"}
	e, err := foldAdd(exprSymbol(sym, 4), exprNumber(8))
	if err != nil {
		t.Fatalf("foldAdd: %v", err)
	}
	if e.Kind != ExprSymbolOffset || e.SymA != sym || e.Offset != 12 {
		t.Errorf("got %+v, want symbol+12", e)
	}
}

func TestFoldAddTwoSymbolsErrors(t *testing.T) {
	a := exprSymbol(&Symbol{Name: "a"}, 0)
	b := exprSymbol(&Symbol{Name: "b"}, 0)
	if _, err := foldAdd(a, b); err == nil {
		t.Fatal("expected an error adding two symbols")
	}
}

func TestFoldSubTwoSimpleSymbolsYieldsDiff(t *testing.T) {
	a := exprSymbol(&Symbol{Name: "a"}, 0)
	b := exprSymbol(&Symbol{Name: "b"}, 0)
	e, err := foldSub(a, b)
	if err != nil {
		t.Fatalf("foldSub: %v", err)
	}
	if e.Kind != ExprDiff || e.SymA != a.SymA || e.SymB != b.SymA {
		t.Errorf("got %+v, want ExprDiff(a, b)", e)
	}
}

func TestFoldSubSymbolWithOffsetRejectsDiff(t *testing.T) {
	a := exprSymbol(&Symbol{Name: "a"}, 1)
	b := exprSymbol(&Symbol{Name: "b"}, 0)
	if _, err := foldSub(a, b); err == nil {
		t.Fatal("expected an error: only bare symbols may be subtracted")
	}
}

func TestFoldMulRejectsSymbolAndDivRejectsZero(t *testing.T) {
	sym := exprSymbol(&Symbol{Name: "a"}, 0)
	num := exprNumber(2)
	if _, err := foldMul(sym, num); err == nil {
		t.Error("expected an error multiplying a symbol")
	}
	if _, err := foldDiv(num, exprNumber(0)); err == nil {
		t.Error("expected an error dividing by zero")
	}
}

func TestEvaluateSymbolOffsetRequiresDefinition(t *testing.T) {
	sym := &Symbol{Name: "undef"}
	e := exprSymbol(sym, 4)
	if _, err := e.Evaluate(); err == nil {
		t.Fatal("expected an error evaluating an undefined symbol")
	}

	sec := &Section{Name: ".text"}
	sym.Defined = true
	sym.Section = sec
	sym.Value = 100
	v, err := e.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v != 104 {
		t.Errorf("Evaluate() = %d, want 104", v)
	}
}

func TestEvaluateDiffSameSection(t *testing.T) {
	sec := &Section{Name: ".text"}
	a := &Symbol{Name: "a", Defined: true, Section: sec, Value: 20}
	b := &Symbol{Name: "b", Defined: true, Section: sec, Value: 8}
	e := exprDiff(a, b)
	v, err := e.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v != 12 {
		t.Errorf("Evaluate() = %d, want 12", v)
	}
}

func TestEvaluateDiffDifferentSectionsErrors(t *testing.T) {
	textSec := &Section{Name: ".text"}
	dataSec := &Section{Name: ".data"}
	a := &Symbol{Name: "a", Defined: true, Section: textSec, Value: 20}
	b := &Symbol{Name: "b", Defined: true, Section: dataSec, Value: 8}
	e := exprDiff(a, b)
	if _, err := e.Evaluate(); err == nil {
		t.Fatal("expected an error: symbols defined in different sections")
	}
}

func TestAsSymbolRef(t *testing.T) {
	sym := &Symbol{Name: "label"}
	e := exprSymbol(sym, 4)
	gotSym, addend, ok := e.AsSymbolRef()
	if !ok || gotSym != sym || addend != 4 {
		t.Errorf("AsSymbolRef() = (%v, %d, %v), want (%v, 4, true)", gotSym, addend, ok, sym)
	}

	if _, _, ok := exprNumber(3).AsSymbolRef(); ok {
		t.Error("AsSymbolRef() on a plain number should report ok=false")
	}
}
