package main

import "testing"

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lex := NewLexer("test.s", src)
	var toks []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == TOKEN_EOF {
			return toks
		}
	}
}

func TestLexerBasicInstruction(t *testing.T) {
	toks := lexAll(t, "movq $1, %rax\n")
	want := []TokenType{TOKEN_IDENT, TOKEN_IMMEDIATE, TOKEN_NUMBER, TOKEN_COMMA, TOKEN_REGISTER, TOKEN_NEWLINE, TOKEN_EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got type %d, want %d (%+v)", i, toks[i].Type, w, toks[i])
		}
	}
	if toks[4].Value != "%rax" {
		t.Errorf("register token value = %q, want %%rax", toks[4].Value)
	}
}

func TestLexerHexAndOctalNumbers(t *testing.T) {
	toks := lexAll(t, "0x1f 017 42")
	for i, want := range []string{"0x1f", "017", "42"} {
		if toks[i].Type != TOKEN_NUMBER || toks[i].Value != want {
			t.Errorf("token %d = %+v, want NUMBER %q", i, toks[i], want)
		}
	}
}

func TestLexerDotVersusDirective(t *testing.T) {
	toks := lexAll(t, ". .text")
	if toks[0].Type != TOKEN_DOT {
		t.Errorf("first token = %+v, want TOKEN_DOT", toks[0])
	}
	if toks[1].Type != TOKEN_DIRECTIVE || toks[1].Value != ".text" {
		t.Errorf("second token = %+v, want TOKEN_DIRECTIVE .text", toks[1])
	}
}

func TestLexerCommentsAreSkipped(t *testing.T) {
	toks := lexAll(t, "movq %rax, %rbx # a comment\n// another\nnop")
	var idents []string
	for _, tok := range toks {
		if tok.Type == TOKEN_IDENT {
			idents = append(idents, tok.Value)
		}
	}
	if len(idents) != 2 || idents[0] != "movq" || idents[1] != "nop" {
		t.Errorf("idents = %v, want [movq nop]", idents)
	}
}

func TestLexerStringEscapes(t *testing.T) {
	toks := lexAll(t, `"hi\n\0101"`)
	if toks[0].Type != TOKEN_STRING {
		t.Fatalf("token = %+v, want STRING", toks[0])
	}
	// \010 is a 3-digit octal escape (value 8); the trailing "1" is a
	// literal character, not part of the escape.
	want := "hi\n" + string(rune(8)) + "1"
	if toks[0].Value != want {
		t.Errorf("string value = %q, want %q", toks[0].Value, want)
	}
}

func TestLexerUnterminatedStringErrors(t *testing.T) {
	lex := NewLexer("test.s", `"abc`)
	if _, err := lex.Next(); err == nil {
		t.Fatal("expected an error for an unterminated string")
	}
}

func TestLexerMemoryOperandPunctuation(t *testing.T) {
	toks := lexAll(t, "-8(%rbp,%rax,4)")
	want := []TokenType{TOKEN_MINUS, TOKEN_NUMBER, TOKEN_LPAREN, TOKEN_REGISTER, TOKEN_COMMA,
		TOKEN_REGISTER, TOKEN_COMMA, TOKEN_NUMBER, TOKEN_RPAREN, TOKEN_EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %+v, want type %d", i, toks[i], w)
		}
	}
}
