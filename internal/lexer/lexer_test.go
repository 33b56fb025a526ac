package lexer

import "testing"

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{"simple statement", `TEXT = "a"`, []TokenType{IDENT, EQUALS, STRING, EOF}},
		{"arrow and capture", `w = ANY -> ADD TO ROOT.results[]`,
			[]TokenType{IDENT, EQUALS, IDENT, ARROW, IDENT, IDENT, IDENT, DOT, IDENT, LBRACKET, RBRACKET, EOF}},
		{"range", `1..n "x"`, []TokenType{NUMBER, DOTDOT, IDENT, STRING, EOF}},
		{"named key segment", `k[v]`, []TokenType{IDENT, LBRACKET, IDENT, RBRACKET, EOF}},
		{"statement separator", "a = \"x\"\nb = \"y\"", []TokenType{IDENT, EQUALS, STRING, NEWLINE, IDENT, EQUALS, STRING, EOF}},
		{"semicolon separator", `a = "x"; b = "y"`, []TokenType{IDENT, EQUALS, STRING, SEMI, IDENT, EQUALS, STRING, EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := New(tt.input).Tokenize()
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}
			if len(toks) != len(tt.want) {
				t.Fatalf("got %d tokens, want %d: %v", len(toks), len(tt.want), toks)
			}
			for i, want := range tt.want {
				if toks[i].Type != want {
					t.Errorf("token %d: got %s, want %s", i, toks[i].Type, want)
				}
			}
		})
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := New(`"a\"b\\c"`).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if toks[0].Type != STRING || toks[0].Value != `a"b\c` {
		t.Fatalf("got %+v, want unescaped string literal", toks[0])
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := New(`"abc`).Tokenize()
	if err == nil {
		t.Fatal("expected an error for an unterminated string literal")
	}
}

func TestTokenizeNewlineInsideStringRejected(t *testing.T) {
	_, err := New("\"a\nb\"").Tokenize()
	if err == nil {
		t.Fatal("expected an error for a newline inside a string literal")
	}
}
