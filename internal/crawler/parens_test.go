package crawler

import "testing"

func TestParenSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "none", in: "plain text", want: 0},
		{name: "one", in: "a (b) c", want: 1},
		{name: "nested", in: "a (b (c (d))) e", want: 3},
		{name: "siblings", in: "(a) (b)", want: 2},
		{name: "unmatched close", in: "a) (b", want: 0},
		{name: "unmatched open", in: "((a)", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := len(parenSpans(tt.in)); got != tt.want {
				t.Errorf("parenSpans(%q) = %d spans, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnclosedAt(t *testing.T) {
	t.Parallel()

	s := "ab (cd (ef) gh) ij"

	tests := []struct {
		pos  int
		want bool
	}{
		{pos: 0, want: false},
		{pos: 3, want: false}, // the '(' itself
		{pos: 4, want: true},
		{pos: 8, want: true},
		{pos: 12, want: true},
		{pos: 16, want: false},
		{pos: -1, want: false},
		{pos: 100, want: false},
	}

	for _, tt := range tests {
		if got := enclosedAt(s, tt.pos); got != tt.want {
			t.Errorf("enclosedAt(%q, %d) = %v, want %v", s, tt.pos, got, tt.want)
		}
	}
}

func TestEnclosedText(t *testing.T) {
	t.Parallel()

	s := "Paris (French (Parisien)) is the capital of France"

	if !enclosedText(s, "Parisien") {
		t.Error("expected Parisien to be enclosed")
	}
	if !enclosedText(s, "French") {
		t.Error("expected French to be enclosed")
	}
	if enclosedText(s, "capital") {
		t.Error("capital is not enclosed")
	}
	if enclosedText(s, "") {
		t.Error("empty text is never enclosed")
	}
}
