package cli

import (
	"reflect"
	"testing"
)

func TestSplitArgsSpaceDelimited(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{"cat data/words.txt\n", []string{"cat", "data/words.txt"}},
		{"cp -r data out\n", []string{"cp", "-r", "data", "out"}},
		{"quit", []string{"quit"}},
		{"ls\r\n", []string{"ls"}},
		// consecutive spaces produce empty tokens, one per extra space
		{"cat  a\n", []string{"cat", "", "a"}},
		{" ls\n", []string{"", "ls"}},
	}
	for _, tc := range cases {
		got := SplitArgs(tc.line)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitArgs(%q) = %#v, want %#v", tc.line, got, tc.want)
		}
	}
}

func TestSplitArgsTokenCount(t *testing.T) {
	// a line with k spaces and no leading/trailing spaces yields
	// exactly k+1 tokens, equal to the space-delimited substrings
	line := "stat a b c\n"
	got := SplitArgs(line)
	if len(got) != 4 {
		t.Fatalf("expected 4 tokens, got %d: %#v", len(got), got)
	}
	for i, want := range []string{"stat", "a", "b", "c"} {
		if got[i] != want {
			t.Errorf("token %d: got %q, want %q", i, got[i], want)
		}
	}
}

func TestTrimTrailing(t *testing.T) {
	cases := map[string]string{
		"quit \n": "quit",
		"quit":    "quit",
		"":        "",
		" \t\r\n": "",
		"cat\t":   "cat",
	}
	for in, want := range cases {
		if got := TrimTrailing(in); got != want {
			t.Errorf("TrimTrailing(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCommandToken(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"quit \n", "quit"},
		{"  cat a\n", "cat"},
		{"   \n", ""},
		{"\n", ""},
	}
	for _, tc := range cases {
		if got := commandToken(SplitArgs(tc.line)); got != tc.want {
			t.Errorf("commandToken(SplitArgs(%q)) = %q, want %q", tc.line, got, tc.want)
		}
	}
}
