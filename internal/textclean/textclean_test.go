package textclean

import (
	"errors"
	"strings"
	"testing"
)

func newEnglish(t *testing.T) *Preprocessor {
	t.Helper()
	p, err := New("english")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return p
}

func TestCleanStripsByline(t *testing.T) {
	t.Parallel()

	p := newEnglish(t)
	got := p.Clean("WASHINGTON (Reuters) - The bill passed.")
	if got != "bill passed" {
		t.Fatalf("unexpected clean result: %q", got)
	}
}

func TestCleanStripsEnDashByline(t *testing.T) {
	t.Parallel()

	p := newEnglish(t)
	got := p.Clean("NEW YORK (Reuters) – Markets rallied on Friday.")
	if got != "markets rallied friday" {
		t.Fatalf("unexpected clean result: %q", got)
	}
}

func TestCleanKeepsBylineLikeTextMidSentence(t *testing.T) {
	t.Parallel()

	p := newEnglish(t)
	got := p.Clean("Officials said WASHINGTON (Reuters) - reported it")
	if got != "officials said washington reuters reported" {
		t.Fatalf("unexpected clean result: %q", got)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	t.Parallel()

	p := newEnglish(t)
	inputs := []string{
		"WASHINGTON (Reuters) - The bill passed.",
		"ALIENS LAND IN NEW YORK! GOVERNMENT COVER UP!",
		"SHOCKING: Drinking coffee makes you live forever!",
		"  spaced   out\ttext\nwith 123 numbers  ",
		"",
		"the and of",
	}
	for _, in := range inputs {
		once := p.Clean(in)
		twice := p.Clean(once)
		if once != twice {
			t.Fatalf("clean not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCleanEmptyPassesThrough(t *testing.T) {
	t.Parallel()

	p := newEnglish(t)
	if got := p.Clean(""); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestNewDefaultsToEnglish(t *testing.T) {
	t.Parallel()

	p, err := New("")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if p.Language() != DefaultLanguage {
		t.Fatalf("unexpected language: %s", p.Language())
	}
}

func TestNewRejectsUnknownLanguage(t *testing.T) {
	t.Parallel()

	_, err := New("klingon")
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("expected ErrUnknownLanguage, got %v", err)
	}
	if !strings.Contains(err.Error(), "available: english") {
		t.Fatalf("error should list configurable languages: %v", err)
	}
}

func TestCleanSplitsOnUnicodeSpaces(t *testing.T) {
	t.Parallel()

	p := newEnglish(t)
	cases := []struct {
		in   string
		want string
	}{
		{in: "Senate\u00a0vote\u2003delayed", want: "senate vote delayed"},
		{in: "budget talks\u3000resume", want: "budget talks resume"},
		{in: "NEW\u00a0YORK (Reuters) - Markets rallied", want: "markets rallied"},
	}
	for _, tc := range cases {
		got := p.Clean(tc.in)
		if got != tc.want {
			t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if again := p.Clean(got); again != got {
			t.Fatalf("Clean not idempotent for %q: %q", tc.in, again)
		}
	}
}
