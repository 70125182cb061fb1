package message

import (
	"go/token"
	"testing"

	"github.com/logrusorgru/aurora"
)

func TestConsoleForwards(t *testing.T) {
	var q Queue
	c := NewConsole(true, &q)
	c.Report(Message{Severity: Warning, Text: "w"})
	if q.HasErrors() {
		t.Error("queue with only warnings has errors")
	}
	c.Report(Message{Severity: Error, Text: "e", Pos: token.Position{Filename: "a.go", Line: 3, Column: 1}})
	if q.Len() != 2 || !q.HasErrors() {
		t.Fatalf("queue = %v, want two messages including an error", q.Messages())
	}
	if got, want := q.Messages()[1].String(), "a.go:3:1: error: e"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	for _, colored := range []string{
		"\x1b[31mwarning\x1b[0m",
		"\x1b[1;31mwarning\x1b[0m",
		"\x1b[1;4;38;5;208mwarning\x1b[m",
		aurora.NewAurora(true).Bold(aurora.Red("warning")).String(),
	} {
		if got := Plain(colored); got != "warning" {
			t.Errorf("Plain(%q) = %q", colored, got)
		}
	}
}
