package message

import (
	"fmt"
	"go/token"
	"regexp"

	"github.com/logrusorgru/aurora"
	log "github.com/sirupsen/logrus"
)

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

type Message struct {
	Severity Severity
	Text     string
	Pos      token.Position
}

func (m Message) String() string {
	if m.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", m.Pos, m.Severity, m.Text)
	}
	return fmt.Sprintf("%s: %s", m.Severity, m.Text)
}

// Sink receives compile-time messages.
type Sink interface {
	Report(Message)
}

// Queue keeps messages in the order they were reported.
type Queue struct {
	msgs []Message
}

func (q *Queue) Report(m Message) {
	q.msgs = append(q.msgs, m)
}

func (q *Queue) Messages() []Message {
	return q.msgs
}

func (q *Queue) Len() int {
	return len(q.msgs)
}

func (q *Queue) HasErrors() bool {
	for _, m := range q.msgs {
		if m.Severity == Error {
			return true
		}
	}
	return false
}

var colorCodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Console prints messages through the logger and forwards them to Next.
type Console struct {
	Next Sink
	au   aurora.Aurora
}

func NewConsole(colors bool, next Sink) *Console {
	return &Console{Next: next, au: aurora.NewAurora(colors)}
}

func (c *Console) Report(m Message) {
	var sev aurora.Value
	if m.Severity == Error {
		sev = c.au.Red(m.Severity)
	} else {
		sev = c.au.Yellow(m.Severity)
	}
	line := fmt.Sprint(sev, ": ", c.au.Bold(m.Text))
	if m.Pos.IsValid() {
		line = fmt.Sprint(c.au.Cyan(m.Pos), ": ", line)
	}
	if m.Severity == Error {
		log.Error(line)
	} else {
		log.Warn(line)
	}
	if c.Next != nil {
		c.Next.Report(m)
	}
}

// Plain strips terminal color codes from s.
func Plain(s string) string {
	return colorCodes.ReplaceAllString(s, "")
}
