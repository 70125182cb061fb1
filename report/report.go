// Package report renders the outcome of a weave as markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	"github.com/o2lab/reweave/message"
	"github.com/o2lab/reweave/residue"
	"github.com/o2lab/reweave/weaver"
	log "github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type Report struct {
	Title    string
	Weaver   *weaver.Weaver
	Messages []message.Message
}

func (r *Report) info() *aspectinfo.Info {
	return r.Weaver.Context().Info
}

func (r *Report) prog() *ir.Program {
	return r.Weaver.Context().Program
}

func cell(s string) string {
	return strings.Replace(s, "|", `\|`, -1)
}

// Markdown lists messages, every advice application with its final
// residue and the bodies of the methods woven in the last round.
func (r *Report) Markdown() []byte {
	var b bytes.Buffer
	title := r.Title
	if title == "" {
		title = "Weaving report"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	state := r.Weaver.Context().State
	appls := r.info().Applications()
	discharged := 0
	for _, p := range appls {
		if residue.NeverMatches(p.Appl.Residue()) {
			discharged++
		}
	}
	fmt.Fprintf(&b, "%d weave rounds, %d advice applications, %d discharged statically, %d methods woven.\n\n",
		r.Weaver.Rounds(), len(appls), discharged, state.NumWoven())

	if len(r.Messages) > 0 {
		b.WriteString("## Messages\n\n")
		for _, m := range r.Messages {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}

	if len(appls) > 0 {
		b.WriteString("## Advice\n\n")
		b.WriteString("| Method | Join point | Advice | Kind | Residue |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, p := range appls {
			fmt.Fprintf(&b, "| `%s` | %s | `%s` | %s | `%s` |\n",
				cell(p.Method.String()), p.Appl.Kind, cell(p.Appl.Advice.String()), p.Appl.Advice.Kind, cell(p.Appl.Residue().String()))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Woven methods\n\n")
	for _, cl := range r.info().WeavableClasses() {
		for _, m := range cl.Methods {
			if !m.IsConcrete() || !state.IsWoven(m) {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n```\n", m)
			for _, line := range r.prog().Text(m.Body) {
				b.WriteString(line)
				b.WriteString("\n")
			}
			b.WriteString("```\n\n")
		}
	}
	return b.Bytes()
}

// HTML renders the markdown report with tables enabled.
func (r *Report) HTML() ([]byte, error) {
	var b bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := md.Convert(r.Markdown(), &b); err != nil {
		return nil, fmt.Errorf("rendering report: %v", err)
	}
	return b.Bytes(), nil
}

// WriteFile writes HTML if path ends in .html and markdown otherwise.
func (r *Report) WriteFile(path string) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		html, err := r.HTML()
		if err != nil {
			return err
		}
		data = html
	default:
		data = r.Markdown()
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return err
	}
	log.Infof("report written to %s", path)
	return nil
}
