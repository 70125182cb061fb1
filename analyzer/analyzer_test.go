package analyzer

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"text/scanner"

	"github.com/o2lab/reweave/config"
	"github.com/rogpeppe/go-internal/testenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var parallel = flag.Int("cpu", 0, "max parallelism")

var tests = []string{
	"tracker",
	"reachable",
	"ints",
}

type posKey struct {
	file string
	line int
}

func TestWeave(t *testing.T) {
	testenv.MustHaveGoBuild(t)
	if *parallel == 0 {
		*parallel = runtime.GOMAXPROCS(0)
	}
	log.SetLevel(log.InfoLevel)
	log.SetOutput(bytes.NewBufferString(""))

	var (
		sem = semaphore.NewWeighted(int64(*parallel))
		ctx = context.Background()
		wg  = sync.WaitGroup{}
	)
	for _, name := range tests {
		if err := sem.Acquire(ctx, 1); err != nil {
			t.Fatalf("Failed to acquire semaphore: %v", err)
		}
		wg.Add(1)
		go func(name string) {
			defer sem.Release(1)
			defer wg.Done()
			checkDir(t, name)
		}(name)
	}
	wg.Wait()
}

func checkDir(t *testing.T, name string) {
	dir := filepath.Join("testdata", "src", name)
	want, err := loadTestData(dir)
	if err != nil {
		t.Errorf("%s: %v", name, err)
		return
	}
	cfg, err := config.DecodeYmlFile(filepath.Join(dir, "reweave.yml"))
	if err != nil {
		t.Errorf("%s: %v", name, err)
		return
	}
	out := make(map[token.Position][]string)
	a := NewAnalyzerConfig([]string{"./" + filepath.ToSlash(dir)}, cfg)
	a.SetTestOutput(out)
	if err := a.Run(); err != nil {
		t.Errorf("%s: %v", name, err)
		return
	}
	for _, msg := range checkOutput(want, out) {
		t.Errorf("%s: %s", name, msg)
	}
}

// checkOutput matches every recorded message against the expectations at
// its line and returns the mismatches.
func checkOutput(want map[posKey][]*regexp.Regexp, results map[token.Position][]string) []string {
	var errs []string
	checkMessage := func(posn token.Position, message string) {
		k := posKey{filepath.Base(posn.Filename), posn.Line}
		expects := want[k]
		var unmatched []string
		for i, exp := range expects {
			if exp.MatchString(message) {
				// matched: remove the expectation.
				expects[i] = expects[len(expects)-1]
				want[k] = expects[:len(expects)-1]
				return
			}
			unmatched = append(unmatched, fmt.Sprintf("%q", exp))
		}
		if unmatched == nil {
			errs = append(errs, fmt.Sprintf("%v: unexpected weave: %v", posn, message))
		} else {
			errs = append(errs, fmt.Sprintf("%v: %q does not match pattern %s", posn, message, strings.Join(unmatched, " or ")))
		}
	}
	for pos, messages := range results {
		for _, m := range messages {
			checkMessage(pos, m)
		}
	}
	var surplus []string
	for key, expects := range want {
		for _, exp := range expects {
			surplus = append(surplus, fmt.Sprintf("%s:%d: nothing was woven matching %q", key.file, key.line, exp))
		}
	}
	sort.Strings(surplus)
	return append(errs, surplus...)
}

func loadTestData(dir string) (map[posKey][]*regexp.Regexp, error) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	want := make(map[posKey][]*regexp.Regexp)
	for _, pkg := range pkgs {
		for _, f := range pkg.Files {
			for _, cgroup := range f.Comments {
				for _, c := range cgroup.List {
					text := strings.TrimPrefix(c.Text, "// want")
					if text == c.Text {
						continue
					}
					expects, err := parseExpectations(strings.TrimSpace(text))
					if err != nil {
						return nil, err
					}
					if expects != nil {
						pos := fset.Position(c.Pos())
						want[posKey{filepath.Base(pos.Filename), pos.Line}] = expects
					}
				}
			}
		}
	}
	return want, nil
}

// parseExpectations parses the content of a "// want ..." comment
// and returns the parsed regular expression for each comment group.
func parseExpectations(text string) ([]*regexp.Regexp, error) {
	var scanErr string
	sc := new(scanner.Scanner).Init(strings.NewReader(text))
	sc.Error = func(s *scanner.Scanner, msg string) {
		scanErr = msg // e.g. bad string escape
	}
	sc.Mode = scanner.ScanStrings | scanner.ScanRawStrings

	var expects []*regexp.Regexp
	for {
		tok := sc.Scan()
		switch tok {
		case scanner.String, scanner.RawString:
			pattern, _ := strconv.Unquote(sc.TokenText()) // can't fail
			rx, err := regexp.Compile(pattern)
			if err != nil {
				return nil, err
			}
			expects = append(expects, rx)
		case scanner.EOF:
			if scanErr != "" {
				return nil, fmt.Errorf("%s", scanErr)
			}
			return expects, nil
		default:
			return nil, fmt.Errorf("unexpected %s", scanner.TokenString(tok))
		}
	}
}

func TestParseExpectations(t *testing.T) {
	rxs, err := parseExpectations(`"before A.a" ` + "`after B\\.b`")
	if err != nil {
		t.Fatal(err)
	}
	if len(rxs) != 2 || rxs[1].String() != `after B\.b` {
		t.Errorf("parsed %v", rxs)
	}
	if _, err := parseExpectations("before"); err == nil {
		t.Error("bare word accepted")
	}
}

func TestCheckOutput(t *testing.T) {
	want := map[posKey][]*regexp.Regexp{
		{"main.go", 3}: {regexp.MustCompile("before A.a")},
		{"main.go", 5}: {regexp.MustCompile("after")},
	}
	got := map[token.Position][]string{
		{Filename: "/tmp/x/main.go", Line: 3}: {"before A.a"},
		{Filename: "/tmp/x/main.go", Line: 4}: {"around A.b"},
	}
	errs := checkOutput(want, got)
	if len(errs) != 2 {
		t.Fatalf("got %d mismatches, want 2: %q", len(errs), errs)
	}
	if !strings.Contains(errs[0], "unexpected weave: around A.b") || !strings.Contains(errs[1], `main.go:5: nothing was woven matching "after"`) {
		t.Errorf("mismatches = %q", errs)
	}
}
