// Package config reads reweave.yml: which packages to leave alone, the
// weaver options, the reweaving passes to run and the aspects to weave.
package config

import (
	"fmt"
	"io/ioutil"

	"github.com/o2lab/reweave/weaver"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// ExcludedPkgs are never woven. A package is excluded when the first
// element of its import path is listed.
var ExcludedPkgs = []string{
	"runtime",
	"internal",
	"race",
	"unsafe",
	"debug",
	"os",
	"crypto",
	"regexp",
	"strconv",
	"bytes",
	"math",
	"unicode",
	"encoding",
	"time",
	"reflect",
	"sort",
}

// MustAlias is the name of the must-alias reweaving pass.
const MustAlias = "mustalias"

type Config struct {
	ExcludePkgs []string       `yaml:"excludePkgs"`
	Options     weaver.Options `yaml:"options"`
	// ReachableOnly restricts advice to functions reachable from main in
	// the call graph of the pointer analysis.
	ReachableOnly bool         `yaml:"reachableOnly"`
	Reweaving     []string     `yaml:"reweaving"`
	Aspects       []AspectSpec `yaml:"aspects"`
}

type AspectSpec struct {
	Name string `yaml:"name"`
	// Precedes lists the aspects whose advice runs inside this one's.
	Precedes []string     `yaml:"precedes"`
	Advice   []AdviceSpec `yaml:"advice"`
}

type AdviceSpec struct {
	Name string `yaml:"name"`
	// Kind is one of before, after, around, warning or error.
	Kind     string       `yaml:"kind"`
	Message  string       `yaml:"message"`
	Body     []string     `yaml:"body"`
	Pointcut Pointcut     `yaml:"pointcut"`
	Residue  *ResidueSpec `yaml:"residue"`
}

// Pointcut patterns are globs over qualified function names such as
// "fmt.Println" or "main.(*T).Close".
type Pointcut struct {
	Call            string `yaml:"call"`
	Execution       string `yaml:"execution"`
	AdviceExecution string `yaml:"adviceexecution"`
	// Within restricts call pointcuts to matching callers.
	Within string `yaml:"within"`
}

// ResidueSpec describes the dynamic check left at a join point. Exactly
// one field is set.
type ResidueSpec struct {
	Always bool          `yaml:"always"`
	Never  bool          `yaml:"never"`
	Test   string        `yaml:"test"`
	And    []ResidueSpec `yaml:"and"`
	Or     []ResidueSpec `yaml:"or"`
	Not    *ResidueSpec  `yaml:"not"`
	Bind   *BindSpec     `yaml:"bind"`
}

// BindSpec binds a tracematch variable to an argument of the join point.
type BindSpec struct {
	Var      string `yaml:"var"`
	Arg      int    `yaml:"arg"`
	Negative bool   `yaml:"negative"`
}

func Default() *Config {
	return &Config{
		ExcludePkgs: append([]string(nil), ExcludedPkgs...),
		Options:     weaver.DefaultOptions(),
	}
}

// DecodeYmlFile reads the configuration at path on top of Default.
func DecodeYmlFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %v", err)
	}
	cfg, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	log.Debugf("config %s: %d aspects, passes %v", path, len(cfg.Aspects), cfg.Reweaving)
	return cfg, nil
}

func Decode(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("yml decode error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	for _, p := range c.Reweaving {
		if p != MustAlias {
			return fmt.Errorf("unknown reweaving pass %q", p)
		}
	}
	names := make(map[string]bool)
	for _, a := range c.Aspects {
		if a.Name == "" {
			return fmt.Errorf("aspect without a name")
		}
		if names[a.Name] {
			return fmt.Errorf("aspect %s declared twice", a.Name)
		}
		names[a.Name] = true
	}
	for _, a := range c.Aspects {
		for _, other := range a.Precedes {
			if !names[other] {
				return fmt.Errorf("aspect %s precedes unknown aspect %s", a.Name, other)
			}
		}
		for _, adv := range a.Advice {
			if err := adv.validate(); err != nil {
				return fmt.Errorf("%s.%s: %v", a.Name, adv.Name, err)
			}
		}
	}
	return nil
}

func (a *AdviceSpec) validate() error {
	switch a.Kind {
	case "before", "after", "around":
	case "warning", "error":
		if a.Message == "" {
			return fmt.Errorf("declare %s without a message", a.Kind)
		}
	default:
		return fmt.Errorf("unknown advice kind %q", a.Kind)
	}
	n := 0
	for _, p := range []string{a.Pointcut.Call, a.Pointcut.Execution, a.Pointcut.AdviceExecution} {
		if p != "" {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("pointcut needs exactly one of call, execution and adviceexecution")
	}
	if a.Pointcut.Within != "" && a.Pointcut.Call == "" {
		return fmt.Errorf("within only applies to call pointcuts")
	}
	if a.Residue != nil {
		return a.Residue.validate()
	}
	return nil
}

func (r *ResidueSpec) validate() error {
	n := 0
	if r.Always {
		n++
	}
	if r.Never {
		n++
	}
	if r.Test != "" {
		n++
	}
	if len(r.And) > 0 {
		n++
	}
	if len(r.Or) > 0 {
		n++
	}
	if r.Not != nil {
		n++
	}
	if r.Bind != nil {
		n++
		if r.Bind.Var == "" || r.Bind.Arg < 0 {
			return fmt.Errorf("bind needs a variable and an argument index")
		}
	}
	if n != 1 {
		return fmt.Errorf("residue must set exactly one of always, never, test, and, or, not and bind")
	}
	for i := range r.And {
		if err := r.And[i].validate(); err != nil {
			return err
		}
	}
	for i := range r.Or {
		if err := r.Or[i].validate(); err != nil {
			return err
		}
	}
	if r.Not != nil {
		return r.Not.validate()
	}
	return nil
}
