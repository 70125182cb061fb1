package pointer

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
)

// SSAOracle answers points-to queries from a whole-program pointer analysis.
// Labels of the analysis are interned into object ids on first sight.
type SSAOracle struct {
	result *pointer.Result
	values map[Local]ssa.Value
	labels map[*pointer.Label]int
	cache  map[Local]*Set
}

func NewSSAOracle(result *pointer.Result, values map[Local]ssa.Value) *SSAOracle {
	return &SSAOracle{
		result: result,
		values: values,
		labels: make(map[*pointer.Label]int),
		cache:  make(map[Local]*Set),
	}
}

// AddQueries registers every pointer-like value in values with config.
func AddQueries(config *pointer.Config, values map[Local]ssa.Value) int {
	n := 0
	for local, v := range values {
		if !pointer.CanPoint(v.Type()) {
			log.Debugf("skip query for %s: %s cannot point", local, v.Type())
			continue
		}
		config.AddQuery(v)
		n++
	}
	return n
}

// ReachingObjects is unknown for locals without an ssa value and for
// values that were never queried, such as those that cannot point.
func (o *SSAOracle) ReachingObjects(v Local) (*Set, bool) {
	if s, ok := o.cache[v]; ok {
		return s, true
	}
	value, ok := o.values[v]
	if !ok {
		log.Debugf("no ssa value for local %s", v)
		return nil, false
	}
	ptr, ok := o.result.Queries[value]
	if !ok {
		log.Debugf("no points-to query for %s", v)
		return nil, false
	}
	s := &Set{}
	for _, label := range ptr.PointsTo().Labels() {
		id, ok := o.labels[label]
		if !ok {
			id = len(o.labels) + 1
			o.labels[label] = id
		}
		s.Insert(id)
	}
	log.Debugf("pts(%s) = %s", v, s)
	o.cache[v] = s
	return s, true
}
