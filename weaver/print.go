package weaver

import (
	"github.com/o2lab/reweave/aspectinfo"
	"github.com/o2lab/reweave/ir"
	log "github.com/sirupsen/logrus"
)

// PrintAdviceInfo logs the advice applications of every method in cl.
func PrintAdviceInfo(info *aspectinfo.Info, cl *ir.Class) {
	for _, m := range cl.Methods {
		l := info.AdviceList(m)
		if l.IsEmpty() {
			continue
		}
		log.Infof("advice for %s:", m)
		for _, appl := range l.AllAdvice() {
			log.Infof("  %s", appl)
		}
	}
}
