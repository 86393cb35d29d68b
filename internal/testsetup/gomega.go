package testsetup

import (
	"testing"

	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func WithGomega(t *testing.T) *gomega.GomegaWithT { return gomega.NewGomegaWithT(t) }

func ParallelWithGomega(t *testing.T) *gomega.GomegaWithT {
	t.Parallel()
	return gomega.NewGomegaWithT(t)
}

// NewLogger devuelve un entry silencioso y el hook para inspeccionar lo logueado.
func NewLogger() (*logrus.Entry, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l).WithField("component", "test"), hook
}

// Warnings cuenta las entradas de nivel warning capturadas por el hook.
func Warnings(hook *test.Hook) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			n++
		}
	}
	return n
}
