package discord

import (
	"time"

	"github.com/sirupsen/logrus"
)

// step mide cuanto tarda un handler; se usa con defer step(log, "x")().
func step(log *logrus.Entry, label string) func() {
	start := time.Now()
	return func() { log.WithField("dur", time.Since(start)).Debug("[trace] " + label) }
}
