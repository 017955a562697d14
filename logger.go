package vcpu

import (
	"github.com/sirupsen/logrus"
)

// logger receives state-machine diagnostics: forced transitions to
// StateInvalid and per-processor slot faults. Defaults to the logrus
// standard logger.
var logger *logrus.Logger = logrus.StandardLogger()

// SetLogger replaces the package logger. Passing nil restores the logrus
// standard logger. Call it before any VCpu operations; it is not
// synchronized against them.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logger = l
}
