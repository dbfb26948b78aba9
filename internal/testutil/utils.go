package testutil

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestLogger returns a debug level logger whose output is only shown when
// the test fails.
func TestLogger(t *testing.T) *logrus.Logger {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		if t.Failed() {
			t.Log(buf.String())
		}
	})
	return logger
}
