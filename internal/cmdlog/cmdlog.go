// Package cmdlog wraps a CLI command with its run/error counters and a
// closing log line.
package cmdlog

import (
	"time"

	"github.com/charmbracelet/log"

	"chronicler/internal/metrics"
)

func Run(logger *log.Logger, cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	took := time.Since(start).Round(time.Millisecond)
	if err != nil {
		metrics.IncCommandError(cmd)
		logger.Error(cmd+" failed", "err", err, "took", took)
	} else {
		logger.Info(cmd+" ok", "took", took)
	}
	return err
}
