package pipeline

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// runLog is the append-only line sink for per-site events. Callers
// serialize access; the pipeline holds its own mutex so site blocks
// never interleave.
type runLog struct {
	f      *os.File
	logger *zap.SugaredLogger
	failed bool
}

func openRunLog(path string, logger *zap.SugaredLogger) (*runLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log %s: %w", path, err)
	}
	return &runLog{f: f, logger: logger}, nil
}

func (l *runLog) WriteLine(line string) {
	if _, err := fmt.Fprintln(l.f, line); err != nil && !l.failed {
		l.failed = true
		l.logger.Errorf("run log write failed, events may be lost: %v", err)
	}
}

func (l *runLog) Close() error {
	return l.f.Close()
}
