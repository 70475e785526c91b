package pipeline

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunLogReportsWriteFailureOnce(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core).Sugar()

	l, err := openRunLog(filepath.Join(t.TempDir(), "run.log"), logger)
	if err != nil {
		t.Fatal(err)
	}

	// Closing the file makes every subsequent write fail.
	if err := l.f.Close(); err != nil {
		t.Fatal(err)
	}

	l.WriteLine("Site 0001 skipped")
	l.WriteLine("Site 0002 skipped")

	if logs.Len() != 1 {
		t.Errorf("write failure reported %d times, want once", logs.Len())
	}
}
