package logger

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesFile(t *testing.T) {
	root := t.TempDir()
	log, err := New(root, "test", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	log.Infow("hello", "k", 1)
	_ = log.Sync()

	matches, _ := filepath.Glob(filepath.Join(root, "logs", "test-*.log"))
	if len(matches) != 1 {
		t.Fatalf("want one log file, got %v", matches)
	}
	raw, _ := os.ReadFile(matches[0])
	if len(raw) == 0 {
		t.Fatalf("log file empty")
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("ADEPT_LOG_LEVEL", "debug")
	if got := levelFromEnv(); got != zapcore.DebugLevel {
		t.Fatalf("level = %v", got)
	}
	t.Setenv("ADEPT_LOG_LEVEL", "bogus")
	if got := levelFromEnv(); got != zapcore.InfoLevel {
		t.Fatalf("bogus level = %v", got)
	}
}
