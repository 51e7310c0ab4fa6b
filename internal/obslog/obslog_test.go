package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultLoggerIsUsable(t *testing.T) {
	if L() == nil {
		t.Fatalf("global logger must never be nil")
	}
	L().Info("noop")
}

func TestInitWritesJSONFile(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	path := filepath.Join(t.TempDir(), "sub", "fog.log")
	if err := Init(Options{Level: "debug", Format: "json", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Debug("fog_test_line", zap.String("k", "v"))
	_ = L().Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"fog_test_line"`) || !strings.Contains(string(raw), `"k":"v"`) {
		t.Fatalf("unexpected log output: %s", raw)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if parseLevel("warn") != zapcore.WarnLevel {
		t.Fatalf("warn not parsed")
	}
	if parseLevel("loud") != zapcore.InfoLevel {
		t.Fatalf("unknown level should be info")
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "/tmp/x.log")
	o := OptionsFromEnv()
	if o.Level != "error" || o.File != "/tmp/x.log" || !o.Console {
		t.Fatalf("unexpected options %+v", o)
	}
}
