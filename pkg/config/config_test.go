package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func loadArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) failed: %v", args, err)
	}
	return Load(fs)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "flow-editor.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadArgs(t)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := &Config{
		Port:     8080,
		IDs:      "counter",
		Log:      Log{Format: "compact"},
		Viewport: Viewport{Width: 1280, Height: 720},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Unexpected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
port = 9000
ids = "uuid"
seed = "graph.toml"

[viewport]
width = 800
height = 600

[log]
format = "json"
`)

	t.Setenv("FLOW_EDITOR_PORT", "9100")
	t.Setenv("FLOW_EDITOR_VIEWPORT_HEIGHT", "650")

	cfg, err := loadArgs(t, "--config", path, "--viewport-height", "500", "-vv")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9100 {
		t.Errorf("Expected env to override file port, got %d", cfg.Port)
	}
	if cfg.IDs != "uuid" || cfg.Seed != "graph.toml" || cfg.Log.Format != "json" {
		t.Errorf("Expected file values, got %+v", cfg)
	}
	if cfg.Viewport.Width != 800 {
		t.Errorf("Expected file viewport width 800, got %g", cfg.Viewport.Width)
	}
	if cfg.Viewport.Height != 500 {
		t.Errorf("Expected flag to override env viewport height, got %g", cfg.Viewport.Height)
	}
	if cfg.VerboseCnt != 2 {
		t.Errorf("Expected verbose count 2, got %d", cfg.VerboseCnt)
	}

	cfg, err = loadArgs(t, "--config", path, "--port", "9200")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9200 {
		t.Errorf("Expected flag port 9200, got %d", cfg.Port)
	}
}

func TestLoadNestedEnv(t *testing.T) {
	t.Setenv("FLOW_EDITOR_LOG_FORMAT", "json")

	cfg, err := loadArgs(t)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected log format json, got %s", cfg.Log.Format)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown id strategy", []string{"--ids", "sequence"}, "unknown id strategy"},
		{"unknown log format", []string{"--log-format", "xml"}, "unknown log format"},
		{"bad viewport", []string{"--viewport-width", "0"}, "invalid viewport"},
		{"infinite viewport", []string{"--viewport-height", "+Inf"}, "invalid viewport"},
		{"NaN viewport", []string{"--viewport-width", "NaN"}, "invalid viewport"},
		{"bad port", []string{"--port", "70000"}, "out of range"},
		{"watch without seed", []string{"--watch"}, "--watch needs a seed file"},
		{"missing config file", []string{"--config", "/nonexistent/flow-editor.toml"}, "failed to load config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadArgs(t, tt.args...)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDefaultFile(t *testing.T) {
	t.Run("missing is ignored", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := loadArgs(t)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Port != 8080 {
			t.Errorf("Expected default port 8080, got %d", cfg.Port)
		}
	})

	t.Run("present is loaded", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("port = 9100\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := loadArgs(t)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Port != 9100 {
			t.Errorf("Expected port 9100 from %s, got %d", DefaultFile, cfg.Port)
		}
	})

	t.Run("malformed is reported", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("port = [unterminated\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := loadArgs(t)
		if err == nil || !strings.Contains(err.Error(), "failed to load config file") {
			t.Errorf("Expected load error for malformed %s, got %v", DefaultFile, err)
		}
	})
}
