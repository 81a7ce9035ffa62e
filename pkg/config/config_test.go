package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// clearEnv hides overrides the host environment may carry.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HF_API_KEY", "HUGGINGFACE_API_KEY", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), *cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log_level: debug
server:
  port: 9000
store:
  driver: sqlite
  path: /var/lib/router/pool.db
selection:
  max_failures: 5
  fallback_ids: ["a/one-Instruct", "b/two-Instruct"]
scheduler:
  hour: 6
  retry_interval: 10m
discovery:
  providers: ["Qwen"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.LogLevel = "debug"
	want.Server.Port = 9000
	want.Store.Driver = "sqlite"
	want.Store.Path = "/var/lib/router/pool.db"
	want.Selection.MaxFailures = 5
	want.Selection.FallbackIDs = []string{"a/one-Instruct", "b/two-Instruct"}
	want.Scheduler.Hour = 6
	want.Scheduler.RetryInterval = 10 * time.Minute
	want.Discovery.Providers = []string{"Qwen"}

	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: file\n")
	t.Setenv("ROUTER_STORE_DRIVER", "redis")
	t.Setenv("ROUTER_ORCHESTRATOR_ATTEMPT_TIMEOUT", "45s")
	t.Setenv("HF_API_KEY", "hf_secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg.Store.Driver)
	}
	if cfg.Orchestrator.AttemptTimeout != 45*time.Second {
		t.Errorf("attempt timeout = %v, want 45s", cfg.Orchestrator.AttemptTimeout)
	}
	if cfg.Generation.APIKey != "hf_secret" {
		t.Errorf("api key = %q", cfg.Generation.APIKey)
	}
}

func TestLoad_ExplicitKeyWinsOverProviderEnv(t *testing.T) {
	path := writeConfig(t, "generation:\n  api_key: from-file\n")
	t.Setenv("HUGGINGFACE_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.APIKey != "from-file" {
		t.Errorf("api key = %q, want from-file", cfg.Generation.APIKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("an explicitly named missing file should fail")
	}
	if _, err := Load(writeConfig(t, "scheduler:\n  hour: 25\n")); err == nil {
		t.Error("an invalid scheduler hour should fail")
	}
	if _, err := Load(writeConfig(t, "server: [not, a, map")); err == nil {
		t.Error("malformed yaml should fail")
	}
}

func TestServerConfig_Addr(t *testing.T) {
	if got := (ServerConfig{Host: "127.0.0.1", Port: 8080}).Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr = %q", got)
	}
}
