package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/constants"
)

func intPtr(v int) *int { return &v }

func durationPtr(d time.Duration) *time.Duration { return &d }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestGetFetchSettings(t *testing.T) {
	t.Run("returns defaults when no overrides", func(t *testing.T) {
		cfg := &Config{}
		got := cfg.GetFetchSettings()
		want := FetchSettings{ItemCap: 200, Concurrency: 8, Timeout: 30 * time.Second}
		if got != want {
			t.Errorf("GetFetchSettings() = %+v, want %+v", got, want)
		}
	})

	t.Run("applies overrides", func(t *testing.T) {
		cfg := &Config{Fetch: &FetchOverrides{
			ItemCap: intPtr(50),
			Timeout: durationPtr(5 * time.Second),
		}}
		got := cfg.GetFetchSettings()
		if got.ItemCap != 50 {
			t.Errorf("ItemCap = %d, want 50", got.ItemCap)
		}
		if got.Concurrency != 8 {
			t.Errorf("Concurrency = %d, want default 8", got.Concurrency)
		}
		if got.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", got.Timeout)
		}
	})

	t.Run("ignores non-positive overrides", func(t *testing.T) {
		cfg := &Config{Fetch: &FetchOverrides{ItemCap: intPtr(0), Concurrency: intPtr(-1)}}
		got := cfg.GetFetchSettings()
		if got.ItemCap != 200 || got.Concurrency != 8 {
			t.Errorf("GetFetchSettings() = %+v, want defaults", got)
		}
	})
}

func TestGetResolvedStatuses(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetResolvedStatuses(); !reflect.DeepEqual(got, constants.DefaultResolvedStatuses) {
		t.Errorf("GetResolvedStatuses() = %v, want defaults", got)
	}

	// Callers may modify the result without touching the defaults.
	got := cfg.GetResolvedStatuses()
	got[0] = "changed"
	if constants.DefaultResolvedStatuses[0] == "changed" {
		t.Error("defaults were modified through the returned slice")
	}

	cfg.Jira = &JiraConfig{ResolvedStatuses: []string{"Shipped"}}
	if got := cfg.GetResolvedStatuses(); !reflect.DeepEqual(got, []string{"Shipped"}) {
		t.Errorf("GetResolvedStatuses() = %v, want [Shipped]", got)
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "config.yaml")
	local := filepath.Join(dir, ".devpulse.yaml")

	t.Run("missing files give defaults", func(t *testing.T) {
		cfg, err := LoadFrom(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "nope-local.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.DefaultFormat != "table" {
			t.Errorf("DefaultFormat = %q, want table", cfg.DefaultFormat)
		}
		if cfg.Fetch != nil || cfg.Jira != nil {
			t.Errorf("expected empty sections, got %+v", cfg)
		}
	})

	t.Run("local overrides global", func(t *testing.T) {
		writeFile(t, global, `default_format: json
fetch:
  item_cap: 100
  timeout: 45s
jira:
  base_url: https://acme.atlassian.net
  resolved_statuses: [Done]
`)
		writeFile(t, local, `fetch:
  concurrency: 2
jira:
  resolved_statuses: [Shipped, Done]
confluence:
  space_key: ENG
`)
		cfg, err := LoadFrom(global, local)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.DefaultFormat != "json" {
			t.Errorf("DefaultFormat = %q, want json", cfg.DefaultFormat)
		}
		settings := cfg.GetFetchSettings()
		want := FetchSettings{ItemCap: 100, Concurrency: 2, Timeout: 45 * time.Second}
		if settings != want {
			t.Errorf("GetFetchSettings() = %+v, want %+v", settings, want)
		}
		if cfg.Jira.BaseURL != "https://acme.atlassian.net" {
			t.Errorf("Jira.BaseURL = %q", cfg.Jira.BaseURL)
		}
		if got := cfg.GetResolvedStatuses(); !reflect.DeepEqual(got, []string{"Shipped", "Done"}) {
			t.Errorf("GetResolvedStatuses() = %v", got)
		}
		if cfg.GetConfluenceSpace() != "ENG" {
			t.Errorf("GetConfluenceSpace() = %q, want ENG", cfg.GetConfluenceSpace())
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		writeFile(t, local, "fetch: [unclosed")
		if _, err := LoadFrom(global, local); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

func TestDefaultConfigYAML(t *testing.T) {
	out, err := DefaultConfig().ToYAML()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"item_cap: 200", "concurrency: 8", "timeout: 30s", "- Done"} {
		if !strings.Contains(out, want) {
			t.Errorf("default config YAML missing %q:\n%s", want, out)
		}
	}

	// The template must load back to the same settings.
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, out)
	cfg, err := LoadFrom(path, filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GetFetchSettings(); got != DefaultFetchSettings() {
		t.Errorf("round-tripped settings = %+v, want defaults", got)
	}
}

func TestCredentialsRequire(t *testing.T) {
	tests := []struct {
		name        string
		creds       Credentials
		integration string
		missing     []string
	}{
		{
			name:        "github missing token",
			integration: constants.IntegrationGitHub,
			missing:     []string{"GITHUB_TOKEN"},
		},
		{
			name:        "github configured",
			creds:       Credentials{GitHubToken: "ghp_x"},
			integration: constants.IntegrationGitHub,
		},
		{
			name:        "jira basic needs email and token",
			creds:       Credentials{JiraBaseURL: "https://acme.atlassian.net"},
			integration: constants.IntegrationJira,
			missing:     []string{"JIRA_EMAIL", "JIRA_API_TOKEN"},
		},
		{
			name:        "jira bearer is enough",
			creds:       Credentials{JiraBaseURL: "https://jira.internal", JiraBearerToken: "pat"},
			integration: constants.IntegrationJira,
		},
		{
			name:        "confluence missing everything",
			integration: constants.IntegrationConfluence,
			missing:     []string{"CONFLUENCE_BASE_URL", "CONFLUENCE_EMAIL", "CONFLUENCE_API_TOKEN"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.creds.Missing(tt.integration)
			if !reflect.DeepEqual(got, tt.missing) {
				t.Errorf("Missing() = %v, want %v", got, tt.missing)
			}

			err := tt.creds.Require(tt.integration)
			if len(tt.missing) == 0 {
				if err != nil {
					t.Errorf("Require() = %v, want nil", err)
				}
				return
			}
			if apperr.KindOf(err) != apperr.KindConfiguration {
				t.Errorf("Require() kind = %v, want configuration", apperr.KindOf(err))
			}
			for _, name := range tt.missing {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("Require() = %q, want it to name %s", err, name)
				}
			}
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "from-env")
	t.Setenv("CONFLUENCE_EMAIL", "")
	os.Unsetenv("CONFLUENCE_EMAIL")

	envFile := filepath.Join(t.TempDir(), ".env")
	writeFile(t, envFile, "GITHUB_TOKEN=from-file\nCONFLUENCE_EMAIL=alice@acme.io\n")

	creds, err := LoadCredentials(envFile, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if creds.GitHubToken != "from-env" {
		t.Errorf("GitHubToken = %q, want the environment to win", creds.GitHubToken)
	}
	if creds.ConfluenceEmail != "alice@acme.io" {
		t.Errorf("ConfluenceEmail = %q, want value from .env", creds.ConfluenceEmail)
	}
}

func TestCredentialsWithConfig(t *testing.T) {
	cfg := &Config{
		Jira:       &JiraConfig{BaseURL: "https://from-config"},
		Confluence: &ConfluenceConfig{BaseURL: "https://wiki-from-config"},
	}
	creds := Credentials{JiraBaseURL: "https://from-env"}.WithConfig(cfg)
	if creds.JiraBaseURL != "https://from-env" {
		t.Errorf("JiraBaseURL = %q, want environment value", creds.JiraBaseURL)
	}
	if creds.ConfluenceBaseURL != "https://wiki-from-config" {
		t.Errorf("ConfluenceBaseURL = %q, want config value", creds.ConfluenceBaseURL)
	}
}

func TestCurrent(t *testing.T) {
	first := &Config{DefaultFormat: "table"}
	c := NewCurrent(first)
	if c.Load() != first {
		t.Fatal("Load() did not return the initial config")
	}
	second := &Config{DefaultFormat: "json"}
	c.Store(second)
	if c.Load() != second {
		t.Error("Load() did not return the stored config")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "config.yaml")
	writeFile(t, global, "default_format: table\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, global, filepath.Join(dir, "missing.yaml"), func(cfg *Config) { changes <- cfg })
	}()

	// Keep writing until the watcher is registered and reports a reload.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case cfg := <-changes:
			// A reload may observe a partially written file.
			if cfg.DefaultFormat != "json" {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch() = %v", err)
			}
			return
		case <-ticker.C:
			writeFile(t, global, "default_format: json\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
