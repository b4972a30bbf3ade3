package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

// isolate runs the test from an empty directory so no stray .env is loaded
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{
		"BACKDROP_ADDR", "BACKDROP_OUTPUT_DIR", "BACKDROP_STATIC_DIR", "BACKDROP_INTERVAL",
		"BACKDROP_PRELOAD_LEAD", "BACKDROP_FADE", "BACKDROP_POOL_SIZE",
		"BACKDROP_MAX_MEDIA_BYTES", "BACKDROP_PLAYLIST",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestNewAppConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := NewAppConfig(zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppConfig failed: %v", err)
	}

	if cfg.Addr() != defaultAddr {
		t.Errorf("expected addr %s, got %s", defaultAddr, cfg.Addr())
	}
	if cfg.OutputDir() != defaultOutputDir {
		t.Errorf("expected output dir %s, got %s", defaultOutputDir, cfg.OutputDir())
	}
	if cfg.StaticDir() != "" {
		t.Errorf("expected no static dir, got %s", cfg.StaticDir())
	}
	if cfg.Interval() != 20*time.Second || cfg.PreloadLead() != 2*time.Second || cfg.FadeDuration() != 1500*time.Millisecond {
		t.Errorf("unexpected timing: %v/%v/%v", cfg.Interval(), cfg.PreloadLead(), cfg.FadeDuration())
	}
	if cfg.PoolSize() != 2 {
		t.Errorf("expected pool size 2, got %d", cfg.PoolSize())
	}
	if cfg.MaxMediaBytes() != defaultMaxMediaBytes {
		t.Errorf("expected %d max bytes, got %d", defaultMaxMediaBytes, cfg.MaxMediaBytes())
	}

	items := cfg.Playlist()
	if len(items) != 4 {
		t.Fatalf("expected the 4-item default playlist, got %d", len(items))
	}
	for i, want := range []string{"cyan", "amber", "emerald", "violet"} {
		if items[i].Theme.Name != want {
			t.Errorf("item %d: expected theme %s, got %s", i, want, items[i].Theme.Name)
		}
	}
}

func TestNewAppConfig_Env(t *testing.T) {
	isolate(t)
	t.Setenv("BACKDROP_ADDR", ":9090")
	t.Setenv("BACKDROP_INTERVAL", "30s")
	t.Setenv("BACKDROP_PRELOAD_LEAD", "3s")
	t.Setenv("BACKDROP_FADE", "800ms")
	t.Setenv("BACKDROP_POOL_SIZE", "4")
	t.Setenv("BACKDROP_MAX_MEDIA_BYTES", "1024")

	cfg, err := NewAppConfig(zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppConfig failed: %v", err)
	}

	if cfg.Addr() != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Addr())
	}
	if cfg.Interval() != 30*time.Second || cfg.PreloadLead() != 3*time.Second || cfg.FadeDuration() != 800*time.Millisecond {
		t.Errorf("unexpected timing: %v/%v/%v", cfg.Interval(), cfg.PreloadLead(), cfg.FadeDuration())
	}
	if cfg.PoolSize() != 4 || cfg.MaxMediaBytes() != 1024 {
		t.Errorf("unexpected sizes: %d/%d", cfg.PoolSize(), cfg.MaxMediaBytes())
	}
}

func TestNewAppConfig_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*AppConfig) bool
	}{
		{name: "Bad Interval", key: "BACKDROP_INTERVAL", value: "soon", check: func(c *AppConfig) bool { return c.Interval() == defaultInterval }},
		{name: "Negative Fade", key: "BACKDROP_FADE", value: "-1s", check: func(c *AppConfig) bool { return c.FadeDuration() == defaultFade }},
		{name: "Zero Pool", key: "BACKDROP_POOL_SIZE", value: "0", check: func(c *AppConfig) bool { return c.PoolSize() == defaultPoolSize }},
		{name: "Bad Max Bytes", key: "BACKDROP_MAX_MEDIA_BYTES", value: "lots", check: func(c *AppConfig) bool { return c.MaxMediaBytes() == defaultMaxMediaBytes }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := NewAppConfig(zap.NewNop())
			if err != nil {
				t.Fatalf("NewAppConfig failed: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("%s=%q did not fall back to the default", tt.key, tt.value)
			}
		})
	}
}

func TestNewAppConfig_DotEnv(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("BACKDROP_ADDR")
	t.Cleanup(func() { os.Unsetenv("BACKDROP_ADDR") })

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BACKDROP_ADDR=:7070\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewAppConfig(zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppConfig failed: %v", err)
	}
	if cfg.Addr() != ":7070" {
		t.Errorf("expected addr from .env, got %s", cfg.Addr())
	}
}

func TestNewAppConfig_PlaylistFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "playlist.yaml")
	content := `items:
  - source: https://cdn.example/one.mp4
    poster: /posters/rose.jpg
    theme:
      primary: "#f43f5e"
      secondary: "#fb7185"
      accent: "#fda4af"
      glowColor: "rgba(244, 63, 94, 0.6)"
      name: rose
  - source: https://cdn.example/two.mp4
    theme:
      name: slate
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BACKDROP_PLAYLIST", path)

	cfg, err := NewAppConfig(zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppConfig failed: %v", err)
	}

	items := cfg.Playlist()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Theme.Primary != "#f43f5e" || items[0].Poster != "/posters/rose.jpg" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Source != "https://cdn.example/two.mp4" || items[1].Theme.Name != "slate" {
		t.Errorf("unexpected second item: %+v", items[1])
	}
}

func TestLoadPlaylist_Errors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantInvalid bool
	}{
		{name: "Malformed YAML", content: "items: [", wantInvalid: true},
		{name: "Missing Source", content: "items:\n  - theme:\n      name: cyan\n", wantInvalid: true},
		{name: "Missing Theme Name", content: "items:\n  - source: a.mp4\n", wantInvalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "playlist.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := LoadPlaylist(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if errors.Is(err, ErrInvalidPlaylist) != tt.wantInvalid {
				t.Errorf("unexpected error kind: %v", err)
			}
		})
	}

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadPlaylist(filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil || errors.Is(err, ErrInvalidPlaylist) {
			t.Errorf("expected a read error, got %v", err)
		}
	})

	t.Run("Empty Playlist", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playlist.yaml")
		if err := os.WriteFile(path, []byte("items: []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		items, err := LoadPlaylist(path)
		if err != nil || len(items) != 0 {
			t.Errorf("an empty playlist is valid (rotation disabled), got %v / %d", err, len(items))
		}
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("BACKDROP_TEST_ROOT", "/srv")

	tests := []struct {
		in   string
		want string
	}{
		{in: "~/posters", want: filepath.Join(home, "posters")},
		{in: "$BACKDROP_TEST_ROOT/posters", want: "/srv/posters"},
		{in: "/tmp/backdrop", want: "/tmp/backdrop"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
