// Package config loads the insync TOML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Remote   RemoteConfig   `toml:"remote"`
	Editor   EditorConfig   `toml:"editor"`
	UI       UIConfig       `toml:"ui"`
	Keys     KeyConfig      `toml:"keys"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ServerConfig configures `insync serve`.
type ServerConfig struct {
	Bind         string `toml:"bind"`
	Resource     string `toml:"resource"`
	MCPEndpoint  string `toml:"mcp_endpoint"`
	LiveEndpoint string `toml:"live_endpoint"`
}

// RemoteConfig points the editor at a list server. An empty URL means the local database.
type RemoteConfig struct {
	URL          string `toml:"url"`
	Resource     string `toml:"resource"`
	LiveEndpoint string `toml:"live_endpoint"`
	Live         bool   `toml:"live"`
	List         string `toml:"list"`
}

type EditorConfig struct {
	SuppressEnterOnBlank bool     `toml:"suppress_enter_on_blank"`
	SwipeThreshold       float64  `toml:"swipe_threshold"`
	RequestTimeout       Duration `toml:"request_timeout"`
	SaveDebounce         Duration `toml:"save_debounce"`
}

type UIConfig struct {
	RenderMarkdown bool `toml:"render_markdown"`
	MaxItemRows    int  `toml:"max_item_rows"`
	FadeFrames     int  `toml:"fade_frames"`
}

type KeyConfig struct {
	Reload    string `toml:"reload"`
	Save      string `toml:"save"`
	Copy      string `toml:"copy"`
	FocusList string `toml:"focus_list"`
	Help      string `toml:"help"`
	Complete  string `toml:"complete"`
}

// LoggingConfig configures runtime log sinks.
type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig configures the dev-mode logfmt file sink.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Duration decodes TOML strings such as "750ms" or "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses one Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration in Go notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Server: ServerConfig{
			Bind:         "127.0.0.1:8080",
			Resource:     "api",
			MCPEndpoint:  "/mcp",
			LiveEndpoint: "/ws/list",
		},
		Remote: RemoteConfig{
			Resource:     "api",
			LiveEndpoint: "/ws/list",
			Live:         true,
		},
		Editor: EditorConfig{
			SuppressEnterOnBlank: true,
			SwipeThreshold:       12,
			RequestTimeout:       Duration{10 * time.Second},
			SaveDebounce:         Duration{750 * time.Millisecond},
		},
		UI: UIConfig{
			RenderMarkdown: false,
			MaxItemRows:    8,
			FadeFrames:     6,
		},
		Keys: KeyConfig{
			Reload:    "ctrl+r",
			Save:      "ctrl+s",
			Copy:      "ctrl+y",
			FocusList: "esc",
			Help:      "?",
			Complete:  "ctrl+x",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".insync/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	if strings.Contains(strings.Trim(c.Server.Resource, "/"), "/") {
		return fmt.Errorf("invalid server.resource: %q", c.Server.Resource)
	}
	if raw := strings.TrimSpace(c.Remote.URL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid remote.url: %q", c.Remote.URL)
		}
	}
	if c.Editor.SwipeThreshold <= 0 {
		return errors.New("editor.swipe_threshold must be > 0")
	}
	if c.Editor.RequestTimeout.Duration < 0 {
		return errors.New("editor.request_timeout must be >= 0")
	}
	if c.Editor.SaveDebounce.Duration < 0 {
		return errors.New("editor.save_debounce must be >= 0")
	}
	if c.UI.MaxItemRows < 0 {
		return errors.New("ui.max_item_rows must be >= 0")
	}
	if c.UI.FadeFrames < 0 {
		return errors.New("ui.fade_frames must be >= 0")
	}
	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// RemoteEnabled reports whether the editor should talk to a list server.
func (c Config) RemoteEnabled() bool {
	return strings.TrimSpace(c.Remote.URL) != ""
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
