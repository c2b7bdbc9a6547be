package nowplaying_dl

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// History store backends.
const (
	HistoryBackendBolt   = "bolt"
	HistoryBackendSQLite = "sqlite"
	HistoryBackendNone   = "none"
)

const appName = "nowplaying-dl"

type Config struct {
	Player   PlayerConfig   `toml:"player"`
	Browser  BrowserConfig  `toml:"browser"`
	Download DownloadConfig `toml:"download"`
	History  HistoryConfig  `toml:"history"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

type PlayerConfig struct {
	// URLPrefix selects the player tab among the browser's open pages.
	URLPrefix string    `toml:"url_prefix"`
	CacheKey  string    `toml:"cache_key"`
	Selectors Selectors `toml:"selectors"`
}

type BrowserConfig struct {
	// CDPEndpoint of an already running browser, e.g. http://localhost:9222.
	CDPEndpoint string `toml:"cdp_endpoint"`
}

type DownloadConfig struct {
	Dir string `toml:"dir"`
	// TagMP3 writes title/artist ID3 tags into saved .mp3 files.
	TagMP3 bool `toml:"tag_mp3"`
}

type HistoryConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	Limit   int    `toml:"limit"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads configuration from the standard location with environment overrides. A missing file is not an
// error.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if path := findConfigFile(); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadConfigFrom reads configuration from a specific file path.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// ApplyDefaults fills in every unset field.
func (c *Config) ApplyDefaults() {
	if c.Player.CacheKey == "" {
		c.Player.CacheKey = CurrentSongKey
	}
	if c.Player.Selectors.Title == "" {
		c.Player.Selectors.Title = DefaultSelectors.Title
	}
	if c.Player.Selectors.Artist == "" {
		c.Player.Selectors.Artist = DefaultSelectors.Artist
	}
	if c.Player.Selectors.Media == "" {
		c.Player.Selectors.Media = DefaultSelectors.Media
	}
	if c.Download.Dir == "" {
		c.Download.Dir = "."
	}
	if c.History.Backend == "" {
		c.History.Backend = HistoryBackendBolt
	}
	if c.History.Path == "" {
		c.History.Path = defaultHistoryPath(c.History.Backend)
	}
	if c.History.Limit <= 0 {
		c.History.Limit = DefaultHistoryLimit
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:17890"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func userDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, appName)
}

func defaultHistoryPath(backend string) string {
	switch backend {
	case HistoryBackendSQLite:
		return filepath.Join(userDataDir(), "history.sqlite3")
	default:
		return filepath.Join(userDataDir(), "history.db")
	}
}

func findConfigFile() string {
	path := filepath.Join(userDataDir(), "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NOWPLAYING_PAGE_URL"); v != "" {
		cfg.Player.URLPrefix = v
	}
	if v := os.Getenv("NOWPLAYING_CDP_ENDPOINT"); v != "" {
		cfg.Browser.CDPEndpoint = v
	}
	if v := os.Getenv("NOWPLAYING_DOWNLOAD_DIR"); v != "" {
		cfg.Download.Dir = v
	}
	if v := os.Getenv("NOWPLAYING_TAG_MP3"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Download.TagMP3 = b
		}
	}
	if v := os.Getenv("NOWPLAYING_HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = v
	}
	if v := os.Getenv("NOWPLAYING_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("NOWPLAYING_HISTORY_LIMIT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.History.Limit = i
		}
	}
	if v := os.Getenv("NOWPLAYING_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("NOWPLAYING_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
