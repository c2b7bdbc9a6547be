package nowplaying_dl

import (
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	assert := assert_.New(t)
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.Equal(CurrentSongKey, cfg.Player.CacheKey)
	assert.Equal(DefaultSelectors, cfg.Player.Selectors)
	assert.Equal(".", cfg.Download.Dir)
	assert.Equal(HistoryBackendBolt, cfg.History.Backend)
	assert.Equal("history.db", filepath.Base(cfg.History.Path))
	assert.Equal(DefaultHistoryLimit, cfg.History.Limit)
	assert.NotEmpty(cfg.Server.Listen)
	assert.Equal("info", cfg.Log.Level)
}

func TestLoadConfigFrom(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
[player]
url_prefix = "https://music.example.com"

[player.selectors]
title = ".now .title"

[download]
dir = "/music"
tag_mp3 = true

[history]
backend = "sqlite"
limit = 10
`), 0644)
	assert.NoError(err)

	t.Setenv("NOWPLAYING_HISTORY_LIMIT", "20")
	t.Setenv("NOWPLAYING_CDP_ENDPOINT", "http://localhost:9333")
	cfg, err := LoadConfigFrom(path)
	assert.NoError(err)
	assert.Equal("https://music.example.com", cfg.Player.URLPrefix)
	assert.Equal(".now .title", cfg.Player.Selectors.Title)
	assert.Equal(DefaultSelectors.Artist, cfg.Player.Selectors.Artist)
	assert.Equal("/music", cfg.Download.Dir)
	assert.True(cfg.Download.TagMP3)
	assert.Equal(HistoryBackendSQLite, cfg.History.Backend)
	assert.Equal("history.sqlite3", filepath.Base(cfg.History.Path))
	assert.Equal(20, cfg.History.Limit)
	assert.Equal("http://localhost:9333", cfg.Browser.CDPEndpoint)
}

func TestLoadConfigFromInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	assert_.NoError(t, os.WriteFile(path, []byte("[player\n"), 0644))
	_, err := LoadConfigFrom(path)
	assert_.Error(t, err)
}
