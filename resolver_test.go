package nowplaying_dl

import (
	"context"
	"errors"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestResolverStrategyOrder(t *testing.T) {
	assert := assert_.New(t)
	r := NewResolver("")
	assert.Equal([]string{ResolveMediaElement, ResolveStorageCache, ResolveScriptScan}, r.Strategies())
}

func TestResolveMediaWins(t *testing.T) {
	assert := assert_.New(t)
	page := &fakePage{
		media:   "https://cdn.example.com/media.mp3",
		storage: map[string]string{CurrentSongKey: `{"url":"https://cdn.example.com/cache.mp3"}`},
		scripts: []string{`var x = "https://cdn.example.com/script.mp3"`},
	}
	url, ok := NewResolver("").Resolve(context.Background(), page).Get()
	assert.True(ok)
	assert.Equal("https://cdn.example.com/media.mp3", url)
}

func TestResolveMediaRejectsNonHTTP(t *testing.T) {
	assert := assert_.New(t)
	page := &fakePage{
		media:   "blob:https://music.example.com/abc",
		storage: map[string]string{CurrentSongKey: `{"url":"https://cdn.example.com/cache.mp3"}`},
	}
	url, ok := NewResolver("").Resolve(context.Background(), page).Get()
	assert.True(ok)
	assert.Equal("https://cdn.example.com/cache.mp3", url)
}

func TestResolveFromCache(t *testing.T) {
	assert := assert_.New(t)
	ctx := context.Background()
	page := &fakePage{origin: "https://music.example.com"}

	_, err := ResolveFromCache(ctx, page, CurrentSongKey)
	assert.ErrorIs(err, ErrMiss)

	page.storage = map[string]string{CurrentSongKey: `not json`}
	_, err = ResolveFromCache(ctx, page, CurrentSongKey)
	assert.ErrorIs(err, ErrMiss)

	page.storage = map[string]string{CurrentSongKey: `{"name":"x"}`}
	_, err = ResolveFromCache(ctx, page, CurrentSongKey)
	assert.ErrorIs(err, ErrMiss)

	page.storage = map[string]string{CurrentSongKey: `{"url":"/audio/1.m4a"}`}
	url, err := ResolveFromCache(ctx, page, CurrentSongKey)
	assert.NoError(err)
	assert.Equal("https://music.example.com/audio/1.m4a", url)

	page.storage = map[string]string{"custom": `{"url":"https://cdn.example.com/c.mp3"}`}
	url, ok := NewResolver("custom").Resolve(ctx, page).Get()
	assert.True(ok)
	assert.Equal("https://cdn.example.com/c.mp3", url)

	boom := errors.New("storage unavailable")
	page.storageErr = boom
	_, err = ResolveFromCache(ctx, page, CurrentSongKey)
	assert.ErrorIs(err, boom)
}

func TestMatchScript(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("https://cdn.example.com/a/song.flac?sig=1",
		MatchScript(`player.load("https://cdn.example.com/a/song.flac?sig=1")`))
	assert.Equal("/api/stream/42", MatchScript(`const cfg = { audioUrl: "/api/stream/42" };`))
	assert.Equal("/api/stream/43", MatchScript(`window.audioUrl = '/api/stream/43'`))
	assert.Equal("media/track.ogg", MatchScript(`el.src = "media/track.ogg"`))
	assert.Equal("", MatchScript(`console.log("nothing here")`))
	// Absolute URLs take priority over assignments in the same script
	assert.Equal("https://cdn.example.com/b.mp3",
		MatchScript(`audioUrl = "/relative"; fallback = "https://cdn.example.com/b.mp3"`))
}

func TestResolveFromScripts(t *testing.T) {
	assert := assert_.New(t)
	ctx := context.Background()
	page := &fakePage{
		origin: "https://music.example.com",
		scripts: []string{
			`console.log("init")`,
			`var state = { audioUrl: "/stream/7" }`,
			`var other = "https://cdn.example.com/late.mp3"`,
		},
	}
	url, err := ResolveFromScripts(ctx, page)
	assert.NoError(err)
	assert.Equal("https://music.example.com/stream/7", url)

	page.scripts = []string{`nothing`}
	_, err = ResolveFromScripts(ctx, page)
	assert.ErrorIs(err, ErrMiss)
}

func TestResolveAllMiss(t *testing.T) {
	assert := assert_.New(t)
	page := &fakePage{scripts: []string{"var a = 1;"}}
	_, ok := NewResolver("").Resolve(context.Background(), page).Get()
	assert.False(ok)
}
