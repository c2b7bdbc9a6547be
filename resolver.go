package nowplaying_dl

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl/generic"
	"github.com/alanbriolat/nowplaying-dl/util"
)

var (
	ErrMiss = errors.New("no audio URL found")
)

// Names of the built-in resolver strategies.
const (
	ResolveMediaElement = "media-element"
	ResolveStorageCache = "storage-cache"
	ResolveScriptScan   = "script-scan"
)

// Script scan patterns, in priority order. The first capture group, when present, is the URL.
var scriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://[^"'\s]+\.(?:mp3|m4a|flac|wav|aac|ogg)[^"'\s]*`),
	regexp.MustCompile(`(?i)audioUrl\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)src\s*[:=]\s*["']([^"']+\.(?:mp3|m4a|flac|wav|aac|ogg)[^"']*)["']`),
}

// Resolver finds the playing track's audio URL by trying each strategy in turn.
type Resolver struct {
	strategies StrategyList[PageState, string]
	cacheKey   string
	log        *zap.SugaredLogger
}

func NewResolver(cacheKey string) *Resolver {
	if cacheKey == "" {
		cacheKey = CurrentSongKey
	}
	r := &Resolver{
		cacheKey: cacheKey,
		log:      zap.S().Named("resolver"),
	}
	r.strategies.MustCreatePriority(ResolveMediaElement, ResolveFromMedia, PriorityHighest)
	r.strategies.MustCreatePriority(ResolveStorageCache, r.resolveFromCache, PriorityDefault)
	r.strategies.MustCreatePriority(ResolveScriptScan, ResolveFromScripts, PriorityLowest)
	return r
}

// Strategies returns the resolver strategy names in the order they are tried.
func (r *Resolver) Strategies() []string {
	return r.strategies.List()
}

// Resolve returns the first audio URL found, or None if every strategy missed.
func (r *Resolver) Resolve(ctx context.Context, page PageState) generic.Option[string] {
	attempt, err := r.strategies.Run(ctx, page)
	if err != nil {
		r.log.Debugf("no audio URL resolved: %v", err)
		return generic.None[string]()
	}
	r.log.Debugf("resolved audio URL via %s: %s", attempt.StrategyName, attempt.Value)
	return generic.Some(attempt.Value)
}

// ResolveFromMedia accepts the audio element's current source if it is an absolute http(s) URL.
func ResolveFromMedia(ctx context.Context, page PageState) (string, error) {
	src, err := page.MediaSource(ctx)
	if err != nil {
		return "", err
	}
	if !util.IsHTTPURL(src) {
		return "", ErrMiss
	}
	return src, nil
}

type cachedSong struct {
	URL string `json:"url"`
}

func (r *Resolver) resolveFromCache(ctx context.Context, page PageState) (string, error) {
	return ResolveFromCache(ctx, page, r.cacheKey)
}

// ResolveFromCache reads the player's cached "current song" record. Missing or malformed entries are a miss.
func ResolveFromCache(ctx context.Context, page PageState, key string) (string, error) {
	raw, ok, err := page.StorageItem(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || raw == "" {
		return "", ErrMiss
	}
	var song cachedSong
	if err := json.Unmarshal([]byte(raw), &song); err != nil {
		return "", ErrMiss
	}
	if song.URL == "" {
		return "", ErrMiss
	}
	return util.Resolve(page.Origin(), song.URL), nil
}

// ResolveFromScripts scans inline scripts in document order, trying each pattern in priority order within a script.
// This is a heuristic over untrusted text: the first match wins.
func ResolveFromScripts(ctx context.Context, page PageState) (string, error) {
	scripts, err := page.Scripts(ctx)
	if err != nil {
		return "", err
	}
	for _, script := range scripts {
		if match := MatchScript(script); match != "" {
			return util.Resolve(page.Origin(), match), nil
		}
	}
	return "", ErrMiss
}

// MatchScript returns the first audio URL found in a script's text, or "".
func MatchScript(script string) string {
	for _, pattern := range scriptPatterns {
		m := pattern.FindStringSubmatch(script)
		if m == nil {
			continue
		}
		match := m[0]
		if len(m) > 1 {
			match = m[1]
		}
		match = strings.Trim(match, `"'`)
		if match != "" {
			return match
		}
	}
	return ""
}
