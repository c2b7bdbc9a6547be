package nowplaying_dl

import (
	"context"
	"net/http"
)

// CurrentSongKey is the client-side storage key where the player caches the current song.
const CurrentSongKey = "current_song"

// HistoryKey is the fixed namespace under which the download log is persisted.
const HistoryKey = "moekoe_download_history"

// Selectors locate the player's display elements in the host page.
type Selectors struct {
	Title  string `toml:"title"`
	Artist string `toml:"artist"`
	Media  string `toml:"media"`
}

var DefaultSelectors = Selectors{
	Title:  ".player-bar .song-title",
	Artist: ".player-bar .artist",
	Media:  "audio",
}

// PageState is a read-only view of the host page at the moment of the call. Implementations must not cache: the
// playing track can change between calls.
type PageState interface {
	// Title returns the text of the title display element, or ErrNoElement if there is no such element.
	Title(ctx context.Context) (string, error)
	// Artist returns the text of the artist display element, or ErrNoElement if there is no such element.
	Artist(ctx context.Context) (string, error)
	// MediaSource returns the current source of the audio playback element, or "" if there is none.
	MediaSource(ctx context.Context) (string, error)
	// Scripts returns the text of every inline script, in document order.
	Scripts(ctx context.Context) ([]string, error)
	// StorageItem looks up a key in the page's client-side persisted storage.
	StorageItem(ctx context.Context, key string) (string, bool, error)
	// Origin is the page's own origin, used for Referer/Origin headers and relative URLs.
	Origin() string
}

// Snapshotter is implemented by a PageState that can capture one consistent view of the page, so that the reads of
// a single extraction all come from the same page version.
type Snapshotter interface {
	Snapshot(ctx context.Context) (PageState, error)
}

// CookieSource is implemented by a PageState that can share the page's ambient credentials.
type CookieSource interface {
	Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error)
}

// Navigator triggers a browser-style download of rawURL, suggesting fileName, and returns the saved path.
type Navigator interface {
	Navigate(ctx context.Context, rawURL string, fileName string) (string, error)
}
