// Package snapshot reads player state from saved HTML plus a dump of the page's localStorage.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/PuerkitoBio/goquery"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/util"
)

// Snapshot is an immutable copy of the page at one moment.
type Snapshot struct {
	doc       *goquery.Document
	storage   map[string]string
	origin    string
	selectors nowplaying_dl.Selectors
}

var _ nowplaying_dl.PageState = &Snapshot{}

// FromHTML parses a page. origin is used to resolve relative URLs and may be "".
func FromHTML(r io.Reader, origin string, selectors nowplaying_dl.Selectors) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Snapshot{
		doc:       doc,
		storage:   map[string]string{},
		origin:    origin,
		selectors: selectors,
	}, nil
}

// WithStorage returns a copy of the snapshot with the given storage contents.
func (s *Snapshot) WithStorage(storage map[string]string) *Snapshot {
	c := *s
	c.storage = storage
	if c.storage == nil {
		c.storage = map[string]string{}
	}
	return &c
}

// ParseStorage reads a JSON object dump of localStorage. Values that aren't strings are kept as their JSON text, the
// way localStorage would hold them after JSON.stringify.
func ParseStorage(r io.Reader) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse storage dump: %w", err)
	}
	storage := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			storage[k] = s
		} else {
			storage[k] = string(bytes.TrimSpace(v))
		}
	}
	return storage, nil
}

func (s *Snapshot) text(selector string) (string, error) {
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", nowplaying_dl.ErrNoElement, selector)
	}
	return sel.Text(), nil
}

func (s *Snapshot) Title(ctx context.Context) (string, error) {
	return s.text(s.selectors.Title)
}

func (s *Snapshot) Artist(ctx context.Context) (string, error) {
	return s.text(s.selectors.Artist)
}

// MediaSource returns the media element's src, or that of its first <source> child, resolved against the origin.
func (s *Snapshot) MediaSource(ctx context.Context) (string, error) {
	media := s.doc.Find(s.selectors.Media).First()
	if media.Length() == 0 {
		return "", nil
	}
	src, ok := media.Attr("src")
	if !ok || src == "" {
		src, _ = media.Find("source[src]").First().Attr("src")
	}
	if src == "" {
		return "", nil
	}
	return util.Resolve(s.origin, src), nil
}

func (s *Snapshot) Scripts(ctx context.Context) ([]string, error) {
	var scripts []string
	s.doc.Find("script").Not("[src]").Each(func(_ int, sel *goquery.Selection) {
		scripts = append(scripts, sel.Text())
	})
	return scripts, nil
}

func (s *Snapshot) StorageItem(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.storage[key]
	return v, ok, nil
}

func (s *Snapshot) Origin() string {
	return s.origin
}

// Loader produces a fresh Snapshot.
type Loader func(ctx context.Context) (*Snapshot, error)

// Provider is a PageState that reloads its snapshot on every call, so it always reflects the current file or page.
// Snapshot loads once for callers that need several consistent reads.
type Provider struct {
	load   Loader
	origin string
}

var (
	_ nowplaying_dl.PageState   = &Provider{}
	_ nowplaying_dl.Snapshotter = &Provider{}
)

func NewProvider(origin string, load Loader) *Provider {
	return &Provider{load: load, origin: origin}
}

// NewFileProvider reads htmlPath, and storagePath if not "", on every load. pageURL is where the page was saved from;
// only its origin is kept, and it may be "" if unknown.
func NewFileProvider(htmlPath string, storagePath string, pageURL string, selectors nowplaying_dl.Selectors) (*Provider, error) {
	origin := ""
	if pageURL != "" {
		var err error
		if origin, err = util.Origin(pageURL); err != nil {
			return nil, err
		}
	}
	return NewProvider(origin, func(ctx context.Context) (*Snapshot, error) {
		f, err := os.Open(htmlPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		snap, err := FromHTML(f, origin, selectors)
		if err != nil {
			return nil, err
		}
		return withStorageFile(snap, storagePath)
	}), nil
}

// NewRemoteProvider fetches pageURL on every call. Its origin is that of pageURL.
func NewRemoteProvider(client *http.Client, pageURL string, storagePath string, selectors nowplaying_dl.Selectors) (*Provider, error) {
	origin, err := util.Origin(pageURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{}
	}
	return NewProvider(origin, func(ctx context.Context) (*Snapshot, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &nowplaying_dl.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		snap, err := FromHTML(resp.Body, origin, selectors)
		if err != nil {
			return nil, err
		}
		return withStorageFile(snap, storagePath)
	}), nil
}

func withStorageFile(snap *Snapshot, storagePath string) (*Snapshot, error) {
	if storagePath == "" {
		return snap, nil
	}
	f, err := os.Open(storagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	storage, err := ParseStorage(f)
	if err != nil {
		return nil, err
	}
	return snap.WithStorage(storage), nil
}

func (p *Provider) Snapshot(ctx context.Context) (nowplaying_dl.PageState, error) {
	snap, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (p *Provider) Title(ctx context.Context) (string, error) {
	snap, err := p.load(ctx)
	if err != nil {
		return "", err
	}
	return snap.Title(ctx)
}

func (p *Provider) Artist(ctx context.Context) (string, error) {
	snap, err := p.load(ctx)
	if err != nil {
		return "", err
	}
	return snap.Artist(ctx)
}

func (p *Provider) MediaSource(ctx context.Context) (string, error) {
	snap, err := p.load(ctx)
	if err != nil {
		return "", err
	}
	return snap.MediaSource(ctx)
}

func (p *Provider) Scripts(ctx context.Context) ([]string, error) {
	snap, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Scripts(ctx)
}

func (p *Provider) StorageItem(ctx context.Context, key string) (string, bool, error) {
	snap, err := p.load(ctx)
	if err != nil {
		return "", false, err
	}
	return snap.StorageItem(ctx, key)
}

func (p *Provider) Origin() string {
	return p.origin
}
