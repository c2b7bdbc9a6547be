// Package browser reads player state from a live tab of a running Chromium, attached over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/util"
)

var (
	ErrPageNotFound = errors.New("no open page matches")
)

const (
	mediaSourceScript = `sel => {
		const el = document.querySelector(sel);
		return el ? (el.currentSrc || el.src || '') : '';
	}`
	scriptsScript = `() => Array.from(document.querySelectorAll('script:not([src])')).map(s => s.textContent || '')`
	storageScript = `key => window.localStorage.getItem(key)`
	anchorScript  = `([url, name]) => {
		const a = document.createElement('a');
		a.href = url;
		a.download = name;
		a.style.display = 'none';
		document.body.appendChild(a);
		a.click();
		document.body.removeChild(a);
	}`
)

type Options struct {
	CDPEndpoint string
	// URLPrefix selects the player tab; "" takes the first open page.
	URLPrefix string
	Selectors nowplaying_dl.Selectors
	// TargetDir is where Navigate saves browser downloads.
	TargetDir string
	// Timeout for each element lookup.
	Timeout time.Duration
}

// Page is a live player tab. It implements nowplaying_dl.PageState, CookieSource and Navigator.
type Page struct {
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	log     *zap.SugaredLogger
}

var (
	_ nowplaying_dl.PageState    = &Page{}
	_ nowplaying_dl.CookieSource = &Page{}
	_ nowplaying_dl.Navigator    = &Page{}
)

// Connect attaches to an already running browser and picks the player tab.
func Connect(opts Options) (*Page, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.TargetDir == "" {
		opts.TargetDir = "."
	}
	log := zap.S().Named("browser")
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	browser, err := pw.Chromium.ConnectOverCDP(opts.CDPEndpoint)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not connect to %s: %w", opts.CDPEndpoint, err)
	}
	var urls []string
	for _, bc := range browser.Contexts() {
		for _, page := range bc.Pages() {
			urls = append(urls, page.URL())
			if MatchURL(page.URL(), opts.URLPrefix) {
				log.Infof("attached to %s", page.URL())
				return &Page{opts: opts, pw: pw, browser: browser, page: page, log: log}, nil
			}
		}
	}
	_ = browser.Close()
	_ = pw.Stop()
	return nil, fmt.Errorf("%w %q (open pages: %s)", ErrPageNotFound, opts.URLPrefix, strings.Join(urls, ", "))
}

// MatchURL returns true if pageURL starts with prefix, or prefix is "".
func MatchURL(pageURL string, prefix string) bool {
	return prefix == "" || strings.HasPrefix(pageURL, prefix)
}

// Close detaches from the browser without closing its pages.
func (p *Page) Close() error {
	return closeAll(func() error { return p.browser.Close() }, p.pw.Stop)
}

// closeAll calls every closer in order, even after a failure, and folds their errors.
func closeAll(closers ...func() error) error {
	var result *multierror.Error
	for _, f := range closers {
		if err := f(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (p *Page) text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	loc := p.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", fmt.Errorf("%w: %s", nowplaying_dl.ErrNoElement, selector)
	}
	return loc.First().TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(float64(p.opts.Timeout.Milliseconds())),
	})
}

func (p *Page) Title(ctx context.Context) (string, error) {
	return p.text(ctx, p.opts.Selectors.Title)
}

func (p *Page) Artist(ctx context.Context) (string, error) {
	return p.text(ctx, p.opts.Selectors.Artist)
}

func (p *Page) MediaSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := p.page.Evaluate(mediaSourceScript, p.opts.Selectors.Media)
	if err != nil {
		return "", err
	}
	src, _ := v.(string)
	return src, nil
}

func (p *Page) Scripts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := p.page.Evaluate(scriptsScript)
	if err != nil {
		return nil, err
	}
	return EvalStrings(v), nil
}

func (p *Page) StorageItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := p.page.Evaluate(storageScript, key)
	if err != nil {
		return "", false, err
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (p *Page) Origin() string {
	origin, err := util.Origin(p.page.URL())
	if err != nil {
		return ""
	}
	return origin
}

// Cookies returns the browser's cookies for rawURL.
func (p *Page) Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cookies, err := p.page.Context().Cookies(rawURL)
	if err != nil {
		return nil, err
	}
	return ToHTTPCookies(cookies), nil
}

// Navigate clicks a transient download link in the player tab and saves the resulting browser download.
func (p *Page) Navigate(ctx context.Context, rawURL string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	download, err := p.page.ExpectDownload(func() error {
		_, err := p.page.Evaluate(anchorScript, []string{rawURL, fileName})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("no browser download: %w", err)
	}
	name := nowplaying_dl.Sanitize(download.SuggestedFilename())
	if name == "" || name == "_" {
		name = fileName
	}
	path := filepath.Join(p.opts.TargetDir, name)
	if err := download.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save browser download: %w", err)
	}
	p.log.Debugf("browser saved %s", path)
	return path, nil
}

// EvalStrings converts an evaluated JavaScript array into strings, skipping anything else.
func EvalStrings(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// ToHTTPCookies converts browser cookies for use in a net/http cookie jar.
func ToHTTPCookies(cookies []playwright.Cookie) []*http.Cookie {
	result := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		result = append(result, hc)
	}
	return result
}
