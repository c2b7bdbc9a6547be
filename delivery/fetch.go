package delivery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl"
)

const acceptAudio = "audio/*, */*"

// Fetcher is the primary delivery strategy: a credentialed GET streamed to a temporary file.
type Fetcher struct {
	Client    *http.Client
	TargetDir string
	log       *zap.SugaredLogger
}

func NewFetcher(client *http.Client, targetDir string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		Client:    client,
		TargetDir: targetDir,
		log:       zap.S().Named("fetch"),
	}
}

// Fetch requests req.URL with the page's Referer, Origin and cookies, and commits the body to req.FileName. A non-2xx
// status is a *StatusError and an empty body is ErrEmptyBody; in both cases nothing is written.
func (f *Fetcher) Fetch(ctx context.Context, req *Request) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", acceptAudio)
	if req.Origin != "" {
		httpReq.Header.Set("Referer", req.Origin)
		httpReq.Header.Set("Origin", req.Origin)
	}

	client, err := f.clientWithCookies(httpReq.URL, req.Cookies)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &nowplaying_dl.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.ContentLength == 0 {
		return "", nowplaying_dl.ErrEmptyBody
	}

	d, err := nowplaying_dl.NewDownloadBuilder().
		WithContext(ctx).
		WithTargetDir(f.TargetDir).
		WithRequireContent(true).
		WithProgressCallback(req.Progress).
		Build()
	if err != nil {
		return "", err
	}
	defer d.Close()
	d.AddExpectedBytes(int(resp.ContentLength))
	path, err := d.SaveStream(req.FileName, resp.Body)
	if err != nil {
		return "", err
	}
	f.log.Debugf("saved %s (%s)", path, resp.Header.Get("Content-Type"))
	return path, nil
}

func (f *Fetcher) clientWithCookies(u *url.URL, cookies []*http.Cookie) (*http.Client, error) {
	if len(cookies) == 0 {
		return f.Client, nil
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	jar.SetCookies(u, cookies)
	client := *f.Client
	client.Jar = jar
	return &client, nil
}
