package delivery

import (
	"context"
	"fmt"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl"
)

// DirectLink is the fallback Navigator used when no browser is attached: a plain GET with no custom headers or
// credentials, saved under the server's suggested name if it gives one.
type DirectLink struct {
	Client    *http.Client
	TargetDir string
	log       *zap.SugaredLogger
}

func NewDirectLink(targetDir string) *DirectLink {
	return &DirectLink{
		Client:    &http.Client{},
		TargetDir: targetDir,
		log:       zap.S().Named("link"),
	}
}

func (l *DirectLink) Navigate(ctx context.Context, rawURL string, fileName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &nowplaying_dl.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if suggested := DispositionFileName(resp.Header.Get("Content-Disposition")); suggested != "" {
		l.log.Debugf("server suggested %q instead of %q", suggested, fileName)
		fileName = suggested
	}
	d, err := nowplaying_dl.NewDownloadBuilder().
		WithContext(ctx).
		WithTargetDir(l.TargetDir).
		Build()
	if err != nil {
		return "", err
	}
	defer d.Close()
	d.AddExpectedBytes(int(resp.ContentLength))
	return d.SaveStream(fileName, resp.Body)
}

// DispositionFileName extracts a sanitized filename from a Content-Disposition header, or returns "".
func DispositionFileName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := nowplaying_dl.Sanitize(params["filename"])
	if name == "_" {
		return ""
	}
	return nowplaying_dl.LimitFileName(name)
}
