package nowplaying_dl

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Download interface {
	// AddDownloadedBytes increases how many bytes have been successfully downloaded so far.
	AddDownloadedBytes(n int)

	// AddExpectedBytes increases how many bytes are expected to be downloaded.
	AddExpectedBytes(n int)

	// Close cleans up any resources associated with the Download, including partially written files.
	Close() error

	// Progress returns the downloaded and expected bytes of the download.
	Progress() (int, int)

	// SaveStream writes the stream to a temporary file next to the target, then renames it to filename inside the
	// target directory. Returns the final path.
	SaveStream(filename string, stream io.Reader) (string, error)

	// Write will ignore the data but will send the byte count to AddDownloadedBytes. Allows progress tracking using
	// io.MultiWriter (but ensure the Download is the last writer to avoid counting failed writes).
	Write(p []byte) (n int, err error)
}

type download struct {
	ctx              context.Context
	cancel           context.CancelFunc
	progressCallback func(int, int)
	targetDir        string
	requireContent   bool
	tempPath         string
	expectedBytes    int
	downloadedBytes  int
}

func (d *download) AddDownloadedBytes(n int) {
	d.downloadedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) AddExpectedBytes(n int) {
	if n < 0 {
		// Unknown length, e.g. chunked responses
		return
	}
	d.expectedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) Close() error {
	d.cancel()
	if d.tempPath == "" {
		return nil
	}
	err := os.Remove(d.tempPath)
	d.tempPath = ""
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial file: %w", err)
	}
	return nil
}

func (d *download) Progress() (int, int) {
	return d.downloadedBytes, d.expectedBytes
}

func (d *download) SaveStream(filename string, stream io.Reader) (string, error) {
	if err := os.MkdirAll(d.targetDir, 0775); err != nil {
		return "", fmt.Errorf("failed to create target dir: %w", err)
	}
	f, err := os.CreateTemp(d.targetDir, ".nowplaying-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to open temporary file: %w", err)
	}
	d.tempPath = f.Name()

	n, err := io.Copy(io.MultiWriter(f, d), &readerContext{ctx: d.ctx, r: stream})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = d.Close()
		return "", fmt.Errorf("failed to save stream: %w", err)
	}
	if n == 0 && d.requireContent {
		_ = d.Close()
		return "", ErrEmptyBody
	}

	target := d.targetPath(filename)
	if err := os.Rename(d.tempPath, target); err != nil {
		_ = d.Close()
		return "", fmt.Errorf("failed to commit file: %w", err)
	}
	d.tempPath = ""
	return target, nil
}

func (d *download) Write(p []byte) (n int, err error) {
	n = len(p)
	d.AddDownloadedBytes(n)
	return n, nil
}

func (d *download) targetPath(filename string) string {
	return filepath.Join(d.targetDir, filepath.Base(filename))
}

type DownloadBuilder interface {
	Build() (Download, error)
	WithContext(ctx context.Context) DownloadBuilder
	WithProgressCallback(f func(downloaded int, expected int)) DownloadBuilder
	// WithRequireContent makes SaveStream fail with ErrEmptyBody on a zero-length stream.
	WithRequireContent(require bool) DownloadBuilder
	WithTargetDir(dir string) DownloadBuilder
}

type downloadBuilder struct {
	ctx              context.Context
	progressCallback func(int, int)
	targetDir        string
	requireContent   bool
}

func NewDownloadBuilder() DownloadBuilder {
	return &downloadBuilder{
		ctx:       context.Background(),
		targetDir: ".",
	}
}

func (b *downloadBuilder) Build() (Download, error) {
	if b.targetDir == "" {
		return nil, fmt.Errorf("no target directory")
	}
	d := download{}
	d.ctx, d.cancel = context.WithCancel(b.ctx)
	d.progressCallback = b.progressCallback
	d.targetDir = b.targetDir
	d.requireContent = b.requireContent
	return &d, nil
}

func (b *downloadBuilder) WithContext(ctx context.Context) DownloadBuilder {
	b.ctx = ctx
	return b
}

func (b *downloadBuilder) WithProgressCallback(f func(int, int)) DownloadBuilder {
	b.progressCallback = f
	return b
}

func (b *downloadBuilder) WithRequireContent(require bool) DownloadBuilder {
	b.requireContent = require
	return b
}

func (b *downloadBuilder) WithTargetDir(dir string) DownloadBuilder {
	b.targetDir = dir
	return b
}
