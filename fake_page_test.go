package nowplaying_dl

import (
	"context"
)

type fakePage struct {
	title      *string
	artist     *string
	media      string
	scripts    []string
	storage    map[string]string
	origin     string
	storageErr error
}

func strPtr(s string) *string {
	return &s
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	if p.title == nil {
		return "", ErrNoElement
	}
	return *p.title, nil
}

func (p *fakePage) Artist(ctx context.Context) (string, error) {
	if p.artist == nil {
		return "", ErrNoElement
	}
	return *p.artist, nil
}

func (p *fakePage) MediaSource(ctx context.Context) (string, error) {
	return p.media, nil
}

func (p *fakePage) Scripts(ctx context.Context) ([]string, error) {
	return p.scripts, nil
}

func (p *fakePage) StorageItem(ctx context.Context, key string) (string, bool, error) {
	if p.storageErr != nil {
		return "", false, p.storageErr
	}
	v, ok := p.storage[key]
	return v, ok, nil
}

func (p *fakePage) Origin() string {
	return p.origin
}
