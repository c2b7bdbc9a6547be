package nowplaying_dl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Extractor reads the page's visible state into a TrackDescriptor.
type Extractor struct {
	Resolver *Resolver
	// Now is used to stamp descriptors; defaults to time.Now.
	Now func() time.Time
	log *zap.SugaredLogger
}

func NewExtractor(resolver *Resolver) *Extractor {
	return &Extractor{
		Resolver: resolver,
		Now:      time.Now,
		log:      zap.S().Named("extractor"),
	}
}

// Extract returns a fresh TrackDescriptor, or an error wrapping ErrNoTrack if the title or artist element is missing
// or the page could not be read. The descriptor's SourceURL is empty when no audio URL could be resolved.
func (e *Extractor) Extract(ctx context.Context, page PageState) (TrackDescriptor, error) {
	if snapshotter, ok := page.(Snapshotter); ok {
		snap, err := snapshotter.Snapshot(ctx)
		if err != nil {
			e.log.Warnf("page unavailable: %v", err)
			return TrackDescriptor{}, fmt.Errorf("%w: %v", ErrNoTrack, err)
		}
		page = snap
	}
	title, err := page.Title(ctx)
	if err != nil {
		e.log.Warnf("title element unavailable: %v", err)
		return TrackDescriptor{}, fmt.Errorf("%w: title: %v", ErrNoTrack, err)
	}
	artist, err := page.Artist(ctx)
	if err != nil {
		e.log.Warnf("artist element unavailable: %v", err)
		return TrackDescriptor{}, fmt.Errorf("%w: artist: %v", ErrNoTrack, err)
	}
	e.log.Debugw("extracted track", "title", title, "artist", artist)

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	source := e.Resolver.Resolve(ctx, page)
	if _, ok := source.Get(); !ok {
		e.log.Debugw("no audio source found", "title", title)
	}
	return NewTrackDescriptor(title, artist, source, now()), nil
}
