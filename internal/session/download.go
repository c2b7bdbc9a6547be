package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/delivery"
)

// Download saves the currently playing track. It never blocks behind another download: if one is in flight the
// outcome is OutcomeAlreadyInProgress. The guard is always released before returning.
func (s *Session) Download(ctx context.Context) Outcome {
	if !s.begin() {
		return failure(ErrSessionClosed, ErrSessionClosed.Error())
	}
	defer s.running.Done()

	token, ok := s.guard.TryAcquire()
	if !ok {
		s.log.Debug("download rejected, another is in flight")
		o := alreadyInProgress()
		s.metrics.observeOutcome(o)
		s.publish(DownloadRejected{})
		return o
	}
	defer func() {
		if !s.guard.Release(token) {
			s.log.Debug("download finished after being cancelled")
		}
	}()

	start := s.now()
	s.publish(DownloadStarted{})
	o := s.run(ctx)
	s.metrics.Duration.Observe(s.now().Sub(start).Seconds())
	s.metrics.observeOutcome(o)
	switch {
	case o.OK():
		s.publish(DownloadSucceeded{Record: *o.Record, Path: o.Path, Strategy: o.Strategy})
	case errors.Is(o.Err, nowplaying_dl.ErrCancelled):
		s.log.Infof("download cancelled: %v", o.Err)
		s.publish(DownloadCancelled{})
	default:
		s.log.Warnf("download failed: %v", o.Err)
		s.publish(DownloadFailed{Err: o.Err, Reason: o.Message})
	}
	return o
}

func (s *Session) run(ctx context.Context) Outcome {
	d, err := s.extractor.Extract(ctx, s.config.Page)
	if err != nil {
		return failure(err, ReasonNoTrack)
	}
	if !d.HasSource() {
		o := failure(nowplaying_dl.ErrNoSource, ReasonNoSource)
		o.Track = &d
		return o
	}
	fileName := nowplaying_dl.DeriveFileName(d)
	s.log.Infow("downloading", "track", d.String(), "file", fileName, "url", d.SourceURL)
	s.publish(DownloadResolved{Track: d, FileName: fileName})

	req := &delivery.Request{
		URL:      d.SourceURL,
		FileName: fileName,
		Origin:   s.config.Page.Origin(),
		Cookies:  s.cookies(ctx, d.SourceURL),
		Progress: s.progressReporter(fileName),
	}
	attempt, err := s.deliveries.Run(ctx, req)
	if err != nil && ctx.Err() != nil {
		o := failure(fmt.Errorf("%w: %w", nowplaying_dl.ErrCancelled, err), ReasonCancelled)
		o.Track = &d
		o.FileName = fileName
		return o
	}
	if err != nil {
		reason := ReasonAllMethodsFailed
		var strategyErr *nowplaying_dl.StrategyError
		if errors.As(err, &strategyErr) {
			reason = fmt.Sprintf("%s: %v", ReasonAllMethodsFailed, strategyErr.Last())
		}
		o := failure(fmt.Errorf("%w: %w", nowplaying_dl.ErrAllMethodsFailed, err), reason)
		o.Track = &d
		o.FileName = fileName
		return o
	}

	if s.config.TagMP3 {
		if err := delivery.StampMP3(attempt.Value, d); err != nil {
			s.log.Warnf("failed to tag %s: %v", attempt.Value, err)
		}
	}
	record := s.history.Record(d, fileName, s.now())
	return Outcome{
		Kind:     OutcomeSuccess,
		Track:    &d,
		FileName: fileName,
		Path:     attempt.Value,
		Strategy: attempt.StrategyName,
		Record:   &record,
		Message:  "下载完成: " + fileName,
	}
}

func (s *Session) cookies(ctx context.Context, rawURL string) []*http.Cookie {
	source, ok := s.config.Page.(nowplaying_dl.CookieSource)
	if !ok {
		return nil
	}
	cookies, err := source.Cookies(ctx, rawURL)
	if err != nil {
		s.log.Warnf("failed to read page cookies: %v", err)
		return nil
	}
	return cookies
}

// progressReporter publishes DownloadProgress at most once per ProgressUpdateInterval, plus once on completion.
func (s *Session) progressReporter(fileName string) func(int, int) {
	var last time.Time
	return func(downloaded int, expected int) {
		now := s.now()
		complete := expected > 0 && downloaded >= expected
		if !complete && now.Sub(last) < s.config.ProgressUpdateInterval {
			return
		}
		last = now
		s.publish(DownloadProgress{FileName: fileName, Downloaded: downloaded, Expected: expected})
	}
}
