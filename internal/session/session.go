package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/delivery"
	"github.com/alanbriolat/nowplaying-dl/internal/pubsub"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrNoPage        = errors.New("no page configured")
)

type Config struct {
	// Page is read afresh on every request.
	Page      nowplaying_dl.PageState
	TargetDir string
	// CacheKey is the page's storage key for the current song.
	CacheKey     string
	History      nowplaying_dl.HistoryStore
	HistoryLimit int
	// Navigator performs fallback downloads. Defaults to the page if it is a Navigator, else a direct link download.
	Navigator  nowplaying_dl.Navigator
	HTTPClient *http.Client
	// TagMP3 writes ID3 title/artist tags into saved .mp3 files.
	TagMP3 bool
	// Registerer receives the session's metrics; nil leaves them unregistered.
	Registerer prometheus.Registerer
	// Minimum interval between DownloadProgress events.
	ProgressUpdateInterval time.Duration
}

var DefaultConfig = Config{
	TargetDir:              ".",
	CacheKey:               nowplaying_dl.CurrentSongKey,
	HistoryLimit:           nowplaying_dl.DefaultHistoryLimit,
	ProgressUpdateInterval: 500 * time.Millisecond,
}

// Session is the delivery engine for one page: at most one download is in flight at a time.
type Session struct {
	config     Config
	log        *zap.SugaredLogger
	now        func() time.Time
	extractor  *nowplaying_dl.Extractor
	deliveries *nowplaying_dl.StrategyList[*delivery.Request, string]
	guard      *Guard
	history    *Recorder
	events     pubsub.Publisher[Event]
	metrics    *Metrics

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

func New(config Config) (*Session, error) {
	if config.Page == nil {
		return nil, ErrNoPage
	}
	if config.TargetDir == "" {
		config.TargetDir = DefaultConfig.TargetDir
	}
	if config.CacheKey == "" {
		config.CacheKey = DefaultConfig.CacheKey
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultConfig.HistoryLimit
	}
	if config.ProgressUpdateInterval <= 0 {
		config.ProgressUpdateInterval = DefaultConfig.ProgressUpdateInterval
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Navigator == nil {
		if nav, ok := config.Page.(nowplaying_dl.Navigator); ok {
			config.Navigator = nav
		} else {
			config.Navigator = delivery.NewDirectLink(config.TargetDir)
		}
	}

	s := &Session{
		config:    config,
		log:       zap.S().Named("session"),
		now:       time.Now,
		extractor: nowplaying_dl.NewExtractor(nowplaying_dl.NewResolver(config.CacheKey)),
		guard:     NewGuard(),
		history:   NewRecorder(config.History, config.HistoryLimit),
		events:    pubsub.NewPublisher[Event](),
		metrics:   NewMetrics(config.Registerer),
	}
	s.deliveries = delivery.Strategies(
		delivery.NewFetcher(config.HTTPClient, config.TargetDir),
		config.Navigator,
		s.metrics.observeAttempt,
	)
	return s, nil
}

// Subscribe returns a stream of notifications. A subscriber that falls behind loses events rather than blocking
// downloads.
func (s *Session) Subscribe() (pubsub.ReceiverCloser[Event], error) {
	return s.events.Subscribe()
}

// FlushEvents waits until every event published so far has reached all subscribers.
func (s *Session) FlushEvents() {
	s.events.Flush()
}

// SubscribeNotifications is like Subscribe, but leaves out progress events.
func (s *Session) SubscribeNotifications() (pubsub.ReceiverCloser[Event], error) {
	ch := pubsub.NewLossyChannel[Event](pubsub.DefaultSubscriberBufSize)
	if err := s.events.AddSubscriber(pubsub.NewFilteredSender[Event](ch, IsNotification)); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *Session) publish(e Event) {
	s.events.Send(e)
}

// Busy returns true while a download is in flight.
func (s *Session) Busy() bool {
	return s.guard.InFlight()
}

// WaitIdle blocks until no download is in flight or ctx is done.
func (s *Session) WaitIdle(ctx context.Context) error {
	return s.guard.WaitIdle(ctx)
}

// Cancel abandons the in-flight download, if any, so that a new one is accepted straight away. The abandoned request
// keeps running and is still recorded if it completes.
func (s *Session) Cancel() bool {
	if !s.guard.Reset() {
		return false
	}
	s.log.Info("in-flight download cancelled")
	s.metrics.Cancels.Inc()
	s.publish(DownloadCancelled{})
	return true
}

// Track reads the currently playing track from the page.
func (s *Session) Track(ctx context.Context) (nowplaying_dl.TrackDescriptor, error) {
	return s.extractor.Extract(ctx, s.config.Page)
}

// FileName derives the filename the current track would be saved under.
func (s *Session) FileName(ctx context.Context) (string, error) {
	d, err := s.Track(ctx)
	if err != nil {
		return "", err
	}
	return nowplaying_dl.DeriveFileName(d), nil
}

// History returns the download log, newest first.
func (s *Session) History() ([]nowplaying_dl.DownloadRecord, error) {
	return s.history.List()
}

// HistoryEntry returns the n-th most recent download, counting from 1.
func (s *Session) HistoryEntry(n int) (nowplaying_dl.DownloadRecord, error) {
	return s.history.Get(n)
}

func (s *Session) ClearHistory() error {
	if err := s.history.Clear(); err != nil {
		return err
	}
	s.publish(HistoryCleared{})
	return nil
}

// Close waits for any running download, including abandoned ones, then closes the history store and all subscribers.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.running.Wait()
	err := s.history.Close()
	s.events.Close()
	return err
}

// begin registers a running download, unless the session is closed.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.running.Add(1)
	return true
}
