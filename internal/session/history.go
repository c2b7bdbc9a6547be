package session

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/internal/sync_"
)

// Recorder owns the capped download log: every Record prepends and truncates before persisting.
type Recorder struct {
	store *sync_.Mutexed[nowplaying_dl.HistoryStore]
	limit int
	log   *zap.SugaredLogger
}

func NewRecorder(store nowplaying_dl.HistoryStore, limit int) *Recorder {
	if store == nil {
		store = NewMemoryStore()
	}
	if limit <= 0 {
		limit = nowplaying_dl.DefaultHistoryLimit
	}
	return &Recorder{
		store: sync_.NewMutexed(store),
		limit: limit,
		log:   zap.S().Named("history"),
	}
}

// Record prepends a record for a completed download. Persistence failures are logged, never returned: the download
// itself already succeeded.
func (r *Recorder) Record(d nowplaying_dl.TrackDescriptor, fileName string, now time.Time) nowplaying_dl.DownloadRecord {
	record := nowplaying_dl.NewDownloadRecord(d, fileName, now)
	err := r.store.Locked(func(store *nowplaying_dl.HistoryStore) error {
		records, err := (*store).Load()
		if err != nil {
			// Don't overwrite a log we failed to read
			return fmt.Errorf("%w: load: %v", nowplaying_dl.ErrPersistence, err)
		}
		if err := (*store).Save(nowplaying_dl.PrependCapped(records, record, r.limit)); err != nil {
			return fmt.Errorf("%w: save: %v", nowplaying_dl.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		r.log.Errorf("failed to record %q: %v", fileName, err)
	} else {
		r.log.Debugf("recorded %q", fileName)
	}
	return record
}

// List returns the log, newest first, never more than the limit.
func (r *Recorder) List() ([]nowplaying_dl.DownloadRecord, error) {
	var records []nowplaying_dl.DownloadRecord
	err := r.store.Locked(func(store *nowplaying_dl.HistoryStore) (err error) {
		records, err = (*store).Load()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nowplaying_dl.ErrPersistence, err)
	}
	if len(records) > r.limit {
		records = records[:r.limit]
	}
	return records, nil
}

// Get returns the n-th most recent record, counting from 1.
func (r *Recorder) Get(n int) (nowplaying_dl.DownloadRecord, error) {
	records, err := r.List()
	if err != nil {
		return nowplaying_dl.DownloadRecord{}, err
	}
	if n < 1 || n > len(records) {
		return nowplaying_dl.DownloadRecord{}, fmt.Errorf("no history entry %d (have %d)", n, len(records))
	}
	return records[n-1], nil
}

func (r *Recorder) Clear() error {
	return r.store.Locked(func(store *nowplaying_dl.HistoryStore) error {
		if err := (*store).Clear(); err != nil {
			return fmt.Errorf("%w: %v", nowplaying_dl.ErrPersistence, err)
		}
		return nil
	})
}

func (r *Recorder) Close() error {
	return r.store.Locked(func(store *nowplaying_dl.HistoryStore) error {
		return (*store).Close()
	})
}

// MemoryStore is a HistoryStore that forgets everything when the process exits.
type MemoryStore struct {
	records *sync_.Mutexed[[]nowplaying_dl.DownloadRecord]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: sync_.NewMutexed[[]nowplaying_dl.DownloadRecord](nil)}
}

func (m *MemoryStore) Load() ([]nowplaying_dl.DownloadRecord, error) {
	return append([]nowplaying_dl.DownloadRecord(nil), m.records.Get()...), nil
}

func (m *MemoryStore) Save(records []nowplaying_dl.DownloadRecord) error {
	m.records.Set(append([]nowplaying_dl.DownloadRecord(nil), records...))
	return nil
}

func (m *MemoryStore) Clear() error {
	m.records.Set(nil)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
