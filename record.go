package nowplaying_dl

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is the number of records kept in the download log.
const DefaultHistoryLimit = 50

// A DownloadRecord is created for every confirmed successful download and never modified afterwards.
type DownloadRecord struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Artist       string    `json:"artist" db:"artist"`
	SourceURL    string    `json:"url" db:"url"`
	FileName     string    `json:"fileName" db:"file_name"`
	DownloadedAt time.Time `json:"downloadedAt" db:"downloaded_at"`
}

func NewDownloadRecord(d TrackDescriptor, fileName string, now time.Time) DownloadRecord {
	return DownloadRecord{
		ID:           uuid.NewString(),
		Title:        d.Title,
		Artist:       d.Artist,
		SourceURL:    d.SourceURL,
		FileName:     fileName,
		DownloadedAt: now.UTC(),
	}
}

// SongInfo formats the record as "artist - title".
func (r DownloadRecord) SongInfo() string {
	return r.Artist + " - " + r.Title
}

// HistoryStore persists the whole download log, newest first.
type HistoryStore interface {
	Load() ([]DownloadRecord, error)
	Save(records []DownloadRecord) error
	Clear() error
	Close() error
}

// PrependCapped returns a new log with record in front, truncated to at most limit entries.
func PrependCapped(log []DownloadRecord, record DownloadRecord, limit int) []DownloadRecord {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	result := make([]DownloadRecord, 0, len(log)+1)
	result = append(result, record)
	result = append(result, log...)
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
