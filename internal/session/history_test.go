package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/nowplaying-dl"
)

type brokenStore struct {
	MemoryStore
	loadErr error
	saves   int
}

func (b *brokenStore) Load() ([]nowplaying_dl.DownloadRecord, error) {
	return nil, b.loadErr
}

func (b *brokenStore) Save(records []nowplaying_dl.DownloadRecord) error {
	b.saves++
	return nil
}

func TestRecorderCapsHistory(t *testing.T) {
	assert := assert_.New(t)
	r := NewRecorder(nil, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 51; i++ {
		r.Record(nowplaying_dl.TrackDescriptor{Title: fmt.Sprint(i)}, fmt.Sprintf("%d.mp3", i), now.Add(time.Duration(i)*time.Minute))
	}
	records, err := r.List()
	assert.NoError(err)
	assert.Len(records, nowplaying_dl.DefaultHistoryLimit)
	assert.Equal("50.mp3", records[0].FileName)
	assert.Equal("1.mp3", records[49].FileName)

	entry, err := r.Get(2)
	assert.NoError(err)
	assert.Equal("49.mp3", entry.FileName)
	_, err = r.Get(0)
	assert.Error(err)
	_, err = r.Get(51)
	assert.Error(err)

	assert.NoError(r.Clear())
	records, err = r.List()
	assert.NoError(err)
	assert.Empty(records)
}

func TestRecorderSwallowsErrors(t *testing.T) {
	assert := assert_.New(t)
	store := &brokenStore{loadErr: errors.New("corrupt")}
	r := NewRecorder(store, 5)
	record := r.Record(nowplaying_dl.TrackDescriptor{Title: "a"}, "a.mp3", time.Now())
	assert.Equal("a.mp3", record.FileName)
	// An unreadable log is never overwritten
	assert.Equal(0, store.saves)

	_, err := r.List()
	assert.ErrorIs(err, nowplaying_dl.ErrPersistence)
}

func TestMemoryStoreCopies(t *testing.T) {
	assert := assert_.New(t)
	m := NewMemoryStore()
	records := []nowplaying_dl.DownloadRecord{{Title: "a"}}
	assert.NoError(m.Save(records))
	records[0].Title = "changed"
	loaded, err := m.Load()
	assert.NoError(err)
	assert.Equal("a", loaded[0].Title)
}
