package database

import (
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/nowplaying-dl"
)

func TestDatabase(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "history.sqlite3")
	db, err := NewDatabase(path)
	if !assert.NoError(err) {
		return
	}

	records, err := db.Load()
	assert.NoError(err)
	assert.Empty(records)

	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	var want []nowplaying_dl.DownloadRecord
	for i, title := range []string{"晴天", "星空", "稻香"} {
		d := nowplaying_dl.TrackDescriptor{Title: title, Artist: "周杰伦", SourceURL: "https://cdn/" + title + ".mp3"}
		want = nowplaying_dl.PrependCapped(want, nowplaying_dl.NewDownloadRecord(d, nowplaying_dl.DeriveFileName(d), now.Add(time.Duration(i)*time.Minute)), 2)
	}
	assert.NoError(db.Save(want))
	assert.NoError(db.Close())

	// Reopening runs migrations again without error
	db, err = NewDatabase(path)
	if !assert.NoError(err) {
		return
	}
	defer db.Close()
	records, err = db.Load()
	assert.NoError(err)
	if assert.Len(records, 2) {
		assert.Equal("周杰伦 - 稻香.mp3", records[0].FileName)
		assert.Equal("周杰伦 - 星空.mp3", records[1].FileName)
		assert.Equal(want[0].ID, records[0].ID)
		assert.Equal(want[0].SourceURL, records[0].SourceURL)
		assert.True(want[0].DownloadedAt.Equal(records[0].DownloadedAt))
	}

	assert.NoError(db.Clear())
	records, err = db.Load()
	assert.NoError(err)
	assert.Empty(records)
}
