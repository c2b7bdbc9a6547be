package boltdb

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/alanbriolat/nowplaying-dl"
)

var Buckets = struct {
	Metadata []byte
	History  []byte
}{
	Metadata: []byte("__metadata__"),
	History:  []byte("history"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

// HistoryKey holds the whole download log as one JSON array, newest first.
var HistoryKey = []byte(nowplaying_dl.HistoryKey)

const currentVersion = 1

// Store is a bbolt-backed nowplaying_dl.HistoryStore.
type Store struct {
	*bbolt.DB
}

var _ nowplaying_dl.HistoryStore = &Store{}

func New(path string) (_ *Store, err error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.History); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}
		if version > currentVersion {
			return fmt.Errorf("database version %d is newer than supported version %d", version, currentVersion)
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db}, nil
}

func (s *Store) Load() (records []nowplaying_dl.DownloadRecord, err error) {
	err = s.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(Buckets.History).Get(HistoryKey)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &records)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) Save(records []nowplaying_dl.DownloadRecord) error {
	if records == nil {
		records = []nowplaying_dl.DownloadRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.History).Put(HistoryKey, data)
	})
}

func (s *Store) Clear() error {
	return s.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.History).Delete(HistoryKey)
	})
}
