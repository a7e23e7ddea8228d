// Package bolt persists the most recently fetched allowlist snapshot in
// a local bbolt database so a restart never loses it.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/havengate/havengate/internal/haven/domain"
	"github.com/havengate/havengate/internal/haven/repos/allowlist"
)

var (
	bucketSnapshot = []byte("snapshot")
	bucketMeta     = []byte("meta")

	keyDocument = []byte("document")
	keyFetched  = []byte("fetched")
	keyEtag     = []byte("etag")
)

// snapshotStore implements allowlist.Store using bbolt.
type snapshotStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (allowlist.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshot); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &snapshotStore{db: db}, nil
}

func (s *snapshotStore) Close() error { return s.db.Close() }

// Save replaces the persisted snapshot with snap. The document payload
// and its metadata are written in one transaction so a reader never sees
// a torn update.
func (s *snapshotStore) Save(snap *domain.AllowlistSnapshot, etag string) error {
	payload, err := json.Marshal(allowlist.Document{
		Version: snap.Version,
		Entries: snap.Entries,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	fetched := make([]byte, 8)
	binary.BigEndian.PutUint64(fetched, uint64(snap.FetchedAt.Unix()))

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSnapshot).Put(keyDocument, payload); err != nil {
			return err
		}
		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keyFetched, fetched); err != nil {
			return err
		}
		return meta.Put(keyEtag, []byte(etag))
	})
}

// Load restores the persisted snapshot, re-validating the document on
// the way in: a corrupted database must not poison the fallback chain,
// so a bad payload reads as "nothing persisted" plus an error for the
// caller to log.
func (s *snapshotStore) Load() (*domain.AllowlistSnapshot, string, error) {
	var (
		payload []byte
		fetched int64
		etag    string
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketSnapshot).Get(keyDocument); v != nil {
			payload = make([]byte, len(v))
			copy(payload, v)
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyFetched); len(v) == 8 {
			fetched = int64(binary.BigEndian.Uint64(v))
		}
		if v := meta.Get(keyEtag); v != nil {
			etag = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	if payload == nil {
		return nil, "", nil
	}

	doc, err := allowlist.DecodeDocument(payload)
	if err != nil {
		return nil, "", fmt.Errorf("persisted snapshot invalid: %w", err)
	}
	snap, err := doc.Snapshot(domain.SourceCached, time.Unix(fetched, 0).UTC())
	if err != nil {
		return nil, "", fmt.Errorf("persisted snapshot invalid: %w", err)
	}
	return snap, etag, nil
}

var _ allowlist.Store = (*snapshotStore)(nil)
