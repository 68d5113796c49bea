package oracle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketReplies = []byte("replies")

// ReplyStore persists successful completions on disk so a re-run over the
// same opportunity does not pay for identical calls again
type ReplyStore struct {
	db *bbolt.DB
}

// OpenReplyStore opens or creates the store at path
func OpenReplyStore(path string) (*ReplyStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create reply store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open reply store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketReplies)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &ReplyStore{db: db}, nil
}

// Get returns the stored reply for key
func (s *ReplyStore) Get(key string) (string, bool) {
	var text string
	found := false
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketReplies).Get([]byte(key)); v != nil {
			text = string(v)
			found = true
		}
		return nil
	})
	return text, found
}

// Put stores a reply under key
func (s *ReplyStore) Put(key, text string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketReplies).Put([]byte(key), []byte(text))
	})
}

// Len returns the number of stored replies
func (s *ReplyStore) Len() int {
	n := 0
	_ = s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketReplies).Stats().KeyN
		return nil
	})
	return n
}

// Close closes the underlying database
func (s *ReplyStore) Close() error {
	return s.db.Close()
}

// stored consults a ReplyStore before the wrapped oracle. Keys are scoped by
// namespace so replies from different providers or models never mix.
type stored struct {
	next      Oracle
	store     *ReplyStore
	namespace string
}

// WithReplyStore wraps o with a persistent reply store. Closing the returned
// oracle (see Close) closes the store.
func WithReplyStore(o Oracle, store *ReplyStore, namespace string) Oracle {
	return &stored{next: o, store: store, namespace: namespace}
}

func (s *stored) Complete(ctx context.Context, req Request) (string, error) {
	key := s.namespace + "/" + ComputeHash(req)
	if text, ok := s.store.Get(key); ok {
		return text, nil
	}
	text, err := s.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if err := s.store.Put(key, text); err != nil {
		return "", fmt.Errorf("failed to store reply: %w", err)
	}
	return text, nil
}

func (s *stored) Name() string {
	return s.next.Name()
}

func (s *stored) Close() error {
	return s.store.Close()
}

// Close releases resources held by o, such as a reply store. Oracles holding
// nothing are left alone.
func Close(o Oracle) error {
	if c, ok := o.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
