// Package session persists the authentication state that survives between
// refreshes: the bearer token and the creditor id. Everything else the sync
// engine touches is refresh-scoped, so a single-file embedded store is all
// the persistence this service needs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "sessions"

// ErrNotFound is returned when no session is stored.
var ErrNotFound = errors.New("session not found")

// Config holds session store configuration.
type Config struct {
	Path string `envconfig:"SESSION_DB_PATH" default:"gocardless-sync.db"`
}

// Session is the stored authentication state.
type Session struct {
	Token      string    `json:"token"`
	CreditorID string    `json:"creditor_id"`
	Email      string    `json:"email"`
	SavedAt    time.Time `json:"saved_at"`
}

// Store wraps a BoltDB database holding the current session.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store at the given path and ensures the
// sessions bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the session for an account, replacing any previous one.
func (s *Store) Save(accountID string, session Session) error {
	session.SavedAt = time.Now().UTC()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(accountID), data)
	})
}

// Load returns the stored session for an account, or ErrNotFound.
func (s *Store) Load(accountID string) (*Session, error) {
	var session Session
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(accountID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns all stored sessions keyed by account id.
func (s *Store) List() (map[string]Session, error) {
	sessions := make(map[string]Session)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var session Session
			if err := json.Unmarshal(v, &session); err != nil {
				return err
			}
			sessions[string(k)] = session
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Delete removes the stored session for an account. Deleting a session that
// does not exist is not an error.
func (s *Store) Delete(accountID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(accountID))
	})
}
