// Package session persists the client's authenticated session in a local
// bbolt file: the token pair, the account identity, and the stable device
// id this installation presents to the server.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/akarpenko/notesync/internal/common"
)

var (
	bucketSession = []byte("session")
	bucketDevice  = []byte("device")

	sessionKey  = []byte("current")
	deviceIDKey = []byte("id")
)

// Session is the persisted authenticated state. It survives application
// restarts, so a refresh token issued in a previous run stays usable until
// logout or server-side expiry.
type Session struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store is a bbolt-backed session store.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketDevice} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DeviceID returns this installation's device id, generating and persisting
// one on first use. The id never changes afterwards, so the server sees the
// same device across logins and restarts.
func (s *Store) DeviceID() (string, error) {
	var id string

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDevice)

		if data := bucket.Get(deviceIDKey); data != nil {
			id = string(data)
			return nil
		}

		id = uuid.NewString()
		return bucket.Put(deviceIDKey, []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("failed to load device id: %w", err)
	}

	return id, nil
}

// Save stores the session, replacing any previous one.
func (s *Store) Save(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Put(sessionKey, data)
	})
}

// Get returns the stored session or common.ErrNotFound when logged out.
func (s *Store) Get() (*Session, error) {
	var session *Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSession).Get(sessionKey)
		if data == nil {
			return common.ErrNotFound
		}

		session = &Session{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// UpdateAccessToken replaces only the access token of the stored session,
// as happens after a transparent refresh. The read-modify-write runs in a
// single transaction so a concurrent Save or Clear cannot interleave.
func (s *Store) UpdateAccessToken(accessToken string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)

		data := bucket.Get(sessionKey)
		if data == nil {
			return common.ErrNotFound
		}

		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		session.AccessToken = accessToken
		updated, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return bucket.Put(sessionKey, updated)
	})
}

// Clear deletes the stored session. Clearing an absent session is a no-op;
// the device id is kept.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(sessionKey)
	})
}
