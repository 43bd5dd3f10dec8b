// ABOUTME: Durable client-side session state backed by BadgerDB
// ABOUTME: Holds the bearer token, selected organization, role flag and cached UI state

package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v3"
)

// Well-known keys.
const (
	KeyToken  = "token"
	KeyOrg    = "org"
	KeyRole   = "role"
	KeyDrawer = "ui/drawer"
)

// RoleAdmin gates the admin menu entries.
const RoleAdmin = "ADMIN"

// Store is the on-disk key/value store for session state.
type Store struct {
	db *badger.DB
	mu sync.RWMutex
}

// DefaultDir returns the XDG data path for the session store.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "leadopp", "session")
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get returns the value for key, or "" when unset.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Set stores value under key. An empty value deletes the key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if value == "" {
			return txn.Delete([]byte(key))
		}
		return txn.Set([]byte(key), []byte(value))
	})
}

// SetLogin stores the token and organization in one transaction.
func (s *Store) SetLogin(token, org string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(KeyToken), []byte(token)); err != nil {
			return err
		}
		if org == "" {
			return nil
		}
		return txn.Set([]byte(KeyOrg), []byte(org))
	})
}

// Token, Org and Role read synchronously; a read error reads as unset.
func (s *Store) Token() string {
	v, _ := s.Get(KeyToken)
	return v
}

func (s *Store) Org() string {
	v, _ := s.Get(KeyOrg)
	return v
}

func (s *Store) Role() string {
	v, _ := s.Get(KeyRole)
	return v
}

func (s *Store) SetRole(role string) error { return s.Set(KeyRole, role) }
func (s *Store) SetOrg(org string) error   { return s.Set(KeyOrg, org) }

// Authenticated reports whether both token and organization are stored.
func (s *Store) Authenticated() bool {
	return s.Token() != "" && s.Org() != ""
}

// Keys lists every stored key.
func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Clear drops every key: tokens, organization, role and cached UI state.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.DropAll()
}
