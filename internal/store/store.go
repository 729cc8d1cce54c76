package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("not found")

// Store persists receipts, player summaries and channel ledgers as one JSON
// document per entity. All mutation of a player's files happens under that
// player's lock so summary deltas cannot race; ledgers lock per
// (channel, player) key.
type Store struct {
	root  string
	locks keyedMutex
}

func New(root string) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, "players"), filepath.Join(root, "ledgers"), filepath.Join(root, "archives"), filepath.Join(root, "evidence")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// EvidenceDir is where downloaded screenshots are kept.
func (s *Store) EvidenceDir() string {
	return filepath.Join(s.root, "evidence")
}

func (s *Store) playerDir(player string) string {
	return filepath.Join(s.root, "players", sanitize(player))
}

func (s *Store) receiptPath(player, id string) string {
	return filepath.Join(s.playerDir(player), "receipts", id+".json")
}

func (s *Store) summaryPath(player string) string {
	return filepath.Join(s.playerDir(player), "summary.json")
}

func (s *Store) ledgerPath(channelID, player string) string {
	return filepath.Join(s.root, "ledgers", channelID+"_"+sanitize(player)+".json")
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// sanitize turns a display name into a safe path segment. The real name is
// kept inside the documents.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) lockPlayer(player string) func() {
	return s.locks.Lock("player:" + sanitize(player))
}

func (s *Store) lockLedger(channelID, player string) func() {
	return s.locks.Lock("ledger:" + channelID + ":" + sanitize(player))
}
