package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrCorruptStore is returned when the backing document exists but cannot be parsed
var ErrCorruptStore = errors.New("store is corrupt")

// Store persists one ledger per guild
type Store interface {
	LoadLedger(ctx context.Context, guildID string) (Ledger, error)
	SaveLedger(ctx context.Context, guildID string, ledger Ledger) error
	// Update runs fn on the guild's current ledger and saves the result atomically.
	// Nothing is written when fn returns an error.
	Update(ctx context.Context, guildID string, fn func(Ledger) (Ledger, error)) error
	Guilds(ctx context.Context) ([]string, error)
	Close() error
}

// OpenStore opens the backend selected in cfg
func OpenStore(cfg StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendJSON, "":
		return NewJSONStore(cfg.DataFile, cfg.ResetOnCorrupt, logger), nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// JSONStore keeps every guild's ledger in a single JSON document
type JSONStore struct {
	path           string
	resetOnCorrupt bool
	logger         *zap.Logger
	mu             sync.Mutex
}

// NewJSONStore returns a store backed by the document at path.
// With resetOnCorrupt a malformed document reads as empty instead of failing.
func NewJSONStore(path string, resetOnCorrupt bool, logger *zap.Logger) *JSONStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStore{path: path, resetOnCorrupt: resetOnCorrupt, logger: logger}
}

// LoadLedger returns the guild's ledger, or an empty one when there is none
func (s *JSONStore) LoadLedger(_ context.Context, guildID string) (Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return nil, err
	}
	return ledgerOf(doc, guildID), nil
}

// SaveLedger replaces the guild's ledger and rewrites the whole document
func (s *JSONStore) SaveLedger(_ context.Context, guildID string, ledger Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	doc[guildID] = ledger
	return s.writeDocument(doc)
}

// Update applies fn to the guild's ledger under the store lock
func (s *JSONStore) Update(_ context.Context, guildID string, fn func(Ledger) (Ledger, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	updated, err := fn(ledgerOf(doc, guildID))
	if err != nil {
		return err
	}
	doc[guildID] = updated
	return s.writeDocument(doc)
}

// Guilds lists the guild ids that have at least one event
func (s *JSONStore) Guilds(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, ledger := range doc {
		if len(ledger) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op; the document is not held open between calls
func (s *JSONStore) Close() error { return nil }

// readDocument loads the document (caller must hold lock)
func (s *JSONStore) readDocument() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	doc := Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		if s.resetOnCorrupt {
			s.logger.Warn("Ignoring malformed store document", zap.String("path", s.path), zap.Error(err))
			return Document{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// writeDocument saves the document with backup (caller must hold lock)
func (s *JSONStore) writeDocument(doc Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return err
	}

	// Write to temp file first
	tmpFile := s.path + TmpSuffix
	if err := os.WriteFile(tmpFile, buf.Bytes(), FilePermissions); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpFile, err)
	}

	// Keep the previous document as backup
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.path+BackupSuffix); err != nil {
			s.logger.Warn("Failed to create backup", zap.String("path", s.path), zap.Error(err))
		}
	}

	return os.Rename(tmpFile, s.path)
}

func ledgerOf(doc Document, guildID string) Ledger {
	if ledger, ok := doc[guildID]; ok && ledger != nil {
		return ledger
	}
	return Ledger{}
}
