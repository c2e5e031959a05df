package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/mkarjala/curio/internal/appraisal"
	"github.com/mkarjala/curio/internal/llm"
)

// CommittedItem is a durably persisted inventory item. The id and creation
// timestamp are assigned by the store, never by the caller.
type CommittedItem struct {
	ID          string
	PrincipalID string
	Image       llm.ImageBlob
	Appraisal   appraisal.Record
	CreatedAt   time.Time
}

// NewItem is the caller-supplied part of an item to append.
type NewItem struct {
	PrincipalID string
	Image       llm.ImageBlob
	Appraisal   appraisal.Record
}

// InventoryStore defines durable persistence for committed items. Subscribers
// receive push-based full-replace snapshots ordered by creation time,
// newest first.
type InventoryStore interface {
	Append(item NewItem) (string, error)
	GetAll() ([]CommittedItem, error)
	Subscribe() (<-chan []CommittedItem, func())
	Close() error

	// Appraisal cache methods
	GetAppraisalCache(imageHash string) (*appraisal.Record, error)
	SetAppraisalCache(imageHash string, record *appraisal.Record) error

	// Principal methods
	GetPrincipal() (string, error)
	SavePrincipal(principalID string) error
	GetSessionToken() (string, error)
	SaveSessionToken(token string) error
}

// SQLiteStore implements InventoryStore using SQLite with encrypted image
// payloads.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex

	subMu   sync.Mutex
	subs    map[int]chan []CommittedItem
	nextSub int
}

// NewSQLiteStore creates a new SQLite-based inventory store.
// The dbPath is the path to the SQLite database file.
// The encryptionKey is used to encrypt/decrypt image payloads at rest.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set file permissions (only works on creation)
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		// Ignore error if file doesn't exist yet
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
		subs:          make(map[int]chan []CommittedItem),
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		principal_id TEXT NOT NULL,
		encrypted_image TEXT NOT NULL,
		appraisal TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create items table: %w", err)
	}

	cacheQuery := `
	CREATE TABLE IF NOT EXISTS appraisal_cache (
		image_hash TEXT PRIMARY KEY,
		record TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(cacheQuery); err != nil {
		return fmt.Errorf("failed to create appraisal_cache table: %w", err)
	}

	principalQuery := `
	CREATE TABLE IF NOT EXISTS principals (
		singleton INTEGER PRIMARY KEY CHECK (singleton = 1),
		principal_id TEXT NOT NULL,
		session_token TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(principalQuery); err != nil {
		return fmt.Errorf("failed to create principals table: %w", err)
	}

	return nil
}

// Append persists a new committed item, assigning its id and creation
// timestamp, and pushes a fresh snapshot to all subscribers.
func (s *SQLiteStore) Append(item NewItem) (string, error) {
	s.mu.Lock()

	appraisalJSON, err := json.Marshal(item.Appraisal)
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("failed to marshal appraisal: %w", err)
	}

	// Images are stored in data-URI form, encrypted at rest.
	encryptedImage, err := Encrypt([]byte(item.Image.DataURI()), s.encryptionKey)
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("failed to encrypt image: %w", err)
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	_, err = s.db.Exec(`
		INSERT INTO items (id, principal_id, encrypted_image, appraisal, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, item.PrincipalID, encryptedImage, string(appraisalJSON), createdAt)
	s.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("failed to append item: %w", err)
	}

	s.notifySubscribers()

	return id, nil
}

// GetAll returns all committed items ordered by creation time, newest first.
func (s *SQLiteStore) GetAll() ([]CommittedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadAll()
}

func (s *SQLiteStore) loadAll() ([]CommittedItem, error) {
	rows, err := s.db.Query(`
		SELECT id, principal_id, encrypted_image, appraisal, created_at
		FROM items ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []CommittedItem
	for rows.Next() {
		var item CommittedItem
		var encryptedImage, appraisalJSON string

		if err := rows.Scan(&item.ID, &item.PrincipalID, &encryptedImage, &appraisalJSON, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		imageURI, err := Decrypt(encryptedImage, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt image for item %s: %w", item.ID, err)
		}
		item.Image, err = llm.ParseDataURI(string(imageURI))
		if err != nil {
			return nil, fmt.Errorf("failed to parse image for item %s: %w", item.ID, err)
		}

		if err := json.Unmarshal([]byte(appraisalJSON), &item.Appraisal); err != nil {
			return nil, fmt.Errorf("failed to unmarshal appraisal for item %s: %w", item.ID, err)
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

// Subscribe registers a push-based subscriber. Each update replaces the full
// materialized list; the current snapshot is delivered immediately. The
// returned function cancels the subscription and closes the channel.
func (s *SQLiteStore) Subscribe() (<-chan []CommittedItem, func()) {
	ch := make(chan []CommittedItem, 1)

	snapshot, err := s.GetAll()
	if err != nil {
		log.Error().Err(err).Msg("failed to load initial snapshot for subscriber")
	}

	// Register and deliver the initial snapshot under the same lock, so a
	// concurrent append cannot fill the buffer before the initial send.
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if err == nil {
		ch <- snapshot
	}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// notifySubscribers pushes a fresh full snapshot to every subscriber. A
// subscriber that has not drained its previous snapshot has it replaced, so
// slow consumers only ever see the latest state.
func (s *SQLiteStore) notifySubscribers() {
	snapshot, err := s.GetAll()
	if err != nil {
		log.Error().Err(err).Msg("failed to load snapshot for subscribers")
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}

// GetAppraisalCache retrieves a cached appraisal record by image hash.
// Returns nil, nil if not cached.
func (s *SQLiteStore) GetAppraisalCache(imageHash string) (*appraisal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recordJSON string
	err := s.db.QueryRow(
		"SELECT record FROM appraisal_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&recordJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query appraisal cache: %w", err)
	}

	var record appraisal.Record
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached appraisal: %w", err)
	}
	return &record, nil
}

// SetAppraisalCache stores an appraisal record keyed by image hash.
func (s *SQLiteStore) SetAppraisalCache(imageHash string, record *appraisal.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal appraisal: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO appraisal_cache (image_hash, record)
		VALUES (?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			record = excluded.record,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, string(recordJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert appraisal cache: %w", err)
	}
	return nil
}

// GetPrincipal returns the stored anonymous principal id, or "" if none
// has been created yet.
func (s *SQLiteStore) GetPrincipal() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var principalID string
	err := s.db.QueryRow("SELECT principal_id FROM principals WHERE singleton = 1").Scan(&principalID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query principal: %w", err)
	}
	return principalID, nil
}

// SavePrincipal stores the anonymous principal id.
func (s *SQLiteStore) SavePrincipal(principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO principals (singleton, principal_id)
		VALUES (1, ?)
		ON CONFLICT(singleton) DO UPDATE SET principal_id = excluded.principal_id
	`, principalID)
	if err != nil {
		return fmt.Errorf("failed to save principal: %w", err)
	}
	return nil
}

// GetSessionToken returns the cached session token for the stored principal,
// or "" if none has been issued yet.
func (s *SQLiteStore) GetSessionToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var token string
	err := s.db.QueryRow("SELECT session_token FROM principals WHERE singleton = 1").Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session token: %w", err)
	}
	return token, nil
}

// SaveSessionToken caches a session token alongside the stored principal.
// A principal must exist before a token can be saved for it.
func (s *SQLiteStore) SaveSessionToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE principals SET session_token = ? WHERE singleton = 1", token)
	if err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no principal to attach session token to")
	}
	return nil
}

// Close closes the database connection and all subscriptions.
func (s *SQLiteStore) Close() error {
	s.subMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subMu.Unlock()

	return s.db.Close()
}
