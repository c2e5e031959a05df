package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mkarjala/curio/internal/appraisal"
	"github.com/mkarjala/curio/internal/imaging"
	"github.com/mkarjala/curio/internal/llm"
	"github.com/mkarjala/curio/internal/storage"
)

var (
	// ErrAuthenticationRequired is returned when Submit is attempted with no
	// principal. No side effect has happened when it is returned.
	ErrAuthenticationRequired = errors.New("inventory: authentication required")

	// ErrStoreWriteFailed is returned when the durable append failed after a
	// successful appraisal. The computed record is discarded, not retried.
	ErrStoreWriteFailed = errors.New("inventory: store write failed")
)

// PendingItem is an inventory entry visible locally before durable
// persistence completes. Its id is assigned client-side and is unrelated to
// the id the store assigns on commit.
type PendingItem struct {
	ID        string
	Image     llm.ImageBlob
	CreatedAt time.Time
}

// Item is one entry of the combined inventory view. Appraisal is nil while
// the item is pending.
type Item struct {
	ID        string
	Image     llm.ImageBlob
	Appraisal *appraisal.Record
	Pending   bool
	CreatedAt time.Time
}

// NotifyFunc receives a generic user-facing failure message. Diagnostic
// detail is logged, never surfaced.
type NotifyFunc func(message string)

// Session reconciles optimistic pending items against the durable store for
// one user. It exclusively owns the pending list; committed items are
// observed via the store subscription and never mutated locally.
type Session struct {
	principalID string
	appraiser   appraisal.Appraiser
	store       storage.InventoryStore
	notify      NotifyFunc

	mu        sync.RWMutex
	pending   []PendingItem
	committed []storage.CommittedItem
}

// NewSession creates a session for the given principal. An empty principal id
// means no authenticated principal exists; Submit will refuse to run.
func NewSession(principalID string, appraiser appraisal.Appraiser, store storage.InventoryStore, notify NotifyFunc) *Session {
	if notify == nil {
		notify = func(message string) {
			log.Warn().Str("message", message).Msg("unhandled failure notification")
		}
	}
	return &Session{
		principalID: principalID,
		appraiser:   appraiser,
		store:       store,
		notify:      notify,
	}
}

// Watch consumes store snapshots until the context is cancelled. Each update
// replaces the committed list wholesale; no incremental merging is done.
func (s *Session) Watch(ctx context.Context) {
	updates, cancel := s.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			s.mu.Lock()
			s.committed = snapshot
			s.mu.Unlock()
		}
	}
}

// Submit analyzes an uploaded file and commits it to the inventory. A pending
// item becomes visible immediately; it is removed once the committed item has
// been durably appended, or on any failure. No partial record is ever
// persisted, and a failed submission performs no retry.
func (s *Session) Submit(ctx context.Context, file io.Reader) error {
	if s.principalID == "" {
		return ErrAuthenticationRequired
	}

	img, err := imaging.Process(file)
	if err != nil {
		s.notify("Could not read the selected file.")
		return err
	}

	pendingID := s.addPending(img)

	record, err := s.appraiser.Appraise(ctx, img)
	if err != nil {
		s.removePending(pendingID)
		log.Error().Err(err).Msg("appraisal failed")
		s.notify("There was an error processing your image. Please try again.")
		return err
	}

	if _, err := s.store.Append(storage.NewItem{
		PrincipalID: s.principalID,
		Image:       img,
		Appraisal:   *record,
	}); err != nil {
		s.removePending(pendingID)
		log.Error().Err(err).Str("descriptiveName", record.DescriptiveName).Msg("durable append failed, discarding appraisal")
		s.notify("There was an error processing your image. Please try again.")
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	// The committed item arrives through the store subscription; removing the
	// pending entry here without merging avoids duplicate-entry races.
	s.removePending(pendingID)
	return nil
}

func (s *Session) addPending(img llm.ImageBlob) string {
	item := PendingItem{
		ID:        uuid.NewString(),
		Image:     img,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.pending = append([]PendingItem{item}, s.pending...)
	s.mu.Unlock()

	return item.ID
}

func (s *Session) removePending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.pending {
		if item.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// View returns the combined inventory: all pending items, most recent first,
// followed by all committed items in store order. The two groups are never
// interleaved by timestamp.
func (s *Session) View() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Item, 0, len(s.pending)+len(s.committed))
	for _, p := range s.pending {
		items = append(items, Item{
			ID:        p.ID,
			Image:     p.Image,
			Pending:   true,
			CreatedAt: p.CreatedAt,
		})
	}
	for _, c := range s.committed {
		record := c.Appraisal
		items = append(items, Item{
			ID:        c.ID,
			Image:     c.Image,
			Appraisal: &record,
			CreatedAt: c.CreatedAt,
		})
	}
	return items
}

// Records returns the appraisal records of all committed items, in store
// order. This is the input set for bundle suggestions.
func (s *Session) Records() []appraisal.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]appraisal.Record, 0, len(s.committed))
	for _, c := range s.committed {
		records = append(records, c.Appraisal)
	}
	return records
}
