package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gemchat/gemchat/internal/logging"
	"github.com/gemchat/gemchat/pkg/types"
)

// WelcomeText opens every fresh session as the assistant's first turn.
const WelcomeText = "Hello! I'm your AI assistant. I'm connected to Google Gemini. How can I help you?"

// LegacyTitle is the title given to a migrated pre-sessions transcript.
const LegacyTitle = "Previous Chat"

// Store persists the session sequence through a Backend. Mutations are
// serialized so concurrent saves merge per session instead of racing
// whole-set overwrites.
type Store struct {
	backend Backend
	mu      sync.Mutex
}

// New creates a session store on top of backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load returns the persisted session sequence. An absent or unreadable
// sessions slot yields an empty sequence, never an error; losing a
// corrupt store beats refusing to start.
func (s *Store) Load(ctx context.Context) []*types.Session {
	var sessions []*types.Session
	if err := s.backend.Get(ctx, SessionsKey, &sessions); err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.Warn().Err(err).Msg("failed to load sessions, starting empty")
		}
		return []*types.Session{}
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}
	return sessions
}

// Save overwrites the full session sequence.
func (s *Store) Save(ctx context.Context, sessions []*types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, sessions)
}

func (s *Store) save(ctx context.Context, sessions []*types.Session) error {
	if err := s.backend.Put(ctx, SessionsKey, sessions); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}
	return nil
}

// SaveSession merges one session into the persisted sequence: the entry
// with a matching ID is replaced in place, an unknown session is
// prepended as the newest. Other sessions are left exactly as stored.
func (s *Store) SaveSession(ctx context.Context, sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.Load(ctx)
	replaced := false
	for i, existing := range sessions {
		if existing.ID == sess.ID {
			sessions[i] = sess
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append([]*types.Session{sess}, sessions...)
	}
	return s.save(ctx, sessions)
}

// Get returns the session with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*types.Session, error) {
	for _, sess := range s.Load(ctx) {
		if sess.ID == id {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
}

// DeleteSession removes the session with the given ID. Deleting an
// unknown ID is a no-op.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.Load(ctx)
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}
	return s.save(ctx, kept)
}

// NewSession creates an unsaved session seeded with the welcome turn.
func NewSession() *types.Session {
	now := time.Now().UnixMilli()
	return &types.Session{
		ID:    ulid.Make().String(),
		Title: types.DefaultTitle,
		Messages: []*types.Message{{
			ID:        types.WelcomeMessageID,
			Text:      WelcomeText,
			IsUser:    false,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MigrateLegacy converts the pre-sessions single transcript into a
// session prepended to the sequence, then removes the legacy slot. A
// transcript holding only the welcome turn is dropped rather than
// migrated. Running with no legacy slot is a no-op, so the migration
// is idempotent.
func (s *Store) MigrateLegacy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.backend.Exists(ctx, LegacyKey) {
		return nil
	}

	var messages []*types.Message
	if err := s.backend.Get(ctx, LegacyKey, &messages); err != nil {
		// An unreadable transcript cannot be recovered; drop the slot so
		// the next start does not trip over it again.
		logging.Warn().Err(err).Msg("legacy history unreadable, discarding")
		return s.backend.Delete(ctx, LegacyKey)
	}

	if len(messages) > 1 || (len(messages) == 1 && messages[0].ID != types.WelcomeMessageID) {
		now := time.Now().UnixMilli()
		migrated := &types.Session{
			ID:        "legacy-" + ulid.Make().String(),
			Title:     LegacyTitle,
			Messages:  messages,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sessions := append([]*types.Session{migrated}, s.Load(ctx)...)
		if err := s.save(ctx, sessions); err != nil {
			return err
		}
		logging.Info().Int("messages", len(messages)).Msg("migrated legacy history")
	}

	if err := s.backend.Delete(ctx, LegacyKey); err != nil {
		return fmt.Errorf("failed to remove legacy history: %w", err)
	}
	return nil
}
