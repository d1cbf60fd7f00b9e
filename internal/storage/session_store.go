package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"loan-workbench/internal/models"
)

// SessionStore mirrors the signed-in session under KeySession.
type SessionStore struct {
	kv KV
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

func (s *SessionStore) Save(ctx context.Context, session *models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.kv.Set(ctx, KeySession, string(raw))
}

// Load returns the stored session, nil if none. A corrupt entry is removed
// and treated as signed out.
func (s *SessionStore) Load(ctx context.Context) (*models.Session, error) {
	raw, found, err := s.kv.Get(ctx, KeySession)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil || session.Token == "" {
		_ = s.kv.Delete(ctx, KeySession)
		return nil, nil
	}
	return &session, nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, KeySession)
}
