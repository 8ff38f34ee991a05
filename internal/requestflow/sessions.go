package requestflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CreateInput selects where a session's datasets come from. With
// DatasetIDs nil the selection is loaded from the selection store under
// Scope, falling back to the catalog's default selection when nothing was
// stored. Unknown ids are dropped.
type CreateInput struct {
	Scope      string
	DatasetIDs []string
}

type SessionStore struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore(cfg Config) (*SessionStore, error) {
	if cfg.Matcher == nil {
		return nil, errors.New("requestflow: matcher is required")
	}
	if cfg.Matcher.Catalog() == nil {
		return nil, errors.New("requestflow: matcher has no catalog")
	}
	return &SessionStore{
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*Session),
	}, nil
}

func (st *SessionStore) Requests() *RequestStore {
	return st.cfg.Requests
}

// Selection is the store sessions load their initial selection from.
func (st *SessionStore) Selection() SelectionStore {
	return st.cfg.Selection
}

func (st *SessionStore) Create(ctx context.Context, in CreateInput) (*Session, error) {
	ids := in.DatasetIDs
	if ids == nil {
		stored, found, err := st.cfg.Selection.Load(ctx, in.Scope)
		if err != nil {
			return nil, fmt.Errorf("load selection: %w", err)
		}
		if found {
			ids = stored
		} else {
			ids = st.cfg.Matcher.Catalog().DefaultSelection()
		}
	}
	ids = dedupe(ids)
	selected := st.cfg.Matcher.Catalog().Resolve(ids)
	if dropped := len(ids) - len(selected); dropped > 0 {
		st.cfg.Logger.Debug("unknown dataset ids dropped from selection", "dropped", dropped)
	}

	sess := newSession(newSessionID(), in.Scope, selected, st.cfg)
	st.mu.Lock()
	st.sessions[sess.id] = sess
	st.mu.Unlock()
	if st.cfg.Observer != nil {
		st.cfg.Observer.SessionOpened()
	}
	st.cfg.Logger.Info("session created", "session_id", sess.id, "datasets", len(selected))
	return sess, nil
}

func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Delete discards a session, cancelling any pending recompute.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return false
	}
	sess.close()
	if st.cfg.Observer != nil {
		st.cfg.Observer.SessionClosed()
	}
	return true
}

// Sweep discards sessions idle for longer than maxIdle and returns how many
// were removed.
func (st *SessionStore) Sweep(maxIdle time.Duration) int {
	now := st.cfg.Clock()
	st.mu.RLock()
	var stale []string
	for id, sess := range st.sessions {
		if now.Sub(sess.idleSince()) > maxIdle {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if st.Delete(id) {
			n++
		}
	}
	if n > 0 {
		st.cfg.Logger.Info("idle sessions swept", "count", n)
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (st *SessionStore) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st.Sweep(maxIdle)
		}
	}
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
