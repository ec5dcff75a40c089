// Package session manages Redfish sessions: creation on login, token
// lookup for authenticated requests, expiry, and the dynamic
// SessionCollection resource.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CollectionURI is where the session collection lives in the resource tree.
const CollectionURI = "/redfish/v1/SessionService/Sessions"

// ErrNotFound is returned when no session matches the given id or token.
var ErrNotFound = errors.New("session not found")

// Session represents an authenticated Redfish session.
type Session struct {
	ID        string
	Token     string
	Username  string
	CreatedAt time.Time
}

// URI returns the session's resource URI under the collection.
func (s *Session) URI() string {
	return CollectionURI + "/" + s.ID
}

// Body returns the session resource document. Marshal cannot fail
// here: the value is a map of plain strings.
func (s *Session) Body() []byte {
	body, _ := json.Marshal(map[string]any{
		"@odata.id":   s.URI(),
		"@odata.type": "#Session.v1_1_8.Session",
		"Id":          s.ID,
		"Name":        "User Session",
		"UserName":    s.Username,
	})
	return body
}

// Service manages sessions with database persistence
type Service struct {
	sessions map[string]*Session // Key: session ID
	byToken  map[string]*Session // Key: session token
	timeout  time.Duration
	mu       sync.RWMutex
	db       *sql.DB
}

// New creates a new session service. Sessions older than timeout are
// treated as expired on lookup and removed by the reaper.
func New(db *sql.DB, timeout time.Duration) *Service {
	s := &Service{
		sessions: make(map[string]*Session),
		byToken:  make(map[string]*Session),
		timeout:  timeout,
		db:       db,
	}

	// Load surviving sessions from database
	if err := s.loadFromDatabase(); err != nil {
		log.Printf("Warning: failed to load sessions from database: %v", err)
	}

	return s
}

// Create opens a new session for the given user and issues a token.
func (s *Service) Create(username string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
	s.byToken[sess.Token] = sess

	// Persist to database
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, token, username, created_at) VALUES (?, ?, ?, ?)",
		sess.ID, sess.Token, sess.Username, sess.CreatedAt,
	)
	if err != nil {
		log.Printf("Warning: failed to persist session to database: %v", err)
	}

	log.Printf("Session created: %s for user %s", sess.ID, sess.Username)
	return sess, nil
}

// Get returns the session with the given id.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists || s.expired(sess) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// GetByToken returns the session matching an X-Auth-Token value.
func (s *Service) GetByToken(token string) (*Session, error) {
	s.mu.RLock()
	sess, exists := s.byToken[token]
	s.mu.RUnlock()

	if !exists || s.expired(sess) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session (logout).
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return ErrNotFound
	}

	delete(s.sessions, id)
	delete(s.byToken, sess.Token)

	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		log.Printf("Warning: failed to delete session from database: %v", err)
	}

	log.Printf("Session deleted: %s", id)
	return nil
}

// List returns all live sessions ordered by creation time, oldest
// first, so repeated reads of the collection render identical bodies.
func (s *Service) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if !s.expired(sess) {
			sessions = append(sessions, sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// expired reports whether a session is past the configured timeout.
func (s *Service) expired(sess *Session) bool {
	return s.timeout > 0 && time.Since(sess.CreatedAt) > s.timeout
}

// loadFromDatabase restores persisted sessions on startup.
func (s *Service) loadFromDatabase() error {
	rows, err := s.db.Query("SELECT id, token, username, created_at FROM sessions")
	if err != nil {
		return fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Token, &sess.Username, &sess.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan session: %w", err)
		}
		if s.expired(&sess) {
			continue
		}
		s.sessions[sess.ID] = &sess
		s.byToken[sess.Token] = &sess
		count++
	}

	if count > 0 {
		log.Printf("Restored %d sessions from database", count)
	}
	return rows.Err()
}

// prune removes expired sessions from memory and the database.
func (s *Service) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if !s.expired(sess) {
			continue
		}
		delete(s.sessions, id)
		delete(s.byToken, sess.Token)
		if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
			log.Printf("Warning: failed to delete expired session from database: %v", err)
		}
		log.Printf("Session expired: %s", id)
	}
}
