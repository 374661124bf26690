package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

var (
	// ErrNotFound is returned by Storage for missing keys and by Store.Restore
	// when the persisted session is missing or incomplete.
	ErrNotFound     = errors.New("session: not found")
	ErrInvalid      = errors.New("session: token, user id and telegram id are required")
	ErrNamespaceNil = errors.New("session: namespace is required")
)

// Persistence keys. They mirror what the Mini-App kept in local storage.
const (
	KeyToken      = "token"
	KeyUserID     = "userId"
	KeyTelegramID = "telegramId"
	KeyIsAdmin    = "isAdmin"
)

var allKeys = []string{KeyToken, KeyUserID, KeyTelegramID, KeyIsAdmin}

// Session is an authenticated shopper. Token is the remote API bearer token.
type Session struct {
	ID         string `json:"-"`
	Token      string `json:"-"`
	UserID     int64  `json:"user_id"`
	TelegramID int64  `json:"telegram_id"`
	IsAdmin    bool   `json:"is_admin"`
}

func (s Session) Validate() error {
	if s.Token == "" || s.UserID == 0 || s.TelegramID == 0 {
		return ErrInvalid
	}
	return nil
}

// Storage is a flat string key/value store. Get returns ErrNotFound for a
// missing key.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store owns one session's lifecycle on top of Storage. Keys are scoped by
// namespace so many sessions can share one Storage.
type Store struct {
	storage   Storage
	namespace string

	mu      sync.RWMutex
	current *Session
}

func NewStore(storage Storage, namespace string) (*Store, error) {
	if namespace == "" {
		return nil, ErrNamespaceNil
	}
	return &Store{storage: storage, namespace: namespace}, nil
}

func (s *Store) key(k string) string {
	return "session:" + s.namespace + ":" + k
}

// Restore loads the persisted session. It succeeds only when token, user id
// and telegram id are all present; isAdmin is true only for the literal "true".
func (s *Store) Restore(ctx context.Context) (Session, error) {
	token, err := s.get(ctx, KeyToken)
	if err != nil {
		return Session{}, err
	}
	rawUser, err := s.get(ctx, KeyUserID)
	if err != nil {
		return Session{}, err
	}
	rawTelegram, err := s.get(ctx, KeyTelegramID)
	if err != nil {
		return Session{}, err
	}
	isAdmin, err := s.get(ctx, KeyIsAdmin)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	userID, uerr := strconv.ParseInt(rawUser, 10, 64)
	telegramID, terr := strconv.ParseInt(rawTelegram, 10, 64)
	if uerr != nil || terr != nil {
		return Session{}, fmt.Errorf("%w: malformed identifiers", ErrNotFound)
	}

	sess := Session{
		ID:         s.namespace,
		Token:      token,
		UserID:     userID,
		TelegramID: telegramID,
		IsAdmin:    isAdmin == "true",
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return sess, nil
}

// SetAuthenticated persists sess and makes it current.
func (s *Store) SetAuthenticated(ctx context.Context, sess Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	values := map[string]string{
		KeyToken:      sess.Token,
		KeyUserID:     strconv.FormatInt(sess.UserID, 10),
		KeyTelegramID: strconv.FormatInt(sess.TelegramID, 10),
		KeyIsAdmin:    strconv.FormatBool(sess.IsAdmin),
	}
	for _, k := range allKeys {
		if err := s.storage.Set(ctx, s.key(k), values[k]); err != nil {
			return fmt.Errorf("session: persist %s: %w", k, err)
		}
	}

	sess.ID = s.namespace
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return nil
}

// Clear forgets the session both in memory and in storage.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	keys := make([]string, 0, len(allKeys))
	for _, k := range allKeys {
		keys = append(keys, s.key(k))
	}
	if err := s.storage.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// Current returns the session last restored or set on this Store.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

func (s *Store) get(ctx context.Context, k string) (string, error) {
	v, err := s.storage.Get(ctx, s.key(k))
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}
