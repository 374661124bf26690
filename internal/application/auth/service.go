// Package auth logs shoppers in with Telegram init data and manages the
// server-side session that holds their remote API token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/application"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/session"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"
)

const (
	authService    = "auth-service"
	useCaseLogin   = "auth.login"
	useCaseLogout  = "auth.logout"
	useCaseRestore = "auth.restore"
)

var (
	ErrInitDataRequired = errors.New("auth: init data is required")
	ErrRejected         = errors.New("auth: telegram login rejected")
)

// TelegramAuth is the remote login. The init-data signature is verified there.
type TelegramAuth interface {
	AuthTelegram(ctx context.Context, initData string) (*Identity, error)
}

// Identity is what the remote login returns.
type Identity struct {
	OK          bool
	AccessToken string
	UserID      int64
	TelegramID  int64
	IsAdmin     bool
}

type TokenIssuer interface {
	Issue(sessionID string, userID int64, isAdmin bool) (string, time.Time, error)
}

// CheckoutResetter drops a session's local checkout state.
type CheckoutResetter interface {
	Reset(ctx context.Context, sessionID string) error
}

type Service struct {
	remote   TelegramAuth
	storage  session.Storage
	tokens   TokenIssuer
	checkout CheckoutResetter
	newID    func() string
	probe    *application.Probe
}

func NewService(remote TelegramAuth, storage session.Storage, tokens TokenIssuer, checkout CheckoutResetter, tel observability.Observability) *Service {
	return &Service{
		remote:   remote,
		storage:  storage,
		tokens:   tokens,
		checkout: checkout,
		newID:    uuid.NewString,
		probe:    application.NewProbe(tel, authService),
	}
}

type LoginInput struct {
	InitData string
	// PreviousSessionID, when set, is logged out first.
	PreviousSessionID string
}

type LoginResult struct {
	Token     string          `json:"access_token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Session   session.Session `json:"session"`
}

// Login exchanges init data for a remote token, persists a fresh session and
// issues a BFF token naming it. Checkout state starts empty.
func (s *Service) Login(ctx context.Context, in LoginInput) (_ *LoginResult, err error) {
	ctx, call := s.probe.Begin(ctx, useCaseLogin, "Login")
	defer func() { call.End(err) }()

	initData := strings.TrimSpace(in.InitData)
	if initData == "" {
		call.Fail("INIT_DATA_REQUIRED")
		return nil, ErrInitDataRequired
	}

	if in.PreviousSessionID != "" {
		if err := s.end(ctx, in.PreviousSessionID); err != nil {
			call.Logger().Warn("previous_session_clear_failed", observability.F("error", err.Error()))
		}
	}

	id, err := s.remote.AuthTelegram(ctx, initData)
	if err != nil {
		call.Fail("REMOTE_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if !id.OK || id.AccessToken == "" {
		call.Fail("REMOTE_REJECTED")
		return nil, ErrRejected
	}

	sid := s.newID()
	store, err := session.NewStore(s.storage, sid)
	if err != nil {
		call.Fail("SESSION_INIT_FAILED")
		return nil, err
	}
	sess := session.Session{
		Token:      id.AccessToken,
		UserID:     id.UserID,
		TelegramID: id.TelegramID,
		IsAdmin:    id.IsAdmin,
	}
	if err := store.SetAuthenticated(ctx, sess); err != nil {
		call.Fail("SESSION_PERSIST_FAILED")
		return nil, err
	}
	if err := s.checkout.Reset(ctx, sid); err != nil {
		call.Logger().Warn("checkout_reset_failed", observability.F("error", err.Error()))
	}

	token, exp, err := s.tokens.Issue(sid, id.UserID, id.IsAdmin)
	if err != nil {
		call.Fail("TOKEN_ISSUE_FAILED")
		return nil, err
	}

	sess, _ = store.Current()
	call.Span().SetAttributes(
		attribute.Int64("user.id", id.UserID),
		attribute.Bool("user.is_admin", id.IsAdmin),
	)
	call.With(observability.F("user_id", id.UserID))
	return &LoginResult{Token: token, ExpiresAt: exp, Session: sess}, nil
}

// Restore loads the session named by sid. It fails with session.ErrNotFound
// unless token, user id and telegram id are all stored.
func (s *Service) Restore(ctx context.Context, sid string) (_ session.Session, err error) {
	store, err := session.NewStore(s.storage, sid)
	if err != nil {
		return session.Session{}, err
	}
	sess, err := store.Restore(ctx)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		logger := s.probe.Logger().With(observability.F("use_case", useCaseRestore))
		logger.Warn("session_restore_failed", observability.F("error", err.Error()))
	}
	return sess, err
}

func (s *Service) Logout(ctx context.Context, sid string) (err error) {
	ctx, call := s.probe.Begin(ctx, useCaseLogout, "Logout")
	defer func() { call.End(err) }()

	if err := s.end(ctx, sid); err != nil {
		call.Fail("SESSION_CLEAR_FAILED")
		return err
	}
	return nil
}

func (s *Service) end(ctx context.Context, sid string) error {
	store, err := session.NewStore(s.storage, sid)
	if err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	return s.checkout.Reset(ctx, sid)
}
