package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgerror"
)

const anonymousUser = "anonymous"

// Login opens a session with its own empty mapping.
//
// With auth disabled any caller gets a session and the credentials are
// ignored.
func (u *Usecase) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if u.store == nil || u.sessionID == nil {
		return LoginResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	username = strings.TrimSpace(username)
	if u.authEnabled {
		if !u.validCredentials(username, password) {
			slog.WarnContext(ctx, "login rejected", "username", username)
			return LoginResult{}, pkgerror.NewUnauthorized("invalid username or password")
		}
	} else if username == "" {
		username = anonymousUser
	}

	now := u.clock.Now().Unix()
	sessionID := u.sessionID.Generate()
	if err := u.store.CreateSession(ctx, entity.Session{
		ID:         sessionID,
		Username:   username,
		CreatedAt:  now,
		LastSeenAt: now,
	}); err != nil {
		return LoginResult{}, normalizeErr(err)
	}

	slog.InfoContext(ctx, "session opened", "session_id", sessionID, "username", username)

	return LoginResult{SessionID: sessionID, Username: username}, nil
}

// Logout drops the session and its mapping.
func (u *Usecase) Logout(ctx context.Context, sessionID string) error {
	if err := u.store.DeleteSession(ctx, sessionID); err != nil {
		return mapStoreErr(err)
	}

	slog.InfoContext(ctx, "session closed", "session_id", sessionID)
	return nil
}

// Authorize resolves a session and marks it active.
func (u *Usecase) Authorize(ctx context.Context, sessionID string) (entity.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return entity.Session{}, pkgerror.NewUnauthorized("session is required, log in first")
	}

	meta, err := u.store.TouchSession(ctx, sessionID, u.clock.Now().Unix())
	if err != nil {
		return entity.Session{}, mapStoreErr(err)
	}

	return meta, nil
}

// EvictIdle removes sessions inactive for longer than ttl.
func (u *Usecase) EvictIdle(ctx context.Context, ttl time.Duration) (int, error) {
	before := u.clock.Now().Add(-ttl).Unix()

	n, err := u.store.EvictIdle(ctx, before)
	if err != nil {
		return 0, normalizeErr(err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "idle sessions evicted", "count", n)
	}

	return n, nil
}

// SweepIdleSessions calls EvictIdle every interval until ctx is done.
func (u *Usecase) SweepIdleSessions(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 || ttl <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := u.EvictIdle(ctx, ttl); err != nil {
				slog.ErrorContext(ctx, "failed to evict idle sessions", "error", err)
			}
		}
	}
}

func (u *Usecase) validCredentials(username, password string) bool {
	want, ok := u.credentials[username]
	if !ok || username == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1
}
