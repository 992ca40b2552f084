// Package session holds the companion-service credential. The token is
// stored as-is and attached to relay requests; it is never verified
// locally, only inspected for an expiry claim so operators can see why a
// relay lost its authorization.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/errorterry/algotrack-agent/internal/kvstore"
)

// Auth is the persisted login state. A zero AccessToken means logged out;
// the profile fields are display-only.
type Auth struct {
	AccessToken     string `json:"accessToken"`
	Nickname        string `json:"nickname,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// LoggedIn reports whether a credential is present.
func (a Auth) LoggedIn() bool { return a.AccessToken != "" }

// TokenExpiry returns the exp claim of the access token without verifying
// the signature. ok is false when there is no token, the token does not
// parse, or it carries no expiry.
func (a Auth) TokenExpiry() (time.Time, bool) {
	if a.AccessToken == "" {
		return time.Time{}, false
	}
	token, _, err := jwt.NewParser().ParseUnverified(a.AccessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Load reads the current auth state from the store. Absent keys yield a
// zero Auth.
func Load(ctx context.Context, store kvstore.Store) (Auth, error) {
	var a Auth
	var err error
	if a.AccessToken, err = readOptional(ctx, store, kvstore.KeyAccessToken); err != nil {
		return Auth{}, err
	}
	if a.Nickname, err = readOptional(ctx, store, kvstore.KeyNickname); err != nil {
		return Auth{}, err
	}
	if a.ProfileImageURL, err = readOptional(ctx, store, kvstore.KeyProfileImageURL); err != nil {
		return Auth{}, err
	}
	return a, nil
}

// Save persists the auth state. Empty profile fields clear their keys so a
// partial login payload does not leave stale values behind.
func Save(ctx context.Context, store kvstore.Store, a Auth) error {
	if a.AccessToken == "" {
		return fmt.Errorf("refusing to save session without access token")
	}
	if err := store.Set(ctx, kvstore.KeyAccessToken, a.AccessToken); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := writeOptional(ctx, store, kvstore.KeyNickname, a.Nickname); err != nil {
		return err
	}
	return writeOptional(ctx, store, kvstore.KeyProfileImageURL, a.ProfileImageURL)
}

// Clear removes the whole auth state.
func Clear(ctx context.Context, store kvstore.Store) error {
	for _, key := range []string{kvstore.KeyAccessToken, kvstore.KeyNickname, kvstore.KeyProfileImageURL} {
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	return nil
}

func readOptional(ctx context.Context, store kvstore.Store, key string) (string, error) {
	v, ok, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

func writeOptional(ctx context.Context, store kvstore.Store, key, value string) error {
	if value == "" {
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
		return nil
	}
	if err := store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
