package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// revocationSweepInterval controls how often expired revocation entries
// are cleaned up.
const revocationSweepInterval = 5 * time.Minute

// Gate is the session gate: it owns registration, login, token validation
// and logout for the HTTP API.
//
// Tokens are stateless JWTs, so validation normally never touches the
// database. Logout is handled by recording the token's session ID in an
// in-memory revocation set until the token would have expired anyway; a
// process restart therefore forgets revocations, but also invalidates
// nothing that was not already bounded by the token TTL.
type Gate struct {
	users      UserRepository
	secret     string
	ttlMinutes int

	// revoked maps session IDs to their token expiry time.
	revoked map[string]time.Time
	mu      sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewGate creates a session gate and starts the revocation sweeper.
func NewGate(users UserRepository, secret string, ttlMinutes int) *Gate {
	g := &Gate{
		users:      users,
		secret:     secret,
		ttlMinutes: ttlMinutes,
		revoked:    make(map[string]time.Time),
		done:       make(chan struct{}),
	}
	go g.sweepLoop()
	return g
}

// Close stops the revocation sweeper.
func (g *Gate) Close() {
	g.closeOnce.Do(func() { close(g.done) })
}

// Register creates a new user account with a hashed password.
//
// Username format is validated here so the check is identical regardless
// of which API surface called. A duplicate username returns
// ErrUsernameExists and leaves the store unchanged.
func (g *Gate) Register(ctx context.Context, username, password string) (*User, error) {
	if !IsValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if password == "" {
		return nil, ErrMissingPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Username:     username,
		PasswordHash: hash,
	}
	if err := g.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies credentials and issues a session token.
//
// Unknown usernames and wrong passwords both return ErrInvalidCredentials
// so the response does not leak which usernames exist.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (string, *User, error) {
	user, err := g.users.GetByUsername(ctx, username)
	if err != nil {
		// Burn roughly the same time as a real verification so response
		// timing does not distinguish unknown users.
		_, _ = VerifyPassword(password, dummyHash) //nolint:errcheck // timing equalisation only
		return "", nil, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("verifying password: %w", err)
	}
	if !match {
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateSessionToken(user, g.secret, g.ttlMinutes)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Validate checks a session token and returns its claims.
// Revoked sessions fail with ErrTokenRevoked even if the JWT itself is
// still valid.
func (g *Gate) Validate(token string) (*SessionClaims, error) {
	claims, err := ParseSessionToken(token, g.secret)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	_, revoked := g.revoked[claims.SessionID]
	g.mu.Unlock()
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Invalidate revokes a session token (logout).
//
// An already-invalid or expired token is not an error: the caller's goal
// is "this token must no longer work", which is already true.
func (g *Gate) Invalidate(token string) {
	claims, err := ParseSessionToken(token, g.secret)
	if err != nil {
		return
	}

	expiry := time.Now().Add(time.Duration(g.ttlMinutes) * time.Minute)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	g.mu.Lock()
	g.revoked[claims.SessionID] = expiry
	g.mu.Unlock()
}

// sweepLoop periodically drops revocation entries whose tokens have
// expired on their own.
func (g *Gate) sweepLoop() {
	ticker := time.NewTicker(revocationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			g.sweep(time.Now())
		}
	}
}

// sweep removes revocation entries that expired before now.
func (g *Gate) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for sid, expiry := range g.revoked {
		if now.After(expiry) {
			delete(g.revoked, sid)
		}
	}
}

// dummyHash is a valid Argon2id hash of a throwaway value, used to keep
// login timing uniform for unknown usernames.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$ZmFrZWhhc2hmYWtlaGFzaGZha2VoYXNoZmFrZWhhc2g"
