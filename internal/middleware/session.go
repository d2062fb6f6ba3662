package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/faizanr27/food-facts/internal/requestctx"
)

const (
	sessionCookieName = "FOODFACTS_SESSION"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// Session is the signed cookie payload. The ID identifies a browser for
// request bookkeeping; it carries no account.
type Session struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sessions encodes and decodes the session cookie.
type Sessions struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewSessions builds a cookie codec. An empty hashKey is replaced by a
// process-ephemeral random key; blockKey is optional and enables encryption.
func NewSessions(hashKey, blockKey []byte, secure bool) (*Sessions, error) {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, fmt.Errorf("session: failed to generate hash key")
		}
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("session: block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(sessionMaxAge / time.Second))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Sessions{codec: codec, secure: secure}, nil
}

// Middleware loads the session from its cookie or starts a new one, and
// stores it in the request context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.read(r)
		if !ok {
			sess = &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
			s.Save(w, r, sess)
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Save writes the session cookie. It must run before the response header is
// written. An encoding failure is logged and leaves the cookie unchanged.
func (s *Sessions) Save(w http.ResponseWriter, r *http.Request, sess *Session) {
	value, err := s.codec.Encode(sessionCookieName, sess)
	if err != nil {
		requestctx.Logger(r.Context()).Warn("encode session cookie failed",
			zap.String("session", sess.ID),
			zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge / time.Second),
	})
}

func (s *Sessions) read(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	var sess Session
	if err := s.codec.Decode(sessionCookieName, c.Value, &sess); err != nil {
		return nil, false
	}
	if _, err := uuid.Parse(sess.ID); err != nil {
		return nil, false
	}
	return &sess, true
}

// SessionFrom returns the request session, or an empty session when the
// middleware did not run.
func SessionFrom(ctx context.Context) *Session {
	if sess, ok := ctx.Value(ctxKeySession).(*Session); ok && sess != nil {
		return sess
	}
	return &Session{}
}

// ViewerID returns the session ID used to group a browser's requests.
func ViewerID(r *http.Request) string {
	if id := SessionFrom(r.Context()).ID; id != "" {
		return id
	}
	return r.RemoteAddr
}
