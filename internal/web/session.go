package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/logging"
)

type ctxKey int

const sessionKey ctxKey = iota

// withSession resolves the session cookie. Requests without a live session
// carry no session ID; one is started by the first upload.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClient(r.Context(), r.RemoteAddr, r.UserAgent())
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil && s.service.HasSession(c.Value) {
			ctx = withSessionID(ctx, c.Value)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureSession returns r unchanged when it has a session. Otherwise it
// starts one, sets the cookie and returns r carrying the new ID.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) *http.Request {
	if sessionID(r) != "" {
		return r
	}
	ctx := r.Context()
	sid := s.service.NewSession(ctx)
	http.SetCookie(w, s.sessionCookie(r, sid, 0))
	logging.FromContext(ctx).Debug("session started", "session_id", sid)
	return r.WithContext(withSessionID(ctx, sid))
}

// endSession drops the session's files and expires the cookie.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if sid := sessionID(r); sid != "" {
		s.service.EndSession(r.Context(), sid)
		logging.FromContext(r.Context()).Debug("session ended")
	}
	http.SetCookie(w, s.sessionCookie(r, "", -1))
}

func (s *Server) sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

func withSessionID(ctx context.Context, sid string) context.Context {
	ctx = context.WithValue(ctx, sessionKey, sid)
	return logging.WithSessionID(ctx, sid)
}

func sessionID(r *http.Request) string {
	sid, _ := r.Context().Value(sessionKey).(string)
	return sid
}

// sessionFiles lists the session's files; no session means no files.
func (s *Server) sessionFiles(r *http.Request) ([]core.FileMeta, error) {
	sid := sessionID(r)
	if sid == "" {
		return nil, nil
	}
	return s.service.Files(sid)
}
