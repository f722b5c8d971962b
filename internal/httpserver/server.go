// internal/httpserver/server.go
//
// HTTP server wiring for the flip-cards backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, logging).
//   - Public endpoints: "/", "/health", POST /game/new.
//   - Session endpoints (token required): GET /game/{id}, POST /game/{id}/flip,
//     POST /game/{id}/restart, GET /game/{id}/ws.
//
// Notes:
//   - A session token (JWT, "sid" claim) is issued by /game/new and must match
//     the {id} in the path. It is accepted as a bearer header, a cookie, or a
//     token query parameter.
//   - Colors of closed cards are never sent to the client.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcards/internal/game"
	"github.com/robalobadob/flipcards/internal/session"
)

// Options configures a Server.
type Options struct {
	ClientOrigin string
	JWTSecret    string
	TokenTTL     time.Duration
}

// Server bundles router, session manager and token issuer.
type Server struct {
	r        *chi.Mux
	sessions *session.Manager
	tokens   tokens
	origin   string
	secure   bool
}

// New constructs a Server, installs middleware, and registers routes.
func New(m *session.Manager, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	s := &Server{
		r:        chi.NewRouter(),
		sessions: m,
		tokens:   tokens{secret: []byte(opts.JWTSecret), ttl: opts.TokenTTL},
		origin:   opts.ClientOrigin,
		secure:   strings.HasPrefix(opts.ClientOrigin, "https://"),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)   // zerolog access log
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Plain request/response routes get a bounded handler time; the
	// WebSocket route below is long-lived.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"flipcards-go","endpoints":["/health","POST /game/new","GET /game/{id}","POST /game/{id}/flip","POST /game/{id}/restart","GET /game/{id}/ws"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "sessions": s.sessions.Len()})
		})
		r.Post("/game/new", s.handleNewGame)

		r.With(s.requireSession).Get("/game/{id}", s.handleGetGame)
		r.With(s.requireSession).Post("/game/{id}/flip", s.handleFlip)
		r.With(s.requireSession).Post("/game/{id}/restart", s.handleRestart)
	})
	s.r.With(s.requireSession).Get("/game/{id}/ws", s.handleWS)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one debug line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// ctxSessionKey is the context key type for the authorized *session.Session.
type ctxSessionKey struct{}

// requireSession verifies the session token against {id} and places the
// live session in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sid, err := s.tokens.verify(tokenFromRequest(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if sid != id {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		sess, err := s.sessions.Get(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("session", id).Msg("load session")
			writeError(w, http.StatusInternalServerError, "load_failed")
			return
		}
		ctx := context.WithValue(r.Context(), ctxSessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(ctxSessionKey{}).(*session.Session)
	return sess
}

// ------------------------------ GAME ---------------------------------------

// cardRes is a card as sent to the client; Color is omitted while closed.
type cardRes struct {
	Color   string `json:"color,omitempty"`
	Open    bool   `json:"isOpen"`
	Exposed bool   `json:"isExposed"`
}

// viewRes is game.View with closed colors masked.
type viewRes struct {
	Cards     []cardRes  `json:"cards"`
	Score     int        `json:"score"`
	Timer     int        `json:"timer"`
	Countdown string     `json:"countdown"`
	Running   bool       `json:"running"`
	Round     int        `json:"round"`
	Phase     game.Phase `json:"phase"`
	Message   string     `json:"message"`
	Version   uint64     `json:"version"`
}

func toViewRes(v game.View) viewRes {
	cards := make([]cardRes, len(v.Cards))
	for i, c := range v.Cards {
		cards[i] = cardRes{Open: c.Open, Exposed: c.Exposed}
		if c.Open {
			cards[i].Color = c.Color
		}
	}
	return viewRes{
		Cards:     cards,
		Score:     v.Score,
		Timer:     v.Timer,
		Countdown: v.Countdown,
		Running:   v.Running,
		Round:     v.Round,
		Phase:     v.Phase,
		Message:   v.Message,
		Version:   v.Version,
	}
}

// newGameRes is the payload for POST /game/new.
type newGameRes struct {
	GameID string  `json:"gameId"`
	Token  string  `json:"token"`
	State  viewRes `json:"state"`
}

// handleNewGame starts a session and issues its token (body + cookie).
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("create session")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	tok, exp, err := s.tokens.sign(sess.ID())
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	setSessionCookie(w, tok, exp, s.secure)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(newGameRes{GameID: sess.ID(), Token: tok, State: toViewRes(sess.View())})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(toViewRes(sessionFrom(r).View()))
}

// flipReq is the payload for POST /game/{id}/flip.
type flipReq struct {
	Index *int `json:"index"`
}

// handleFlip applies a flip. Rejected flips (locked, out of range, already
// open) are not errors: the unchanged view is returned.
func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var req flipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "missing_index")
		return
	}
	v, err := sessionFrom(r).Flip(*req.Index)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(toViewRes(v))
}

// handleRestart begins restart sequencing; the new deck arrives after game.DealDelay.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	v, err := sessionFrom(r).Restart()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(toViewRes(v))
}

// ------------------------------- errors ------------------------------------

func writeError(w http.ResponseWriter, status int, code string) {
	http.Error(w, `{"error":"`+code+`"}`, status)
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrClosed) {
		writeError(w, http.StatusGone, "session_closed")
		return
	}
	log.Error().Err(err).Msg("session event")
	writeError(w, http.StatusInternalServerError, "internal")
}
