// HTTP wiring for the workout-log backend.
// Responsibilities:
//   - Router + middleware (request IDs, panic recovery, timeouts, JSON
//     responses, credentialed CORS, request logging).
//   - Public endpoints: registration, login, token refresh, /health.
//   - Protected endpoints: PUT /users and the /workouts CRUD, gated by
//     the bearer-token middleware.
//   - Uniform {message, status} error bodies; unanticipated errors are
//     logged server-side and rendered as a bare 500.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/MorganHuegel/endurance-data-serverside/internal/store"
	"github.com/MorganHuegel/endurance-data-serverside/internal/token"
)

// Server bundles the router, the store, and the token service.
type Server struct {
	r      *chi.Mux
	store  *store.Store
	tokens *token.Service
}

// New constructs a Server, installs middleware, and registers routes.
func New(st *store.Store, tokens *token.Service, clientOrigin string) *Server {
	s := &Server{r: chi.NewRouter(), store: st, tokens: tokens}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(requestLogger)
	s.r.Use(jsonContentType)
	s.r.Use(corsFor(clientOrigin))

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Registration lives at both paths; both return a token.
	s.r.Post("/register", s.handleRegister)
	s.r.Post("/users", s.handleRegister)
	s.r.Post("/login", s.handleLogin)
	s.r.Get("/login/refresh", s.handleRefresh)

	s.r.With(s.requireAuth).Put("/users", s.handleUpdateUser)

	s.r.Route("/workouts", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleListWorkouts)
		r.Post("/", s.handleCreateWorkout)
		r.Put("/", s.handleReplaceWorkout)
		r.Delete("/{id}", s.handleDeleteWorkout)
	})

	// Fallthrough: nothing matched, so the resource does not exist.
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, http.StatusNotFound, "Not Found")
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request with status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("reqId", chimw.GetReqID(r.Context())).
			Msg("request")
	})
}

// --------------------------- response helpers ------------------------------

// apiError is the body for every deliberate error response.
type apiError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func respondJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func respondErr(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	respondJSON(w, apiError{Message: msg, Status: status})
}

// respondInternal logs the cause and renders a 500 without echoing the
// message to the client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	log.Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
	w.WriteHeader(http.StatusInternalServerError)
	respondJSON(w, map[string]string{"message": "Internal Server Error"})
}
