package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lightlink-network/ll-whale-tracker/database/models"
	"github.com/lightlink-network/ll-whale-tracker/tracker"
	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Tracker is the live state the dashboard reports on.
type Tracker interface {
	Stats() tracker.Stats
	InFlight() int
}

type RecentRows interface {
	Latest(n int) []types.Row
}

type OutcomeStore interface {
	GetOutcomeByHash(ctx context.Context, hash string) (*models.Outcome, error)
	GetOutcomes(ctx context.Context, filter models.Filter, page int64, pageSize int64) (*models.PaginatedResult, error)
}

// API server
type Server struct {
	r    chi.Router
	log  *slog.Logger
	opts ServerOpts
}

type ServerOpts struct {
	Logger *slog.Logger
	Port   string

	Tracker Tracker
	Recent  RecentRows
	// Outcomes is optional; /v1/outcomes answers 503 without it.
	Outcomes OutcomeStore
	// Metrics is served on /metrics when set.
	Metrics http.Handler

	// CSVPath is the only file /download serves.
	CSVPath   string
	Threshold string
	RPC       string
	ChainID   string
	StartedAt time.Time
	Clock     func() time.Time
}

// Create API server
func NewServer(opts ServerOpts) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = opts.Clock()
	}
	opts.RPC = redactEndpoint(opts.RPC)

	s := &Server{
		log:  opts.Logger,
		opts: opts,
	}
	s.routes()
	return s
}

// StartServer serves HTTP until ctx is cancelled.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("📡 Server Started. API Server is now listening on http://localhost:" + s.opts.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns ann error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	w.WriteHeader(statusCode)
	err = json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// redactEndpoint keeps scheme and host; paths and credentials often carry API
// keys.
func redactEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
