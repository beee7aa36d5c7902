package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/usecase"
)

// Bundles is the bundler surface exposed for inspection
type Bundles interface {
	Active() []domain.BundleSnapshot
	Flush(key domain.BundleKey) bool
}

// Extractor runs the extraction heuristics without side effects
type Extractor interface {
	Extract(text, channelName string) domain.ExtractionResult
}

// JobFunc runs a scheduled job on demand
type JobFunc func(ctx context.Context) (*usecase.JobResult, error)

// Server provides the admin HTTP API: health, metrics, bundle inspection,
// dry-run extraction and manual job triggers
type Server struct {
	bundles   Bundles
	extractor Extractor
	jobs      map[string]JobFunc
	gatherer  prometheus.Gatherer
	log       zerolog.Logger

	server *http.Server
	addr   string
}

// NewServer creates a new API server
func NewServer(addr string, bundles Bundles, extractor Extractor, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	return &Server{
		bundles:   bundles,
		extractor: extractor,
		jobs:      make(map[string]JobFunc),
		gatherer:  gatherer,
		log:       log,
		addr:      addr,
	}
}

// RegisterJob exposes a job under POST /api/jobs/{name}
func (s *Server) RegisterJob(name string, fn JobFunc) {
	s.jobs[name] = fn
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/api/bundles", s.handleBundles)
	mux.HandleFunc("/api/bundles/flush", s.handleBundleFlush)
	mux.HandleFunc("/api/extract", s.handleExtract)
	mux.HandleFunc("/api/jobs/", s.handleJob)

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Str("addr", s.addr).Msg("starting admin API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============ Bundle Handlers ============

func (s *Server) handleBundles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	active := s.bundles.Active()
	s.writeJSON(w, map[string]any{"bundles": active, "count": len(active)})
}

func (s *Server) handleBundleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ChannelID string `json:"channel_id"`
		UserID    string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ChannelID == "" || req.UserID == "" {
		http.Error(w, "channel_id and user_id are required", http.StatusBadRequest)
		return
	}

	if !s.bundles.Flush(domain.BundleKey{ChannelID: req.ChannelID, UserID: req.UserID}) {
		http.Error(w, "no active bundle", http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]any{"flushed": true})
}

// ============ Extraction Handler ============

type extractResponse struct {
	ASIN           string `json:"asin,omitempty"`
	JAN            string `json:"jan,omitempty"`
	PriceCandidate int    `json:"price_candidate,omitempty"`
	StoreChain     string `json:"store_chain,omitempty"`
	StoreBranch    string `json:"store_branch,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text    string `json:"text"`
		Channel string `json:"channel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := s.extractor.Extract(req.Text, req.Channel)
	s.writeJSON(w, extractResponse{
		ASIN:           res.ASIN,
		JAN:            res.JAN,
		PriceCandidate: res.PriceCandidate,
		StoreChain:     res.StoreChain,
		StoreBranch:    res.StoreBranch,
	})
}

// ============ Job Handler ============

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Path[len("/api/jobs/"):]
	fn, ok := s.jobs[name]
	if !ok {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}

	s.log.Info().Str("job", name).Msg("job triggered via API")
	res, err := fn(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
