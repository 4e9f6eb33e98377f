// Package rest provides the HTTP API for submitting extracts and
// inspecting ledger completeness.
package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/ingest"
)

// Submitter runs submissions; the orchestrator satisfies it.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) (*ingest.Receipt, error)
	SubmitManual(ctx context.Context, rec ingest.ManualRecord) (*ingest.Receipt, error)
}

// LedgerReader answers completeness queries.
type LedgerReader interface {
	LastDate(ctx context.Context, t model.DataType) (time.Time, error)
	MissingDates(ctx context.Context, t model.DataType, now time.Time, limit int) ([]time.Time, error)
}

// Server is the REST API server.
type Server struct {
	addr          string
	site          string
	maxUploadSize int64
	submitter     Submitter
	ledger        LedgerReader
	log           *slog.Logger
	mux           *http.ServeMux
	server        *http.Server
}

// Config configures the server.
type Config struct {
	Addr          string
	Site          string
	MaxUploadSize int64
	Submitter     Submitter
	Ledger        LedgerReader
	Log           *slog.Logger
}

// NewServer creates a new REST API server.
func NewServer(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 64 << 20
	}
	s := &Server{
		addr:          cfg.Addr,
		site:          cfg.Site,
		maxUploadSize: cfg.MaxUploadSize,
		submitter:     cfg.Submitter,
		ledger:        cfg.Ledger,
		log:           cfg.Log,
		mux:           http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /v1/extracts/{type}", s.handleSubmit)
	s.mux.HandleFunc("POST /v1/sptgd", s.handleSPTGD)
	s.mux.HandleFunc("GET /v1/types/{type}/missing", s.handleMissing)
	s.mux.HandleFunc("GET /v1/types/{type}/last", s.handleLast)
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	t, ok := model.TypeFromSlug(r.PathValue("type"))
	if !ok {
		jsonError(w, "unknown extract type", http.StatusNotFound)
		return
	}

	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		jsonError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", r.FormValue("date"))
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	receipt, err := s.submitter.Submit(r.Context(), model.Submission{
		Type:          t,
		Site:          s.site,
		ReportingDate: date,
		Content:       content,
	})
	if err != nil {
		s.submitError(w, t, err)
		return
	}

	jsonResponse(w, map[string]any{
		"token":  receipt.Token,
		"type":   string(receipt.Type),
		"date":   receipt.Date.Format("2006-01-02"),
		"tables": receipt.Tables,
	})
}

// submitError maps pipeline failures to API responses. Malformed files
// get a single generic message: operators re-export the file, they do
// not debug column lists.
func (s *Server) submitError(w http.ResponseWriter, t model.DataType, err error) {
	switch {
	case cferrors.IsMalformedExtract(err):
		s.log.Warn("rejected malformed extract", "type", string(t), "error", err)
		jsonError(w, "the file is not in the expected format, please re-upload the correct file",
			http.StatusUnprocessableEntity)
	case cferrors.IsCode(err, cferrors.CodeBadDate):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case cferrors.IsCode(err, cferrors.CodeUnknownType):
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Error("submission failed", "type", string(t), "error", err)
		jsonError(w, "ingestion failed", http.StatusInternalServerError)
	}
}

type sptgdRequest struct {
	Date                string `json:"date"`  // YYYY-MM-DD
	Heure               string `json:"heure"` // HH:MM, optional
	Securite            bool   `json:"securite"`
	TauxDispo           bool   `json:"taux_dispo"`
	Preventif           bool   `json:"preventif"`
	GmaoCentralise      bool   `json:"gmao_centralise"`
	DemandeIntervention bool   `json:"demande_intervention"`
}

func (s *Server) handleSPTGD(w http.ResponseWriter, r *http.Request) {
	var req sptgdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if req.Heure != "" {
		clock, err := time.Parse("15:04", req.Heure)
		if err != nil {
			jsonError(w, "heure must be HH:MM", http.StatusBadRequest)
			return
		}
		date = date.Add(time.Duration(clock.Hour())*time.Hour +
			time.Duration(clock.Minute())*time.Minute)
	}

	receipt, err := s.submitter.SubmitManual(r.Context(), ingest.ManualRecord{
		Date:                date,
		Securite:            req.Securite,
		TauxDispo:           req.TauxDispo,
		Preventif:           req.Preventif,
		GmaoCentralise:      req.GmaoCentralise,
		DemandeIntervention: req.DemandeIntervention,
	})
	if err != nil {
		if cferrors.IsCode(err, cferrors.CodeBadDate) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("manual record failed", "error", err)
		jsonError(w, "failed to record entry", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"token": receipt.Token})
}

func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	t, ok := model.TypeFromSlug(r.PathValue("type"))
	if !ok {
		jsonError(w, "unknown extract type", http.StatusNotFound)
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	missing, err := s.ledger.MissingDates(r.Context(), t, time.Now(), limit)
	if err != nil {
		s.log.Error("missing-dates query failed", "type", string(t), "error", err)
		jsonError(w, "query failed", http.StatusInternalServerError)
		return
	}

	dates := make([]string, 0, len(missing))
	for _, d := range missing {
		dates = append(dates, d.Format("02/01/2006"))
	}
	jsonResponse(w, map[string]any{
		"type":    string(t),
		"missing": dates,
	})
}

func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	t, ok := model.TypeFromSlug(r.PathValue("type"))
	if !ok {
		jsonError(w, "unknown extract type", http.StatusNotFound)
		return
	}

	last, err := s.ledger.LastDate(r.Context(), t)
	if err != nil {
		s.log.Error("last-date query failed", "type", string(t), "error", err)
		jsonError(w, "query failed", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{
		"type": string(t),
		"last": last.Format("2006-01-02"),
	})
}

// Helper functions

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
