// Package extract provides HTTP handlers for running the holdings extraction
// engine on a single uploaded filing and for managing issuer overrides.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"holdings_extract/pkg/core/config"
	"holdings_extract/pkg/core/facts"
	"holdings_extract/pkg/core/ingest"
	"holdings_extract/pkg/core/pipeline"
	"holdings_extract/pkg/core/report"
	"holdings_extract/pkg/core/store"
	"holdings_extract/pkg/core/utils"
)

// maxBody caps uploaded documents.
const maxBody = 64 << 20

// ExtractRequest is the body of POST /api/extract.
type ExtractRequest struct {
	FilingID  string          `json:"filing_id"`
	CIK       string          `json:"cik"`
	PeriodEnd string          `json:"period_end"`
	HTML      string          `json:"html"`
	Facts     json.RawMessage `json:"facts,omitempty"` // JSON or Hjson fact list
	Publish   bool            `json:"publish"`
}

// Handler holds dependencies for the extraction endpoints.
type Handler struct {
	Engine    *pipeline.Engine
	Overrides *config.OverrideRegistry
	Sink      pipeline.Sink       // optional, used when a request asks to publish
	Repo      *store.PostgresRepo // optional, serves stored reports
}

// NewHandler creates a handler.
func NewHandler(engine *pipeline.Engine, overrides *config.OverrideRegistry) *Handler {
	return &Handler{Engine: engine, Overrides: overrides}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/extract", h.HandleExtract)
	mux.HandleFunc("/api/report", h.HandleReport)
	mux.HandleFunc("/api/holdings", h.HandleHoldings)
	mux.HandleFunc("/api/overrides", h.HandleOverrides)
}

func cors(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// =============================================================================
// EXTRACTION
// =============================================================================

// HandleExtract handles POST /api/extract and returns the ExtractionOutcome.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	cors(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var req ExtractRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var raw []facts.RawFact
	if len(req.Facts) > 0 && string(req.Facts) != "null" {
		if err := decodeFacts(req.Facts, &raw); err != nil {
			http.Error(w, fmt.Sprintf("Invalid facts: %v", err), http.StatusBadRequest)
			return
		}
	}
	if req.FilingID == "" {
		req.FilingID = "upload"
	}

	ref := ingest.FilingRef{ID: req.FilingID, CIK: req.CIK, PeriodEnd: req.PeriodEnd}
	out, err := h.Engine.Extract(ingest.NewFiling(ref, req.HTML, raw))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrNoInput) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	if req.Publish {
		if h.Sink == nil {
			http.Error(w, "Publishing not configured", http.StatusServiceUnavailable)
			return
		}
		if err := h.Sink.Publish(r.Context(), out); err != nil {
			http.Error(w, fmt.Sprintf("Failed to publish: %v", err), http.StatusInternalServerError)
			return
		}
	}

	log.Printf("[Handler] %s: %d records, coverage %.2f", out.FilingID, len(out.Records), out.Coverage.Overall)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// decodeFacts accepts a JSON array of facts or a string holding JSON or
// Hjson text.
func decodeFacts(data json.RawMessage, raw *[]facts.RawFact) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		data = json.RawMessage(text)
	}
	_, err := utils.SmartParse(data, raw)
	return err
}

// HandleReport handles GET /api/report?id=... and renders the stored
// coverage report of a filing.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	cors(w, "GET")
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Repo == nil {
		http.Error(w, "Database not configured", http.StatusServiceUnavailable)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	out, err := h.Repo.LoadOutcome(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	page, err := report.RenderHTML(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, page)
}

// HandleHoldings handles GET /api/holdings?entity=... and returns the stored
// records of one issuer across all published filings.
func (h *Handler) HandleHoldings(w http.ResponseWriter, r *http.Request) {
	cors(w, "GET")
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Repo == nil {
		http.Error(w, "Database not configured", http.StatusServiceUnavailable)
		return
	}
	entity := strings.TrimSpace(r.URL.Query().Get("entity"))
	if entity == "" {
		http.Error(w, "entity is required", http.StatusBadRequest)
		return
	}
	holdings, err := h.Repo.HoldingsByEntity(r.Context(), entity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if holdings == nil {
		holdings = []json.RawMessage{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"entity":   entity,
		"holdings": holdings,
	})
}

// =============================================================================
// OVERRIDES
// =============================================================================

// HandleOverrides handles GET (list), POST (add or replace) and DELETE
// (?cik=...) on /api/overrides. Changes are saved to the override file.
func (h *Handler) HandleOverrides(w http.ResponseWriter, r *http.Request) {
	cors(w, "GET, POST, DELETE")
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	case http.MethodPost:
		var ov config.IssuerOverride
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&ov); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.Overrides.Add(&ov); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[Handler] Override saved for CIK %s", ov.CIK)
	case http.MethodDelete:
		cik := r.URL.Query().Get("cik")
		if cik == "" {
			http.Error(w, "cik is required", http.StatusBadRequest)
			return
		}
		h.Overrides.Remove(cik)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.Method != http.MethodGet {
		if err := h.Overrides.SaveToDisk(); err != nil {
			http.Error(w, fmt.Sprintf("Failed to save overrides: %v", err), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"overrides": h.Overrides.List()})
}
