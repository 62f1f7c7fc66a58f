package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"intrinsicvalue/internal/coordinator"
	"intrinsicvalue/internal/directory"
)

// maxSample caps the n parameter of the sample endpoint
const maxSample = 100

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "intrinsicvalue",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleIndex renders the page with a fresh constituent sample
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := &pageDisplay{}
	s.coord.ShowSample(page)
	s.renderPage(w, http.StatusOK, page)
}

// handleConfirm values the ticker submitted through the page form
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	page := &pageDisplay{Ticker: coordinator.Normalize(r.PostFormValue("ticker"))}
	s.coord.ShowSample(page)

	// The outcome, including failures, is rendered onto the page
	if err := s.coord.Confirm(r.Context(), page.Ticker, page); err != nil {
		s.log.Debug().Err(err).Str("ticker", page.Ticker).Msg("confirmation failed")
	}

	s.renderPage(w, http.StatusOK, page)
}

// handleSample returns n random constituents
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxSample {
			s.writeError(w, http.StatusBadRequest, "n must be an integer between 1 and 100")
			return
		}
		n = v
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"constituents": s.coord.Sample(n),
	})
}

// handleCompany describes a constituent without valuing it
func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	symbol := coordinator.Normalize(chi.URLParam(r, "symbol"))

	info, err := s.coord.Describe(symbol)
	if errors.Is(err, directory.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"info":   info,
	})
}

// handleValuation runs a full valuation and returns the report
func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	report, err := s.coord.Run(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeJSON(w, statusForKind(report.ErrorKind), report)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

// statusForKind maps a failure kind to its HTTP status
func statusForKind(kind coordinator.ErrorKind) int {
	switch kind {
	case coordinator.KindNotFound:
		return http.StatusNotFound
	case coordinator.KindDataUnavailable, coordinator.KindDegenerateMath:
		return http.StatusUnprocessableEntity
	case coordinator.KindProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
