package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"gaussfit/adapters/report"
	"gaussfit/internal/errors"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"analyses": s.store.Len(),
	})
}

// handleCreateAnalysis runs an analysis and stores it
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to read request body"))
		return
	}
	if len(body) > MaxBodyBytes {
		writeError(w, errors.InvalidInput("request body too large"))
		return
	}

	req, err := ParseAnalysisRequest(body, s.defaults)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), acquireWindow)
	defer cancel()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		writeError(w, errors.Unavailable("too many analyses in progress, try again later"))
		return
	}
	analysis, err := s.analyzer.Run(req.Title, req.Tokens, req.Options)
	s.sem.Release(1)
	if err != nil {
		writeError(w, err)
		return
	}
	// a bin width the data cannot use is the caller's mistake
	if errors.IsCode(analysis.HistogramErr, errors.CodeInvalidInput) {
		writeError(w, analysis.HistogramErr)
		return
	}

	s.store.Put(analysis)
	s.logger.Info("stored analysis %s (%d tokens)", analysis.ID, len(req.Tokens))

	w.Header().Set("Location", "/api/analyses/"+analysis.ID)
	writeJSON(w, http.StatusCreated, NewAnalysisResponse(analysis))
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewAnalysisResponse(a))
}

// handleReport renders ?format=text|markdown|html (text by default)
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "text", "txt":
		var buf bytes.Buffer
		if err := report.WriteText(&buf, a); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, report.Markdown(a))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(report.HTML(a))
	default:
		writeError(w, errors.InvalidInput("unknown report format "+format))
	}
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := report.BuildWorkbook(a)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to render workbook"))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="analysis-`+a.ID+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// statusFor maps error codes to HTTP statuses
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeParse, errors.CodeInvalidInput, errors.CodeConfigInvalid,
		errors.CodeValidationError, errors.CodeInsufficientData:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{"error": errorDTO(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
