package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dia-Souci/IsDBI/pipeline"
)

const maxUploadBytes = 32 << 20

type standardChain interface {
	ProcessStandard(ctx context.Context, inputText string) (pipeline.StandardOutput, error)
	AnswerQuestion(ctx context.Context, userContext, question string) (string, error)
}

type relevanceScorer interface {
	TopKWithPercentages(ctx context.Context, query string, k int) pipeline.Report
}

type uploadReader interface {
	ExtractUpload(src io.Reader, name string) (string, error)
}

// handler bundles the request handlers' dependencies. Handlers share no
// mutable state; every request runs its chain independently.
type handler struct {
	log     *slog.Logger
	chain   standardChain
	scorer  relevanceScorer
	uploads uploadReader
	results int
}

type challengeRequest struct {
	Context  string `json:"context"`
	Question string `json:"question"`
}

type analysisResponse struct {
	Analysis   string `json:"Analysis"`
	Suggestion string `json:"suggestion"`
	Validation string `json:"validation"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) decodeChallenge(w http.ResponseWriter, r *http.Request) (challengeRequest, bool) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body.")
		return req, false
	}
	if req.Context == "" || req.Question == "" {
		respondError(w, http.StatusBadRequest, "Missing context or question.")
		return req, false
	}

	return req, true
}

// challenge1 answers a question grounded in the supplied context and
// retrieved passages.
func (h *handler) challenge1(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChallenge(w, r)
	if !ok {
		return
	}

	h.log.Info("processing question", "path", r.URL.Path)
	answer, err := h.chain.AnswerQuestion(r.Context(), req.Context, req.Question)
	if err != nil {
		h.log.Error("qa chain failed", "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// challenge2 reports the most relevant standard passages with normalized
// relevance percentages.
func (h *handler) challenge2(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChallenge(w, r)
	if !ok {
		return
	}

	h.log.Info("finding relevant rules", "path", r.URL.Path)
	query := truncate(req.Context+" "+req.Question, 1000)
	report := h.scorer.TopKWithPercentages(r.Context(), query, h.results)

	respondJSON(w, http.StatusOK, report)
}

// challenge3 runs the full review, enhancement and validation chain over
// the supplied standard text. The question field is required but unused,
// matching the documented behavior of this route.
func (h *handler) challenge3(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChallenge(w, r)
	if !ok {
		return
	}

	h.log.Info("processing standard", "path", r.URL.Path)
	out, err := h.chain.ProcessStandard(r.Context(), req.Context)
	if err != nil {
		h.log.Error("agent chain failed", "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, analysisResponse{
		Analysis:   out.Summary,
		Suggestion: out.Suggestion,
		Validation: out.Validation,
	})
}

// challenge4 runs the standard chain over an uploaded document.
func (h *handler) challenge4(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		respondError(w, http.StatusBadRequest, "Expected multipart/form-data")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart body.")
		return
	}

	file, header, err := r.FormFile("file")
	question := r.FormValue("question")
	if err != nil || question == "" {
		respondError(w, http.StatusBadRequest, "Missing file or question.")
		return
	}
	defer file.Close()

	h.log.Info("processing file upload", "file", header.Filename)
	text, err := h.uploads.ExtractUpload(file, header.Filename)
	if err != nil {
		h.log.Error("upload extraction failed", "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.chain.ProcessStandard(r.Context(), text)
	if err != nil {
		h.log.Error("agent chain failed", "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, analysisResponse{
		Analysis:   out.Summary,
		Suggestion: out.Suggestion,
		Validation: out.Validation,
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// truncate caps text at limit characters, not bytes, so multi-byte text
// is never cut mid-rune.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}

	return text
}
