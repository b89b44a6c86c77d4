// Package api exposes the journal's JSON routes over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"example.com/fitjournal/internal/domain"
)

// Route paths served by the dispatcher.
const (
	PathPrefix        = "/api"
	PathHealth        = "/api/health"
	PathPRs           = "/api/prs"
	PathReviews       = "/api/reviews"
	PathChallenge     = "/api/challenge"
	PathChallengeJoin = "/api/challenge/join"
)

// maxJoinBody bounds the join payload; larger bodies fall back to the default name.
const maxJoinBody = 16 << 10

type route struct {
	method string
	path   string
}

// Handler maps API requests to the domain service and hands every other path to the asset
// server.
type Handler struct {
	service *domain.Service
	assets  http.Handler
	logger  *zap.Logger
	routes  map[route]http.HandlerFunc
}

// NewHandler builds a Handler. assets may be nil, in which case non-API paths are 404.
func NewHandler(service *domain.Service, assets http.Handler, logger *zap.Logger) *Handler {
	if assets == nil {
		assets = http.NotFoundHandler()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{service: service, assets: assets, logger: logger}
	h.routes = map[route]http.HandlerFunc{
		{http.MethodGet, PathHealth}:         health,
		{http.MethodGet, PathPRs}:            h.listPRs,
		{http.MethodGet, PathReviews}:        h.listReviews,
		{http.MethodGet, PathChallenge}:      h.getChallenge,
		{http.MethodPost, PathChallengeJoin}: h.joinChallenge,
	}
	return h
}

// RegisterRoutes wires the dispatcher to the mux as the catch-all handler.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/", h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, PathPrefix) {
		h.assets.ServeHTTP(w, r)
		return
	}

	if fn, ok := h.routes[route{r.Method, r.URL.Path}]; ok {
		fn(w, r)
		return
	}
	writeError(w, http.StatusNotFound, "not found")
}

// health never touches the store so it keeps answering when the document is unusable.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (h *Handler) listPRs(w http.ResponseWriter, r *http.Request) {
	db, err := h.service.Document(r.Context())
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, db.PRs)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	db, err := h.service.Document(r.Context())
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, db.Reviews)
}

func (h *Handler) getChallenge(w http.ResponseWriter, r *http.Request) {
	db, err := h.service.Document(r.Context())
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, db.Challenge)
}

func (h *Handler) joinChallenge(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJoinRequest(w, r)
	if err != nil {
		h.logger.Debug("join body ignored",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}

	result, err := h.service.JoinChallenge(r.Context(), req.Name)
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, JoinChallengeResponse{
		Message:      result.Name + " joined",
		Participants: result.Participants,
	})
}

// decodeJoinRequest reads the optional join body. On any error the zero request is returned
// together with the error, and the caller falls back to the default name.
func decodeJoinRequest(w http.ResponseWriter, r *http.Request) (JoinChallengeRequest, error) {
	var req JoinChallengeRequest
	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	body := http.MaxBytesReader(w, r.Body, maxJoinBody)
	data, err := io.ReadAll(body)
	if err != nil {
		return JoinChallengeRequest{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return JoinChallengeRequest{}, err
	}
	return req, nil
}

func (h *Handler) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("document store failure",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, publicMessage(err))
}

// publicMessage reports the failure kind without leaking paths or causes.
func publicMessage(err error) string {
	for _, kind := range []error{domain.ErrDocumentNotFound, domain.ErrCorruptState, domain.ErrStorageIO} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal error"
}

// OKResponse is returned by the health check and CORS preflight.
type OKResponse struct {
	OK bool `json:"ok"`
}

// JoinChallengeRequest is the optional payload for POST /api/challenge/join.
type JoinChallengeRequest struct {
	Name string `json:"name"`
}

// JoinChallengeResponse describes a committed join.
type JoinChallengeResponse struct {
	Message      string `json:"message"`
	Participants int    `json:"participants"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}
