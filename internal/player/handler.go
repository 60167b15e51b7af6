// Package player serves the normalization and playback endpoints and the
// page that frames a composed parser URL.
package player

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bikinibottom/spongeplay/internal/httputil"
	"github.com/bikinibottom/spongeplay/internal/normalize"
	"github.com/bikinibottom/spongeplay/internal/parser"
	"github.com/bikinibottom/spongeplay/internal/validate"
)

type Handler struct {
	registry *parser.Registry
}

func NewHandler(registry *parser.Registry) *Handler {
	return &Handler{registry: registry}
}

type parserResponse struct {
	parser.Parser
	Default bool `json:"default"`
}

type playRequest struct {
	URL    string `json:"url"`
	Parser string `json:"parser"`
}

func (h *Handler) ListParsers(w http.ResponseWriter, r *http.Request) {
	def := h.registry.Default().ID
	all := h.registry.All()
	resp := make([]parserResponse, 0, len(all))
	for _, p := range all {
		resp = append(resp, parserResponse{Parser: p, Default: p.ID == def})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		httputil.WriteError(w, http.StatusBadRequest, "url is required")
		return
	}
	if msg := validate.VideoURL(raw); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, normalize.Normalize(raw))
}

func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validate.VideoURL(req.URL); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	pb, err := h.registry.Play(req.Parser, req.URL)
	if err != nil {
		writePlayError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pb)
}

func writePlayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, parser.ErrEmptyURL):
		httputil.WriteError(w, http.StatusBadRequest, "url is required")
	case errors.Is(err, parser.ErrUnknownParser):
		httputil.WriteError(w, http.StatusBadRequest, "unknown parser")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "could not compose playback url")
	}
}
