package board

import (
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/bikinibottom/spongeplay/internal/auth"
	"github.com/bikinibottom/spongeplay/internal/httputil"
	"github.com/bikinibottom/spongeplay/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"
)

// RegionResolver labels a client IP with a coarse region, or "".
type RegionResolver interface {
	Region(ip string) string
}

type Handler struct {
	board   *Board
	regions RegionResolver
}

func NewHandler(b *Board, regions RegionResolver) *Handler {
	return &Handler{board: b, regions: regions}
}

type announcementItem struct {
	Announcement
	Index int           `json:"index"`
	HTML  template.HTML `json:"html"`
	Age   string        `json:"age,omitempty"`
}

type commentItem struct {
	Comment
	Index int    `json:"index"`
	Age   string `json:"age,omitempty"`
}

type listResponse[T any] struct {
	Items   []T    `json:"items"`
	Warning string `json:"warning,omitempty"`
}

type postAnnouncementRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

type postCommentRequest struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

type statsResponse struct {
	Stats
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	list, err := h.board.Announcements(r.Context())
	now := h.board.now()

	items := make([]announcementItem, 0, len(list))
	for i, a := range list {
		items = append(items, announcementItem{Announcement: a, Index: i, HTML: RenderContent(a.Content), Age: Age(a.Date, now)})
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse[announcementItem]{Items: items, Warning: loadWarning("announcements", err)})
}

func (h *Handler) PostAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req postAnnouncementRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, msg := range []string{
		validate.AnnouncementTitle(req.Title),
		validate.AnnouncementContent(req.Content),
		validate.Author(req.Author),
	} {
		if msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}

	a, err := h.board.PostAnnouncement(r.Context(), auth.SessionFromContext(r.Context()), Announcement{
		Title:   req.Title,
		Content: req.Content,
		Author:  req.Author,
		Date:    req.Date,
	})
	if err != nil {
		writeBoardError(w, "could not save announcements", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, announcementItem{Announcement: a, HTML: RenderContent(a.Content)})
}

func (h *Handler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	if _, err := h.board.DeleteAnnouncement(r.Context(), auth.SessionFromContext(r.Context()), index); err != nil {
		writeBoardError(w, "could not save announcements", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := h.board.Comments(r.Context())
	now := h.board.now()

	items := make([]commentItem, 0, len(list))
	for i, c := range list {
		items = append(items, commentItem{Comment: c, Index: i, Age: Age(c.Date, now)})
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse[commentItem]{Items: items, Warning: loadWarning("comments", err)})
}

func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	if rejectBot(w, r) {
		return
	}

	var req postCommentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validate.Username(req.Username); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.Comment(req.Content); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	c := Comment{Username: req.Username, Content: req.Content}
	if h.regions != nil {
		c.Region = h.regions.Region(clientIP(r))
	}

	c, err := h.board.PostComment(r.Context(), c)
	if err != nil {
		writeBoardError(w, "could not save comments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, commentItem{Comment: c})
}

func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	if rejectBot(w, r) {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	c, err := h.board.LikeComment(r.Context(), index)
	if err != nil {
		writeBoardError(w, "could not save comments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, commentItem{Comment: c, Index: index})
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	if _, err := h.board.DeleteComment(r.Context(), auth.SessionFromContext(r.Context()), index); err != nil {
		writeBoardError(w, "could not save comments", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.board.Stats(r.Context())
	httputil.WriteJSON(w, http.StatusOK, statsResponse{Stats: st, Warning: loadWarning("board", err)})
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid index")
		return 0, false
	}
	return index, true
}

func writeBoardError(w http.ResponseWriter, saveMessage string, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		httputil.WriteError(w, http.StatusForbidden, "admin session required")
	case errors.Is(err, ErrIndexOutOfRange):
		httputil.WriteError(w, http.StatusNotFound, "no entry at that index")
	case errors.Is(err, ErrEmptyTitle), errors.Is(err, ErrEmptyContent):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrContention):
		httputil.WriteError(w, http.StatusConflict, "the board is busy, please try again")
	default:
		slog.Error("board: write failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, saveMessage)
	}
}

func loadWarning(what string, err error) string {
	if err == nil {
		return ""
	}
	slog.Warn("board: load failed, serving defaults", "collection", what, "error", err)
	if errors.Is(err, ErrCorrupt) {
		return "stored " + what + " could not be read; showing defaults"
	}
	return "could not load " + what + "; showing defaults"
}

func rejectBot(w http.ResponseWriter, r *http.Request) bool {
	if ua := useragent.New(r.UserAgent()); ua.Bot() {
		httputil.WriteError(w, http.StatusForbidden, "automated clients may not post")
		return true
	}
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
