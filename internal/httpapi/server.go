// internal/httpapi/server.go
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/user/artifactchat/internal/export"
	"github.com/user/artifactchat/internal/gateway"
	"github.com/user/artifactchat/internal/render"
	"github.com/user/artifactchat/internal/runtime"
	"github.com/user/artifactchat/internal/search"
	"github.com/user/artifactchat/internal/types"
)

// maxBody bounds request bodies, attachments included.
const maxBody = 10 << 20

// Options carries the read-only collaborators of the API.
type Options struct {
	Tools    []runtime.ToolInfo
	Settings render.Settings
	Metrics  http.Handler
}

// Server is the JSON API over one conversation.
type Server struct {
	chat *gateway.Chat
	opts Options
	mux  *http.ServeMux
	now  func() time.Time
}

// NewServer creates the API server for chat.
func NewServer(chat *gateway.Chat, opts Options) *Server {
	s := &Server{
		chat: chat,
		opts: opts,
		mux:  http.NewServeMux(),
		now:  time.Now,
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/messages", s.handleList)
	s.mux.HandleFunc("POST /api/messages", s.handleSend)
	s.mux.HandleFunc("POST /api/messages/{id}/bookmark", s.handleBookmark)
	s.mux.HandleFunc("POST /api/messages/{id}/reactions", s.handleReaction)
	s.mux.HandleFunc("GET /api/messages/{id}/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("GET /api/tools", s.handleTools)
	s.mux.HandleFunc("GET /api/settings", s.handleSettings)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"messages": len(s.chat.Snapshot()),
		"pending":  s.chat.Pending(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	msgs := search.Filter(s.chat.Snapshot(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, msgs)
}

type attachmentRequest struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type sendRequest struct {
	Content     string              `json:"content"`
	Attachments []attachmentRequest `json:"attachments"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	files := make([]types.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		if strings.TrimSpace(a.Name) == "" {
			writeError(w, http.StatusBadRequest, "attachment name is required")
			return
		}
		files = append(files, types.Attachment{
			Name:     a.Name,
			MimeType: a.MimeType,
			Size:     int64(len(a.Data)),
			Data:     a.Data,
		})
	}

	id, err := s.chat.SendFiles(r.Context(), req.Content, files...)
	switch {
	case errors.Is(err, gateway.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is empty")
	case errors.Is(err, gateway.ErrReplyPending):
		writeError(w, http.StatusConflict, "a reply is still pending")
	case err != nil && id == "":
		slog.Error("send failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	case err != nil:
		// The user turn was stored and answered with a failure notice.
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"id":    string(id),
			"error": "reply could not be scheduled",
		})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"id": string(id)})
	}
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	id := types.MessageID(r.PathValue("id"))
	if !s.chat.ToggleBookmark(id) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	msg, _ := s.chat.Get(id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "bookmarked": msg.Bookmarked})
}

type reactionRequest struct {
	Kind string `json:"kind"`
}

func (s *Server) handleReaction(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || strings.TrimSpace(req.Kind) == "" {
		writeError(w, http.StatusBadRequest, "kind is required")
		return
	}
	id := types.MessageID(r.PathValue("id"))
	if !s.chat.React(id, req.Kind) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	msg, _ := s.chat.Get(id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "reactions": msg.Reactions})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.chat.Get(types.MessageID(r.PathValue("id")))
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, render.Plan(msg.Artifacts))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.chat.Export(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(s.now())+`"`)
	w.Write(buf.Bytes())
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	tools := s.opts.Tools
	if tools == nil {
		tools = []runtime.ToolInfo{}
	}
	writeJSON(w, http.StatusOK, tools)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Settings)
}
