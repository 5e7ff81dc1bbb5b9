// Package api exposes the chat engine to local UI clients over HTTP.
// The surface is deliberately small: reconciled views in, send/read
// commands out, plus an SSE stream of engine events so clients know
// when to re-render.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/bus"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/outbox"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/reconcile"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/rest"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/status"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/store"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/sync"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/toast"
)

// Server holds the handler dependencies.
type Server struct {
	machine *status.Machine
	recon   *reconcile.Reconciler
	coord   *outbox.Coordinator
	engine  *sync.Engine
	rest    *rest.Client
	db      *store.DB
	toasts  *toast.Notifier
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewServer creates the API server.
func NewServer(
	machine *status.Machine,
	recon *reconcile.Reconciler,
	coord *outbox.Coordinator,
	engine *sync.Engine,
	restClient *rest.Client,
	db *store.DB,
	toasts *toast.Notifier,
	b *bus.Bus,
	logger *zap.Logger,
) *Server {
	return &Server{
		machine: machine,
		recon:   recon,
		coord:   coord,
		engine:  engine,
		rest:    restClient,
		db:      db,
		toasts:  toasts,
		bus:     b,
		logger:  logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/chats", s.handleListChats)
		r.Post("/chats", s.handleCreateChat)
		r.Get("/chats/{id}/messages", s.handleListMessages)
		r.Post("/chats/{id}/messages", s.handleSendMessage)
		r.Post("/chats/{id}/read", s.handleMarkRead)
		r.Get("/toast", s.handleGetToast)
		r.Delete("/toast", s.handleDismissToast)
		r.Get("/events", s.handleEvents)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}

type statusResponse struct {
	State        string `json:"state"`
	Connected    bool   `json:"connected"`
	PendingCount int    `json:"pendingCount"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		State:        string(s.machine.Current()),
		Connected:    s.machine.Connected(),
		PendingCount: s.coord.PendingCount(),
	})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	filter := r.URL.Query().Get("q")

	chats, err := s.recon.Chats(r.Context(), category, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot build chat list")
		s.logger.Error("chat list failed", zap.Error(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

type createChatRequest struct {
	CounterpartID string `json:"counterpartId"`
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CounterpartID == "" {
		writeError(w, http.StatusBadRequest, "counterpartId is required")
		return
	}

	conv, err := s.rest.CreateConversation(r.Context(), rest.CreateConversationRequest{
		ParticipantUserID: req.CounterpartID,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, "cannot create conversation")
		s.logger.Error("create conversation failed", zap.Error(err))
		return
	}

	// Show the chat immediately; the override lives until the next
	// confirmed conversation list contains the same id.
	override := reconcile.Chat{
		ID:       conv.ID,
		Category: reconcile.CategoryLeads,
	}
	if contact, err := s.db.GetContact(req.CounterpartID); err == nil && contact != nil {
		override.Name = contact.FullName
		override.Category = reconcile.CategoryFor(contact.ContactType)
	}
	s.recon.SetPendingChat(override)

	go func() {
		if err := s.engine.RefreshConversations(context.WithoutCancel(r.Context())); err != nil {
			s.logger.Warn("conversation refresh after create failed", zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusCreated, map[string]any{"id": conv.ID})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Opening a conversation makes it the active one; live pushes for it
	// now trigger history refetches.
	if err := s.engine.SetActive(r.Context(), id); err != nil {
		s.logger.Warn("history refresh failed, serving cached",
			zap.String("conversation_id", id), zap.Error(err))
	}

	msgs, err := s.recon.Messages(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot build message list")
		s.logger.Error("message list failed", zap.Error(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if s.coord.TrySend(id, req.Content) {
		writeJSON(w, http.StatusOK, map[string]any{"sent": true, "pending": false})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"sent": false, "pending": true})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.rest.MarkRead(r.Context(), id); err != nil {
		writeError(w, http.StatusBadGateway, "cannot mark conversation read")
		s.logger.Error("mark read failed", zap.String("conversation_id", id), zap.Error(err))
		return
	}
	if err := s.db.ClearUnread(id); err != nil {
		s.logger.Warn("clear unread failed", zap.String("conversation_id", id), zap.Error(err))
	}
	s.bus.Publish(bus.Event{Kind: bus.KindChatListUpdated, Timestamp: time.Now()})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetToast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"toast": s.toasts.Current()})
}

func (s *Server) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	s.toasts.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams every bus event to the client as SSE. Clients use
// it purely as a re-render hint; all state is fetched back through the
// regular endpoints.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsub := s.bus.Subscribe("", 64)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case evt := <-events:
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: " + evt.Kind + "\ndata: " + string(payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
