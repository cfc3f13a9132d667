package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tandemlab/parley/internal/archive"
	"github.com/tandemlab/parley/internal/brain"
	"github.com/tandemlab/parley/internal/config"
	"github.com/tandemlab/parley/internal/conversation"
	"github.com/tandemlab/parley/internal/gateway"
	"github.com/tandemlab/parley/internal/observability"
)

type Server struct {
	cfg         config.Config
	registry    *conversation.Registry
	gateway     *gateway.Gateway
	store       archive.Store
	transcriber brain.Transcriber
	metrics     *observability.Metrics
	upgrader    websocket.Upgrader
}

func New(cfg config.Config, registry *conversation.Registry, gw *gateway.Gateway, store archive.Store, transcriber brain.Transcriber, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:         cfg,
		registry:    registry,
		gateway:     gw,
		store:       store,
		transcriber: transcriber,
		metrics:     metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/conversations", s.handleCreateConversation)
	r.Post("/v1/conversations/{id}/join", s.handleJoinConversation)
	r.Get("/v1/conversations/{id}", s.handleGetConversation)
	r.Get("/v1/conversations/{id}/messages", s.handleGetMessages)
	r.Post("/v1/conversations/{id}/messages/audio", s.handleAudioMessage)
	r.Get("/v1/conversations/ws", s.handleConversationWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"persistent":    s.cfg.DatabaseURL != "",
		"conversations": s.registry.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type createConversationRequest struct {
	Topic string `json:"topic"`
}

type createConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	InviteURL      string `json:"invite_url"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	conv := s.registry.Create(req.Topic)
	s.metrics.ActiveConversations.Set(float64(s.registry.ActiveCount()))
	s.metrics.ConversationEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, createConversationResponse{
		ConversationID: conv.ID,
		InviteURL:      "/join?conversation_id=" + conv.ID,
	})
}

type joinConversationRequest struct {
	DisplayName string `json:"display_name"`
}

type joinConversationResponse struct {
	ParticipantID  string `json:"participant_id"`
	ConversationID string `json:"conversation_id"`
	DisplayName    string `json:"display_name"`
}

func (s *Server) handleJoinConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_conversation_id", "missing conversation id")
		return
	}

	var req joinConversationRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p, err := s.registry.Join(id, req.DisplayName)
	if err != nil {
		respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
		return
	}
	s.metrics.ConversationEvents.WithLabelValues("joined").Inc()

	respondJSON(w, http.StatusCreated, joinConversationResponse{
		ParticipantID:  p.ID,
		ConversationID: p.ConversationID,
		DisplayName:    p.DisplayName,
	})
}

type conversationSnapshot struct {
	ConversationID string              `json:"conversation_id"`
	Topic          string              `json:"topic,omitempty"`
	Domain         conversation.Domain `json:"domain,omitempty"`
	Mode           conversation.Mode   `json:"mode"`
	PartyCount     int                 `json:"party_count"`
	MessageCount   int                 `json:"message_count"`
	ClaimCount     int                 `json:"claim_count"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var snap conversationSnapshot
	err := s.registry.WithLock(id, func(conv *conversation.Conversation) error {
		snap = conversationSnapshot{
			ConversationID: conv.ID,
			Topic:          conv.Topic,
			Domain:         conv.Domain,
			Mode:           conversation.SelectMode(conv),
			PartyCount:     len(conv.Parties),
			MessageCount:   len(conv.Messages),
			ClaimCount:     len(conv.Claims),
		}
		return nil
	})
	if err != nil {
		respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

type messagesResponse struct {
	ConversationID string                  `json:"conversation_id"`
	Messages       []archive.MessageRecord `json:"messages"`
	Summary        string                  `json:"summary,omitempty"`
}

// handleGetMessages replays the archived ledger of a conversation in
// chronological order, plus the cached interim summary when one is fresh.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.registry.Get(id); err != nil {
		respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
		return
	}

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.store.Messages(r.Context(), id, limit)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("archive", "read_failed").Inc()
		respondError(w, http.StatusInternalServerError, "archive_read_failed", err.Error())
		return
	}
	if records == nil {
		records = []archive.MessageRecord{}
	}

	resp := messagesResponse{ConversationID: id, Messages: records}
	summary, ok, err := s.store.GetSummary(r.Context(), id)
	if err != nil {
		// A broken summary cache must not fail the replay.
		s.metrics.UpstreamErrors.WithLabelValues("archive", "summary_read_failed").Inc()
		log.Printf("summary read failed: conversation=%s: %v", id, err)
	} else if ok {
		resp.Summary = summary
	}
	respondJSON(w, http.StatusOK, resp)
}

func turnErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return http.StatusNotFound, "conversation_not_found"
	case errors.Is(err, conversation.ErrNotMember):
		return http.StatusForbidden, "not_a_member"
	case errors.Is(err, brain.ErrUpstream):
		return http.StatusBadGateway, "ai_turn_failed"
	default:
		return http.StatusInternalServerError, "turn_failed"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
