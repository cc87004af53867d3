// Package server is the HTTP front door. It owns request decoding, per-user
// turn serialization and the optional transcript side channel; everything
// conversational happens behind the ChatService port.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	contractx "viajero/agent/contract"
	"viajero/agent/orchestrator"
	tripsx "viajero/agent/trips"
	"viajero/history"
)

// Config tunes the HTTP listener.
type Config struct {
	Addr string `envconfig:"ADDR" split_words:"true" default:":8000"`
	Mode string `envconfig:"MODE" split_words:"true" default:"release"`
}

// ChatService handles one conversational turn.
type ChatService interface {
	HandleTurn(ctx context.Context, userID, conversationID, text string) (contractx.TurnResult, error)
}

// TripReader lists a user's stored trips.
type TripReader interface {
	ListActive(ctx context.Context, userID string) ([]*tripsx.Trip, error)
}

// Server carries the route dependencies. History may be nil; transcript
// endpoints then answer 404 and chat replies carry no snapshot.
type Server struct {
	chat    ChatService
	trips   TripReader
	history *history.Store

	// One in-flight turn per user: context and ledger writes are
	// read-modify-write, so concurrent turns of the same user must queue.
	userLocks sync.Map
}

func New(chat ChatService, trips TripReader, hist *history.Store) (*Server, error) {
	if chat == nil {
		return nil, errors.New("chat service is required")
	}
	if trips == nil {
		return nil, errors.New("trip reader is required")
	}
	return &Server{chat: chat, trips: trips, history: hist}, nil
}

// Router builds the gin engine with every route mounted under /api/v2.
func (s *Server) Router(cfg Config) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	v2 := r.Group("/api/v2")
	v2.GET("/health", s.handleHealth)
	v2.POST("/chat", s.handleChat)
	v2.GET("/trips/:user_id", s.handleListTrips)
	v2.GET("/conversations/:conversation_id", s.handleConversation)
	return r
}

type chatRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

type chatResponse struct {
	ConversationID string                     `json:"conversation_id,omitempty"`
	Intent         contractx.Intent           `json:"intent"`
	Entities       contractx.EntitySet        `json:"entities"`
	Reply          string                     `json:"reply_text"`
	Structured     *contractx.StructuredReply `json:"structured_data,omitempty"`
	AgentsCalled   []string                   `json:"agents_called,omitempty"`
	Snapshot       []history.Message          `json:"context_snapshot,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"history_enabled": s.history != nil,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and message are required"})
		return
	}
	userID := strings.TrimSpace(req.UserID)
	message := strings.TrimSpace(req.Message)
	if userID == "" || message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and message are required"})
		return
	}

	unlock := s.lockUser(userID)
	defer unlock()

	ctx := c.Request.Context()

	conversationID := req.ConversationID
	if s.history != nil {
		conv, err := s.history.EnsureConversation(ctx, userID, conversationID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("historial no disponible")
		} else {
			conversationID = conv.ID
			if err := s.history.Append(ctx, conversationID, history.RoleUser, message, nil); err != nil {
				log.Warn().Err(err).Msg("mensaje de usuario no registrado")
			}
		}
	}

	result, err := s.chat.HandleTurn(ctx, userID, conversationID, message)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrInvalidUser), errors.Is(err, orchestrator.ErrInvalidMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("turno fallido")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	resp := chatResponse{
		ConversationID: conversationID,
		Intent:         result.Intent,
		Entities:       result.Entities,
		Reply:          result.ReplyText,
		Structured:     result.Structured,
		AgentsCalled:   result.AgentsCalled,
	}

	if s.history != nil && conversationID != "" {
		var structured json.RawMessage
		if result.Structured != nil {
			structured, _ = json.Marshal(result.Structured)
		}
		if err := s.history.Append(ctx, conversationID, history.RoleBot, result.ReplyText, structured); err != nil {
			log.Warn().Err(err).Msg("respuesta no registrada")
		}
		if tail, err := s.history.Tail(ctx, conversationID, 10); err == nil {
			resp.Snapshot = tail
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListTrips(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	trips, err := s.trips.ListActive(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("no se pudieron listar los viajes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "trips": trips})
}

func (s *Server) handleConversation(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}
	conversationID := strings.TrimSpace(c.Param("conversation_id"))
	msgs, err := s.history.Tail(c.Request.Context(), conversationID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "messages": msgs})
}

func (s *Server) lockUser(userID string) func() {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
