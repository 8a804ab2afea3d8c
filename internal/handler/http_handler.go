package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/internal/persist"
	"github.com/Shaytris/Obsidian/internal/store"
	"github.com/Shaytris/Obsidian/pkg/log"
)

// APIResponse is the envelope for every read-API reply.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HTTPHandler serves the read-only API over the live channel and room
// state, with durable history when a database sink is configured.
type HTTPHandler struct {
	chatStore *store.Store
	gameStore *store.Store
	history   *persist.GormSink
}

func NewHTTPHandler(chatStore, gameStore *store.Store, history *persist.GormSink) *HTTPHandler {
	return &HTTPHandler{
		chatStore: chatStore,
		gameStore: gameStore,
		history:   history,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/channels", h.ListChannels)
		v1.GET("/channels/:id/messages", h.ChannelMessages)
		v1.GET("/rooms", h.ListRooms)
	}
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type channelInfo struct {
	ID          string `json:"id"`
	MemberCount int    `json:"member_count"`
}

func (h *HTTPHandler) ListChannels(c *gin.Context) {
	ids := h.chatStore.RoomIDs()
	channels := make([]channelInfo, 0, len(ids))
	for _, id := range ids {
		info := channelInfo{ID: id}
		h.chatStore.View(id, func(r *store.Room) error {
			info.MemberCount = r.MemberCount()
			return nil
		})
		channels = append(channels, info)
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: channels})
}

func (h *HTTPHandler) ChannelMessages(c *gin.Context) {
	channel := c.Param("id")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	// The database holds the full history; the in-memory log only the
	// retention window.
	if h.history != nil {
		messages, err := h.history.Messages(c.Request.Context(), channel, limit)
		if err != nil {
			log.Ctx(c.Request.Context()).Error().Str(log.FieldChannel, channel).Err(err).Msg("failed to load message history")
			c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: "failed to load messages"})
			return
		}
		c.JSON(http.StatusOK, APIResponse{Success: true, Data: messages})
		return
	}

	if !h.chatStore.Exists(channel) {
		c.JSON(http.StatusNotFound, APIResponse{Success: false, Error: "channel not found"})
		return
	}

	var messages []*domain.ChatMessage
	h.chatStore.View(channel, func(r *store.Room) error {
		messages = r.Messages(limit)
		return nil
	})
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: messages})
}

type roomInfo struct {
	ID      string          `json:"id"`
	Members []string        `json:"members"`
	Ready   map[string]bool `json:"ready"`
}

func (h *HTTPHandler) ListRooms(c *gin.Context) {
	ids := h.gameStore.RoomIDs()
	rooms := make([]roomInfo, 0, len(ids))
	for _, id := range ids {
		info := roomInfo{ID: id}
		h.gameStore.View(id, func(r *store.Room) error {
			info.Members = r.Members()
			info.Ready = r.ReadyStates()
			return nil
		})
		rooms = append(rooms, info)
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: rooms})
}
