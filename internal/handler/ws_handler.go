package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Shaytris/Obsidian/internal/config"
	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/internal/hub"
	"github.com/Shaytris/Obsidian/internal/service"
	"github.com/Shaytris/Obsidian/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades sockets and routes inbound frames to the chat or
// game service. A frame that fails to decode is reported to the sender
// and skipped; the connection keeps reading.
type WSHandler struct {
	chatHub *hub.Hub
	gameHub *hub.Hub
	chat    service.ChatService
	game    service.GameService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(chatHub, gameHub *hub.Hub, chat service.ChatService, game service.GameService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		chatHub: chatHub,
		gameHub: gameHub,
		chat:    chat,
		game:    game,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/chat/ws", h.HandleChatSocket)
	mux.HandleFunc("/game/ws", h.HandleGameSocket)
}

func (h *WSHandler) HandleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.chatHub, conn, h.wsCfg)
	h.chatHub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleChatFrame, func(c *hub.Client) {
		h.chat.HandleDisconnect(context.Background(), c)
	})
}

func (h *WSHandler) handleChatFrame(client *hub.Client, raw []byte) {
	ctx := context.Background()

	// Application-level ping rides alongside transport keepalive.
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && probe.Type == "ping" {
		client.SendEvent(map[string]string{"type": "pong"})
		return
	}

	var msg domain.ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	if err := h.chat.HandleEnvelope(ctx, client, &msg); err != nil {
		log.L().Debug().Str(log.FieldClientID, client.ID).Err(err).Msg("chat envelope rejected")
	}
}

func (h *WSHandler) HandleGameSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	playerID := uuid.New().String()
	client := hub.NewClient(playerID, h.gameHub, conn, h.wsCfg)
	client.Session.SetUser(playerID)
	h.gameHub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleGameFrame, func(c *hub.Client) {
		h.game.HandleDisconnect(context.Background(), c)
	})

	h.game.HandleConnect(context.Background(), client)
}

func (h *WSHandler) handleGameFrame(client *hub.Client, raw []byte) {
	ctx := context.Background()

	var event domain.GameEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	var err error
	switch event.Type {
	case domain.GameTypeCreateRoom:
		err = h.game.HandleCreateRoom(ctx, client, event.RoomID)
	case domain.GameTypeJoinRoom:
		err = h.game.HandleJoinRoom(ctx, client, event.RoomID)
	case domain.GameTypeLeaveRoom:
		err = h.game.HandleLeaveRoom(ctx, client)
	case domain.GameTypeReady:
		err = h.game.HandleSetReady(ctx, client, event.Ready)
	case domain.GameTypeBoardUpdate:
		err = h.game.HandleBoardUpdate(ctx, client, event.Board, event.Piece)
	default:
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "unknown message type"))
		return
	}

	if err != nil {
		log.L().Debug().Str(log.FieldClientID, client.ID).Str("event", event.Type).Err(err).Msg("game event rejected")
	}
}
