package service

import (
	"context"

	"github.com/Shaytris/Obsidian/internal/audit"
	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/internal/hub"
	"github.com/Shaytris/Obsidian/internal/registry"
	"github.com/Shaytris/Obsidian/internal/session"
	"github.com/Shaytris/Obsidian/pkg/log"
)

type gameService struct {
	machine  *session.StateMachine
	hub      *hub.Hub
	registry registry.Registry
}

func NewGameService(machine *session.StateMachine, h *hub.Hub, reg registry.Registry) GameService {
	s := &gameService{
		machine:  machine,
		hub:      h,
		registry: reg,
	}
	h.SetEvictHandler(s.HandleEviction)
	return s
}

func (s *gameService) HandleConnect(ctx context.Context, c *hub.Client) error {
	return c.SendEvent(&domain.ConnectedEvent{
		Type:     domain.GameTypeConnected,
		PlayerID: c.Session.User(),
	})
}

func (s *gameService) HandleCreateRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if roomID == "" {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "room_id is required"))
		return nil
	}
	if err := s.machine.CreateRoom(ctx, c, roomID); err != nil {
		sendError(c, err)
		return err
	}
	if err := s.registry.Register(ctx, roomID); err != nil {
		log.Ctx(ctx).Warn().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to register room")
	}
	return nil
}

func (s *gameService) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if roomID == "" {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "room_id is required"))
		return nil
	}
	if err := s.machine.JoinRoom(ctx, c, roomID); err != nil {
		sendError(c, err)
		return err
	}
	return nil
}

func (s *gameService) HandleLeaveRoom(ctx context.Context, c *hub.Client) error {
	roomID, err := s.machine.LeaveRoom(ctx, c)
	if err != nil {
		sendError(c, err)
		return err
	}
	s.releaseIfEmpty(ctx, roomID)
	return nil
}

func (s *gameService) HandleSetReady(ctx context.Context, c *hub.Client, ready bool) error {
	if err := s.machine.SetReady(ctx, c, ready); err != nil {
		sendError(c, err)
		return err
	}
	return nil
}

func (s *gameService) HandleBoardUpdate(ctx context.Context, c *hub.Client, board [][]int, piece string) error {
	if err := s.machine.UpdateBoard(ctx, c, board, piece); err != nil {
		sendError(c, err)
		return err
	}
	return nil
}

func (s *gameService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	roomID, err := s.machine.LeaveRoom(ctx, c)
	if roomID != "" {
		audit.Log(ctx, audit.ActionDisconnect, c.Session.User(), roomID, "player disconnected")
	}
	s.releaseIfEmpty(ctx, roomID)
	return err
}

func (s *gameService) HandleEviction(c *hub.Client) {
	s.HandleDisconnect(context.Background(), c)
}

func (s *gameService) releaseIfEmpty(ctx context.Context, roomID string) {
	if roomID == "" || s.hub.RoomClientCount(roomID) > 0 {
		return
	}
	if err := s.registry.Deregister(ctx, roomID); err != nil {
		log.Ctx(ctx).Warn().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to deregister room")
	}
}
