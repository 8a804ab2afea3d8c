package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Shaytris/Obsidian/internal/audit"
	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/internal/emote"
	"github.com/Shaytris/Obsidian/internal/hub"
	"github.com/Shaytris/Obsidian/internal/moderation"
	"github.com/Shaytris/Obsidian/internal/persist"
	"github.com/Shaytris/Obsidian/internal/registry"
	"github.com/Shaytris/Obsidian/internal/store"
	"github.com/Shaytris/Obsidian/pkg/log"
)

const persistTimeout = 5 * time.Second

type chatService struct {
	store    *store.Store
	hub      *hub.Hub
	policy   *moderation.Policy
	sinks    []persist.Sink
	registry registry.Registry
}

func NewChatService(
	st *store.Store,
	h *hub.Hub,
	policy *moderation.Policy,
	sinks []persist.Sink,
	reg registry.Registry,
) ChatService {
	s := &chatService{
		store:    st,
		hub:      h,
		policy:   policy,
		sinks:    sinks,
		registry: reg,
	}
	h.SetEvictHandler(s.HandleEviction)
	return s
}

// HandleEnvelope processes one inbound chat envelope. Channels are
// created on first reference; the sender is joined to the channel if
// not yet a member. The first envelope pins the connection's username.
func (s *chatService) HandleEnvelope(ctx context.Context, c *hub.Client, msg *domain.ChatMessage) error {
	if msg.User == "" || msg.Channel == "" {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "user and channel are required"))
		return nil
	}

	if known := c.Session.User(); known == "" {
		c.Session.SetUser(msg.User)
	} else if known != msg.User {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "user does not match connection"))
		return nil
	}
	user := msg.User

	cmd, isCommand, err := msg.Moderation()
	if err != nil {
		sendError(c, err)
		return nil
	}
	if isCommand {
		if err := s.policy.Apply(ctx, msg.Channel, user, cmd); err != nil {
			sendError(c, err)
		}
		return nil
	}

	if err := msg.Validate(); err != nil {
		audit.Log(ctx, audit.ActionRejectMessage, user, msg.Channel, "message content over limit")
		sendError(c, err)
		return nil
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Timestamp = time.Now().UTC()

	s.store.GetOrCreateChannel(msg.Channel)

	// One room per connection: writing to a different channel moves
	// the connection there. A ban on the target channel fails the move
	// without giving up the current seat.
	if cur := c.Session.CurrentRoom(); cur != "" && cur != msg.Channel {
		banned := false
		s.store.View(msg.Channel, func(r *store.Room) error {
			banned = r.IsBanned(user)
			return nil
		})
		if banned {
			sendError(c, domain.ErrBanned)
			return domain.ErrBanned
		}
		s.leaveChannel(ctx, c, cur)
	}

	joined := false
	err = s.store.Update(msg.Channel, func(r *store.Room) error {
		if !r.IsMember(user) {
			if err := r.AddMember(user); err != nil {
				return err
			}
			s.hub.JoinRoom(msg.Channel, user, c)
			c.Session.JoinRoom(msg.Channel)
			joined = true
		}

		if r.IsMuted(user) {
			return domain.ErrMuted
		}

		if err := r.AppendMessage(msg); err != nil {
			return err
		}

		out := &domain.BroadcastMessage{
			ID:      msg.ID,
			User:    user,
			Content: emote.Render(msg.Content, msg.Emotes),
			Channel: msg.Channel,
			ReplyTo: msg.ReplyTo,
		}
		return s.hub.BroadcastEvent(msg.Channel, out)
	})

	if joined {
		audit.Log(ctx, audit.ActionJoin, user, msg.Channel, "user joined channel")
		if err := s.registry.Register(ctx, msg.Channel); err != nil {
			log.Ctx(ctx).Warn().Str(log.FieldChannel, msg.Channel).Err(err).Msg("failed to register channel")
		}
	}

	if err != nil {
		sendError(c, err)
		return err
	}

	s.persist(msg)
	return nil
}

// persist hands the accepted message to every sink on its own
// goroutine. Sink latency or failure never delays or fails delivery.
func (s *chatService) persist(msg *domain.ChatMessage) {
	if len(s.sinks) == 0 {
		return
	}
	persisted := &domain.PersistedMessage{
		MessageID: msg.ID,
		User:      msg.User,
		Channel:   msg.Channel,
		Content:   msg.Content,
		ReplyTo:   msg.ReplyTo,
		Timestamp: msg.Timestamp,
	}
	for _, sink := range s.sinks {
		go func(sk persist.Sink) {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := sk.Save(ctx, persisted); err != nil {
				log.L().Error().Str("message_id", persisted.MessageID).Err(err).Msg("failed to persist message")
			}
		}(sink)
	}
}

func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	if roomID := c.Session.CurrentRoom(); roomID != "" {
		s.leaveChannel(ctx, c, roomID)
	}
	return nil
}

func (s *chatService) HandleEviction(c *hub.Client) {
	s.HandleDisconnect(context.Background(), c)
}

// leaveChannel removes membership and the connection binding in one
// room critical section, then releases the presence entry if the
// channel went quiet.
func (s *chatService) leaveChannel(ctx context.Context, c *hub.Client, roomID string) {
	user := c.Session.User()
	s.store.Update(roomID, func(r *store.Room) error {
		r.RemoveMember(user)
		s.hub.LeaveRoom(roomID, user)
		c.Session.LeaveRoom()
		return nil
	})
	audit.Log(ctx, audit.ActionLeave, user, roomID, "user left channel")

	if s.hub.RoomClientCount(roomID) == 0 {
		if err := s.registry.Deregister(ctx, roomID); err != nil {
			log.Ctx(ctx).Warn().Str(log.FieldChannel, roomID).Err(err).Msg("failed to deregister channel")
		}
	}
}

func (s *chatService) Start(ctx context.Context) error {
	return s.registry.StartHeartbeat(ctx)
}

func (s *chatService) Stop() error {
	s.registry.StopHeartbeat()
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			log.L().Error().Err(err).Msg("failed to close message sink")
		}
	}
	return nil
}
