package ws_room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/humanbelnik/dinevote/internal/model"
)

type RoomService interface {
	Resolve(ctx context.Context, ref string) (model.Room, error)
	AddMember(ctx context.Context, roomID uuid.UUID, identity model.Identity, asHost bool) (model.Member, error)
	AddCandidate(ctx context.Context, roomID uuid.UUID, restaurantID int64, addedBy *model.Identity) (model.Candidate, bool, error)
	Candidates(ctx context.Context, roomID uuid.UUID) ([]model.Candidate, error)
}

type VoteService interface {
	CastVote(ctx context.Context, voter model.Identity, restaurantID int64, roomCtx model.RoomContext, delta int) (model.Vote, error)
	RoomTally(ctx context.Context, roomCtx model.RoomContext) ([]model.TallyEntry, error)
}

type MessageService interface {
	Send(ctx context.Context, roomID uuid.UUID, author model.Identity, content string) (model.Message, error)
}

type Presence interface {
	Enter(ctx context.Context, roomID uuid.UUID, connID string) (int, error)
	Leave(ctx context.Context, roomID uuid.UUID, connID string) (int, error)
	Count(ctx context.Context, roomID uuid.UUID) (int, error)
}

// session is the per-connection state. It is only touched by the
// connection's read loop, so it needs no locking.
type session struct {
	sub      Subscriber
	joined   bool
	roomID   uuid.UUID
	identity model.Identity
}

type Gateway struct {
	hub      *Hub
	rooms    RoomService
	votes    VoteService
	messages MessageService
	presence Presence
	logger   *slog.Logger
}

type GatewayOption func(*Gateway)

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func NewGateway(
	hub *Hub,
	rooms RoomService,
	votes VoteService,
	messages MessageService,
	presence Presence,
	opts ...GatewayOption,
) *Gateway {
	g := &Gateway{
		hub:      hub,
		rooms:    rooms,
		votes:    votes,
		messages: messages,
		presence: presence,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Serve runs the connection until it is closed by either side.
func (g *Gateway) Serve(ctx context.Context, conn *websocket.Conn) {
	client := NewClient(conn, g.logger)
	go client.WritePump()

	s := &session{sub: client}
	g.logger.Info("client connected", "conn_id", client.ID())

	client.ReadPump(func(msg []byte) {
		g.handle(ctx, s, msg)
	})

	g.disconnect(ctx, s)
	client.Close()
	g.logger.Info("client disconnected", "conn_id", client.ID())
}

func (g *Gateway) disconnect(ctx context.Context, s *session) {
	// The request context may already be gone; committed state still gets announced.
	g.leave(context.WithoutCancel(ctx), s)
}

func (g *Gateway) handle(ctx context.Context, s *session, raw []byte) {
	var env Envelope
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("panic while handling event",
				"event", env.Event,
				"conn_id", s.sub.ID(),
				"panic", fmt.Sprint(r))
			g.reply(s, errors.New("internal error"))
		}
	}()

	if err := json.Unmarshal(raw, &env); err != nil {
		g.reply(s, fmt.Errorf("%w: malformed frame", model.ErrValidation))
		return
	}

	var err error
	switch env.Event {
	case EventJoinRoom:
		err = g.joinRoom(ctx, s, env.Data)
	case EventLeaveRoom:
		err = g.leaveRoom(ctx, s, env.Data)
	case EventSendMessage:
		err = g.sendMessage(ctx, s, env.Data)
	case EventVote:
		err = g.vote(ctx, s, env.Data)
	case EventAddRestaurant:
		err = g.addRestaurant(ctx, s, env.Data)
	default:
		err = fmt.Errorf("%w: unknown event %q", model.ErrValidation, env.Event)
	}

	if err != nil {
		g.logger.Warn("event failed",
			"event", env.Event,
			"conn_id", s.sub.ID(),
			"error", err)
		g.reply(s, err)
	}
}

func (g *Gateway) reply(s *session, err error) {
	g.hub.Send(s.sub, Event{Event: EventError, Data: ErrorPayload{Message: clientMessage(err)}})
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return err.Error()
	case errors.Is(err, model.ErrNotFound):
		return "room not found"
	case errors.Is(err, model.ErrRoomClosed):
		return "room is no longer active"
	default:
		return "internal error"
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing payload", model.ErrValidation)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed payload", model.ErrValidation)
	}
	return nil
}

func (g *Gateway) joinRoom(ctx context.Context, s *session, data json.RawMessage) error {
	var p JoinRoomPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.RoomID) == "" {
		return fmt.Errorf("%w: roomId required", model.ErrValidation)
	}

	room, err := g.rooms.Resolve(ctx, p.RoomID)
	if err != nil {
		return err
	}
	if !room.Active {
		return model.ErrRoomClosed
	}

	identity := p.identity()
	if !identity.IsZero() {
		if _, err := g.rooms.AddMember(ctx, room.ID, identity, false); err != nil {
			return err
		}
	}

	rejoin := s.joined && s.roomID == room.ID
	if s.joined && !rejoin {
		g.leave(ctx, s)
	}
	s.identity = identity

	if !rejoin {
		g.hub.Subscribe(room.ID, s.sub)
		s.joined = true
		s.roomID = room.ID

		g.hub.Broadcast(room.ID, Event{
			Event: EventUserJoined,
			Data: UserJoined{
				UserID:       identity.UserID,
				GuestName:    identity.GuestName,
				ConnectionID: s.sub.ID(),
				Participants: g.enter(ctx, room.ID, s.sub.ID()),
			},
		}, s.sub)

		g.logger.Info("client joined room", "conn_id", s.sub.ID(), "room_id", room.ID)
	}

	return g.sendSnapshot(ctx, s, room)
}

func (g *Gateway) sendSnapshot(ctx context.Context, s *session, room model.Room) error {
	candidates, err := g.rooms.Candidates(ctx, room.ID)
	if err != nil {
		return err
	}
	tally, err := g.votes.RoomTally(ctx, model.InRoom(room.ID))
	if err != nil {
		return err
	}

	g.hub.Send(s.sub, Event{
		Event: EventRoomSnapshot,
		Data: RoomSnapshot{
			Room:         room,
			Candidates:   candidates,
			Tally:        tally,
			Participants: g.participants(ctx, room.ID),
		},
	})
	return nil
}

func (g *Gateway) leaveRoom(ctx context.Context, s *session, data json.RawMessage) error {
	if !s.joined {
		return nil
	}

	// The web client sends a bare room id; an object is accepted as well.
	var ref string
	if len(data) > 0 && json.Unmarshal(data, &ref) != nil {
		var p LeaveRoomPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		ref = p.RoomID
	}
	if ref = strings.TrimSpace(ref); ref != "" {
		joined, err := g.refersToJoined(ctx, s, ref)
		if err != nil || !joined {
			return err
		}
	}

	g.leave(ctx, s)
	return nil
}

// refersToJoined reports whether ref (a room id or join code) names the joined room.
func (g *Gateway) refersToJoined(ctx context.Context, s *session, ref string) (bool, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id == s.roomID, nil
	}
	room, err := g.rooms.Resolve(ctx, ref)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return room.ID == s.roomID, nil
}

func (g *Gateway) leave(ctx context.Context, s *session) {
	if !s.joined {
		return
	}
	roomID := s.roomID
	s.joined = false
	s.roomID = uuid.Nil

	if !g.hub.Unsubscribe(roomID, s.sub) {
		// Already dropped by the hub as a slow consumer.
		g.logger.Debug("leaving room without subscription", "conn_id", s.sub.ID(), "room_id", roomID)
	}

	g.hub.Broadcast(roomID, Event{
		Event: EventUserLeft,
		Data: UserLeft{
			ConnectionID: s.sub.ID(),
			Participants: g.exit(ctx, roomID, s.sub.ID()),
		},
	}, nil)

	g.logger.Info("client left room", "conn_id", s.sub.ID(), "room_id", roomID)
}

func (g *Gateway) enter(ctx context.Context, roomID uuid.UUID, connID string) int {
	if g.presence == nil {
		return g.hub.Count(roomID)
	}
	n, err := g.presence.Enter(ctx, roomID, connID)
	if err != nil {
		g.logger.Warn("presence enter failed", "room_id", roomID, "error", err)
		return g.hub.Count(roomID)
	}
	return n
}

func (g *Gateway) exit(ctx context.Context, roomID uuid.UUID, connID string) int {
	if g.presence == nil {
		return g.hub.Count(roomID)
	}
	n, err := g.presence.Leave(ctx, roomID, connID)
	if err != nil {
		g.logger.Warn("presence leave failed", "room_id", roomID, "error", err)
		return g.hub.Count(roomID)
	}
	return n
}

func (g *Gateway) participants(ctx context.Context, roomID uuid.UUID) int {
	if g.presence == nil {
		return g.hub.Count(roomID)
	}
	n, err := g.presence.Count(ctx, roomID)
	if err != nil {
		g.logger.Warn("presence count failed", "room_id", roomID, "error", err)
		return g.hub.Count(roomID)
	}
	return n
}

// target resolves the room an intent refers to, defaulting to the joined room.
func (g *Gateway) target(ctx context.Context, s *session, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		if !s.joined {
			return uuid.Nil, fmt.Errorf("%w: roomId required", model.ErrValidation)
		}
		return s.roomID, nil
	}
	if id, err := uuid.Parse(ref); err == nil && s.joined && id == s.roomID {
		return id, nil
	}
	room, err := g.rooms.Resolve(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return room.ID, nil
}

func (g *Gateway) actor(s *session, p identityPayload) model.Identity {
	if id := p.identity(); !id.IsZero() {
		return id
	}
	return s.identity
}

func (g *Gateway) sendMessage(ctx context.Context, s *session, data json.RawMessage) error {
	var p SendMessagePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	roomID, err := g.target(ctx, s, p.RoomID)
	if err != nil {
		return err
	}

	msg, err := g.messages.Send(ctx, roomID, g.actor(s, p.identityPayload), p.Content)
	if err != nil {
		return err
	}

	g.hub.Broadcast(roomID, Event{Event: EventNewMessage, Data: msg}, nil)
	return nil
}

func (g *Gateway) vote(ctx context.Context, s *session, data json.RawMessage) error {
	var p VotePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	roomID, err := g.target(ctx, s, p.RoomID)
	if err != nil {
		return err
	}

	delta := 1
	if p.Delta != nil {
		delta = *p.Delta
	}
	if _, err := g.votes.CastVote(ctx, g.actor(s, p.identityPayload), p.RestaurantID, model.InRoom(roomID), delta); err != nil {
		return err
	}

	if err := g.PublishVote(ctx, roomID, p.RestaurantID); err != nil {
		g.logger.Error("failed to publish vote",
			"room_id", roomID,
			"restaurant_id", p.RestaurantID,
			"error", err)
	}
	return nil
}

func (g *Gateway) addRestaurant(ctx context.Context, s *session, data json.RawMessage) error {
	var p AddRestaurantPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	roomID, err := g.target(ctx, s, p.RoomID)
	if err != nil {
		return err
	}

	var addedBy *model.Identity
	if p.AddedBy != nil {
		by := model.UserIdentity(*p.AddedBy)
		addedBy = &by
	} else if by := g.actor(s, p.identityPayload); !by.IsZero() {
		addedBy = &by
	}

	candidate, created, err := g.rooms.AddCandidate(ctx, roomID, p.RestaurantID, addedBy)
	if err != nil {
		return err
	}

	event := Event{Event: EventRestaurantAdded, Data: candidate}
	if !created {
		g.hub.Send(s.sub, event)
		return nil
	}
	g.hub.Broadcast(roomID, event, nil)
	return nil
}

// PublishVote broadcasts the current tally of a room after a vote on restaurantID.
func (g *Gateway) PublishVote(ctx context.Context, roomID uuid.UUID, restaurantID int64) error {
	tally, err := g.votes.RoomTally(ctx, model.InRoom(roomID))
	if err != nil {
		return err
	}

	votes := 0
	for _, t := range tally {
		if t.RestaurantID == restaurantID {
			votes = t.Votes
			break
		}
	}

	g.hub.Broadcast(roomID, Event{
		Event: EventVoteUpdated,
		Data: VoteUpdated{
			RestaurantID: restaurantID,
			Votes:        votes,
			TotalVotes:   tally,
		},
	}, nil)
	return nil
}

func (g *Gateway) NotifyRoomClosed(room model.Room) {
	g.hub.Broadcast(room.ID, Event{
		Event: EventRoomClosed,
		Data:  RoomClosed{RoomID: room.ID.String(), Code: room.Code},
	}, nil)
}
