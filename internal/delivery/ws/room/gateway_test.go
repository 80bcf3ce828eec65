package ws_room

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	infra_memory_message "github.com/humanbelnik/dinevote/internal/infra/memory/message"
	infra_memory_presence "github.com/humanbelnik/dinevote/internal/infra/memory/presence"
	infra_memory_room "github.com/humanbelnik/dinevote/internal/infra/memory/room"
	infra_memory_vote "github.com/humanbelnik/dinevote/internal/infra/memory/vote"
	"github.com/humanbelnik/dinevote/internal/model"
	usecase_message "github.com/humanbelnik/dinevote/internal/usecase/message"
	usecase_room "github.com/humanbelnik/dinevote/internal/usecase/room"
	usecase_vote "github.com/humanbelnik/dinevote/internal/usecase/vote"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
)

type GatewaySuite struct {
	suite.Suite

	ctx     context.Context
	rooms   *usecase_room.Usecase
	votes   *usecase_vote.Usecase
	hub     *Hub
	gateway *Gateway
	room    model.Room
}

func (s *GatewaySuite) BeforeEach(t provider.T) {
	s.ctx = context.Background()
	s.rooms = usecase_room.New(infra_memory_room.New())
	s.votes = usecase_vote.New(infra_memory_vote.New(), s.rooms)
	messages := usecase_message.New(infra_memory_message.New(), s.rooms)

	s.hub = NewHub(discardLogger())
	s.gateway = NewGateway(s.hub, s.rooms, s.votes, messages, infra_memory_presence.New(), WithLogger(discardLogger()))

	room, err := s.rooms.CreateRoom(s.ctx, "Friday dinner", model.Filters{})
	t.Require().NoError(err)
	s.room = room
}

func frame(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	msg, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		panic(err)
	}
	return msg
}

func (s *GatewaySuite) join(sub *fakeSub, guest string) *session {
	sess := &session{sub: sub}
	s.gateway.handle(s.ctx, sess, frame(EventJoinRoom, map[string]any{"roomId": s.room.Code, "guestName": guest}))
	return sess
}

func (s *GatewaySuite) TestJoinAnnouncesAndSnapshots(t provider.T) {
	alice, bob := newFakeSub("alice"), newFakeSub("bob")

	s.join(alice, "alice")
	t.Require().Len(alice.received(EventRoomSnapshot), 1)

	s.join(bob, "bob")

	joined := alice.received(EventUserJoined)
	t.Require().Len(joined, 1)
	var payload UserJoined
	t.Require().NoError(json.Unmarshal(joined[0].Data, &payload))
	assert.Equal(t, "bob", payload.GuestName)
	assert.Equal(t, "bob", payload.ConnectionID)
	assert.Equal(t, 2, payload.Participants)

	assert.Empty(t, bob.received(EventUserJoined))
	snapshots := bob.received(EventRoomSnapshot)
	t.Require().Len(snapshots, 1)
	var snapshot RoomSnapshot
	t.Require().NoError(json.Unmarshal(snapshots[0].Data, &snapshot))
	assert.Equal(t, s.room.ID, snapshot.Room.ID)
	assert.Equal(t, 2, snapshot.Participants)

	details, err := s.rooms.Details(s.ctx, s.room.Code)
	t.Require().NoError(err)
	assert.Len(t, details.Members, 2)
}

func (s *GatewaySuite) TestVoteBroadcastsTally(t provider.T) {
	alice, bob := newFakeSub("alice"), newFakeSub("bob")
	aliceSess := s.join(alice, "alice")
	bobSess := s.join(bob, "bob")

	s.gateway.handle(s.ctx, aliceSess, frame(EventVote, map[string]any{"restaurantId": 1}))
	s.gateway.handle(s.ctx, bobSess, frame(EventVote, map[string]any{"roomId": s.room.ID.String(), "restaurantId": 1}))

	for _, sub := range []*fakeSub{alice, bob} {
		updates := sub.received(EventVoteUpdated)
		t.Require().Len(updates, 2)

		var last VoteUpdated
		t.Require().NoError(json.Unmarshal(updates[1].Data, &last))
		assert.Equal(t, int64(1), last.RestaurantID)
		assert.Equal(t, 2, last.Votes)
		assert.Equal(t, []model.TallyEntry{{RestaurantID: 1, Votes: 2}}, last.TotalVotes)
		assert.Empty(t, sub.received(EventError))
	}
}

func (s *GatewaySuite) TestFailuresGoToOriginOnly(t provider.T) {
	alice, bob := newFakeSub("alice"), newFakeSub("bob")
	s.join(alice, "alice")
	bobSess := s.join(bob, "bob")

	_, err := s.rooms.CloseRoom(s.ctx, s.room.Code)
	t.Require().NoError(err)

	s.gateway.handle(s.ctx, bobSess, frame(EventVote, map[string]any{"restaurantId": 1}))
	s.gateway.handle(s.ctx, bobSess, frame("dance", map[string]any{}))
	s.gateway.handle(s.ctx, bobSess, []byte("{not json"))

	errs := bob.received(EventError)
	t.Require().Len(errs, 3)
	var payload ErrorPayload
	t.Require().NoError(json.Unmarshal(errs[0].Data, &payload))
	assert.Equal(t, "room is no longer active", payload.Message)

	assert.Empty(t, alice.received(EventError))
	assert.Empty(t, alice.received(EventVoteUpdated))

	tally, err := s.votes.RoomTally(s.ctx, model.InRoom(s.room.ID))
	t.Require().NoError(err)
	assert.Empty(t, tally)
}

func (s *GatewaySuite) TestJoinUnknownRoom(t provider.T) {
	sub := newFakeSub("ghost")
	sess := &session{sub: sub}

	s.gateway.handle(s.ctx, sess, frame(EventJoinRoom, map[string]any{"roomId": uuid.NewString()}))

	errs := sub.received(EventError)
	t.Require().Len(errs, 1)
	assert.False(t, sess.joined)
	assert.Equal(t, 0, s.hub.Count(s.room.ID))
}

func (s *GatewaySuite) TestLeaveAndDisconnect(t provider.T) {
	alice, bob := newFakeSub("alice"), newFakeSub("bob")
	aliceSess := s.join(alice, "alice")
	bobSess := s.join(bob, "bob")

	s.gateway.handle(s.ctx, bobSess, frame(EventLeaveRoom, s.room.ID.String()))

	left := alice.received(EventUserLeft)
	t.Require().Len(left, 1)
	var payload UserLeft
	t.Require().NoError(json.Unmarshal(left[0].Data, &payload))
	assert.Equal(t, "bob", payload.ConnectionID)
	assert.Equal(t, 1, payload.Participants)
	assert.False(t, bobSess.joined)

	s.gateway.handle(s.ctx, bobSess, frame(EventLeaveRoom, s.room.ID.String()))
	assert.Len(t, alice.received(EventUserLeft), 1)

	s.gateway.disconnect(s.ctx, aliceSess)
	assert.Equal(t, 0, s.hub.Count(s.room.ID))
}

func (s *GatewaySuite) TestLeaveOtherRoomIsNoop(t provider.T) {
	other, err := s.rooms.CreateRoom(s.ctx, "Saturday lunch", model.Filters{})
	t.Require().NoError(err)

	alice, bob := newFakeSub("alice"), newFakeSub("bob")
	s.join(alice, "alice")
	bobSess := s.join(bob, "bob")

	for _, ref := range []any{other.Code, other.ID.String(), map[string]any{"roomId": other.Code}, "NOSUCHRM"} {
		s.gateway.handle(s.ctx, bobSess, frame(EventLeaveRoom, ref))
	}

	assert.True(t, bobSess.joined)
	assert.Equal(t, s.room.ID, bobSess.roomID)
	assert.Equal(t, 2, s.hub.Count(s.room.ID))
	assert.Empty(t, alice.received(EventUserLeft))
	assert.Empty(t, bob.received(EventError))

	s.gateway.handle(s.ctx, bobSess, frame(EventLeaveRoom, s.room.Code))
	assert.False(t, bobSess.joined)
	assert.Len(t, alice.received(EventUserLeft), 1)
}

func (s *GatewaySuite) TestSwitchRoomLeavesPrevious(t provider.T) {
	alice, bob := newFakeSub("alice"), newFakeSub("bob")
	s.join(alice, "alice")
	bobSess := s.join(bob, "bob")

	other, err := s.rooms.CreateRoom(s.ctx, "Saturday lunch", model.Filters{})
	t.Require().NoError(err)
	s.gateway.handle(s.ctx, bobSess, frame(EventJoinRoom, map[string]any{"roomId": other.Code, "guestName": "bob"}))

	assert.Len(t, alice.received(EventUserLeft), 1)
	assert.Equal(t, other.ID, bobSess.roomID)
	assert.Equal(t, 1, s.hub.Count(s.room.ID))
	assert.Equal(t, 1, s.hub.Count(other.ID))
}

func (s *GatewaySuite) TestMessagesAndCandidates(t provider.T) {
	alice, bob := newFakeSub("alice"), newFakeSub("bob")
	aliceSess := s.join(alice, "alice")
	s.join(bob, "bob")

	s.gateway.handle(s.ctx, aliceSess, frame(EventSendMessage, map[string]any{"content": "pizza?"}))
	s.gateway.handle(s.ctx, aliceSess, frame(EventAddRestaurant, map[string]any{"restaurantId": 7}))
	s.gateway.handle(s.ctx, aliceSess, frame(EventAddRestaurant, map[string]any{"restaurantId": 7}))

	for _, sub := range []*fakeSub{alice, bob} {
		msgs := sub.received(EventNewMessage)
		t.Require().Len(msgs, 1)
		var msg model.Message
		t.Require().NoError(json.Unmarshal(msgs[0].Data, &msg))
		assert.Equal(t, "pizza?", msg.Content)
		assert.Equal(t, "alice", msg.Author.GuestName)
	}

	assert.Len(t, alice.received(EventRestaurantAdded), 2)
	assert.Len(t, bob.received(EventRestaurantAdded), 1)

	candidates, err := s.rooms.Candidates(s.ctx, s.room.ID)
	t.Require().NoError(err)
	assert.Len(t, candidates, 1)
}

type brokenPresence struct{}

func (brokenPresence) Enter(context.Context, uuid.UUID, string) (int, error) {
	return 0, errors.New("connection refused")
}

func (brokenPresence) Leave(context.Context, uuid.UUID, string) (int, error) {
	return 0, errors.New("connection refused")
}

func (brokenPresence) Count(context.Context, uuid.UUID) (int, error) {
	return 0, errors.New("connection refused")
}

func (s *GatewaySuite) TestPresenceFailureFallsBackToHub(t provider.T) {
	s.gateway.presence = brokenPresence{}
	alice, bob := newFakeSub("alice"), newFakeSub("bob")
	s.join(alice, "alice")
	s.join(bob, "bob")

	joined := alice.received(EventUserJoined)
	t.Require().Len(joined, 1)
	var payload UserJoined
	t.Require().NoError(json.Unmarshal(joined[0].Data, &payload))
	assert.Equal(t, 2, payload.Participants)

	snapshots := bob.received(EventRoomSnapshot)
	t.Require().Len(snapshots, 1)
	var snapshot RoomSnapshot
	t.Require().NoError(json.Unmarshal(snapshots[0].Data, &snapshot))
	assert.Equal(t, 2, snapshot.Participants)
	assert.Empty(t, bob.received(EventError))
}

type panickingVotes struct {
	VoteService
}

func (panickingVotes) CastVote(context.Context, model.Identity, int64, model.RoomContext, int) (model.Vote, error) {
	panic("boom")
}

type failingTally struct {
	VoteService
}

func (failingTally) RoomTally(context.Context, model.RoomContext) ([]model.TallyEntry, error) {
	return nil, model.ErrInternal
}

func (s *GatewaySuite) TestCommittedVoteIsNotReportedAsFailure(t provider.T) {
	sub := newFakeSub("alice")
	sess := s.join(sub, "alice")
	s.gateway.votes = failingTally{VoteService: s.votes}

	s.gateway.handle(s.ctx, sess, frame(EventVote, map[string]any{"restaurantId": 1}))

	assert.Empty(t, sub.received(EventError))
	votes, err := s.votes.RestaurantTally(s.ctx, model.InRoom(s.room.ID), 1)
	t.Require().NoError(err)
	assert.Equal(t, 1, votes)
}

func (s *GatewaySuite) TestPanicIsRecovered(t provider.T) {
	s.gateway.votes = panickingVotes{VoteService: s.votes}
	sub := newFakeSub("alice")
	sess := s.join(sub, "alice")

	s.gateway.handle(s.ctx, sess, frame(EventVote, map[string]any{"restaurantId": 1}))

	errs := sub.received(EventError)
	t.Require().Len(errs, 1)
	var payload ErrorPayload
	t.Require().NoError(json.Unmarshal(errs[0].Data, &payload))
	assert.Equal(t, "internal error", payload.Message)
}

func (s *GatewaySuite) TestRoomClosedNotification(t provider.T) {
	sub := newFakeSub("alice")
	s.join(sub, "alice")

	s.gateway.NotifyRoomClosed(s.room)

	assert.Len(t, sub.received(EventRoomClosed), 1)
}

func TestGatewaySuite(t *testing.T) {
	suite.RunSuite(t, new(GatewaySuite))
}
