package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"realtime-chat-be/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenVerifier struct {
	userID uuid.UUID
	err    error
}

func (f *fakeTokenVerifier) VerifyAccessToken(tokenStr string) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.userID, nil
}

type fakeChatRegistry struct {
	mu         sync.Mutex
	chat       *dto.ChatResponse
	wasCreated bool
	err        error
	calls      [][]string
	chatLists  map[uuid.UUID][]dto.ChatResponse
}

func (f *fakeChatRegistry) FindOrCreateChat(ctx context.Context, participantIds []string) (*dto.ChatResponse, bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, participantIds)
	f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	return f.chat, f.wasCreated, nil
}

func (f *fakeChatRegistry) GetUserChats(ctx context.Context, userID uuid.UUID) ([]dto.ChatResponse, error) {
	return f.chatLists[userID], nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	err      error
	saved    []dto.CreateMessageRequest
	senders  []uuid.UUID
	messages []dto.MessageResponse
}

func (f *fakeMessageStore) CreateMessage(ctx context.Context, senderID uuid.UUID, req *dto.CreateMessageRequest) (*dto.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, *req)
	f.senders = append(f.senders, senderID)
	return &dto.MessageResponse{
		Id:        uuid.NewString(),
		RoomId:    req.RoomId,
		SenderId:  senderID.String(),
		Body:      req.Body,
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeMessageStore) GetChatMessages(ctx context.Context, roomID string) ([]dto.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

type fakeAdmitter struct {
	allowed    bool
	retryAfter time.Duration

	mu   sync.Mutex
	keys []string
}

func (f *fakeAdmitter) Admit(key string) (bool, time.Duration) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return f.allowed, f.retryAfter
}

type gatewayFixture struct {
	gateway  *Gateway
	hub      *Hub
	registry *fakeChatRegistry
	store    *fakeMessageStore
	limiter  *fakeAdmitter
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	hub := newRunningHub(t)
	registry := &fakeChatRegistry{chatLists: make(map[uuid.UUID][]dto.ChatResponse)}
	store := &fakeMessageStore{}
	limiter := &fakeAdmitter{allowed: true}
	gateway := NewGateway(hub, &fakeTokenVerifier{}, registry, store, limiter, noopLogger{})
	return &gatewayFixture{
		gateway:  gateway,
		hub:      hub,
		registry: registry,
		store:    store,
		limiter:  limiter,
	}
}

func decodeFrame(t *testing.T, raw []byte) Frame {
	t.Helper()
	var frame Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestDispatchUnknownEventIsDropped(t *testing.T) {
	fx := newGatewayFixture(t)
	client := registerClient(t, fx.hub, uuid.New())

	fx.gateway.dispatch(client, []byte(`{"event":"no-such-event"}`))
	assertNoFrame(t, client)
}

func TestDispatchMalformedFrameIsDropped(t *testing.T) {
	fx := newGatewayFixture(t)
	client := registerClient(t, fx.hub, uuid.New())

	fx.gateway.dispatch(client, []byte(`not json`))
	assertNoFrame(t, client)
}

func TestDispatchRateLimitedEventDenied(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.limiter.allowed = false
	fx.limiter.retryAfter = 42 * time.Second

	client := registerClient(t, fx.hub, uuid.New())
	fx.gateway.dispatch(client, []byte(`{"event":"send-message","data":{"roomId":"r1","body":"hi"}}`))

	frame := decodeFrame(t, drainFrame(t, client))
	assert.Equal(t, EventError, frame.Event)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "Rate limit exceeded. Try again in 42 seconds.", payload.Message)

	// A denied event never reaches the store.
	assert.Empty(t, fx.store.saved)
	// Budgets are keyed per user, not per connection.
	assert.Equal(t, []string{client.UserID.String()}, fx.limiter.keys)
}

func TestDispatchReadOnlyEventsBypassLimiter(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.limiter.allowed = false

	client := registerClient(t, fx.hub, uuid.New())
	fx.gateway.dispatch(client, []byte(`{"event":"request-all-chats"}`))

	frame := decodeFrame(t, drainFrame(t, client))
	assert.Equal(t, EventSendAllChats, frame.Event)
	assert.Empty(t, fx.limiter.keys)
}

func TestHandleJoinBroadcastsToRoomIncludingJoiner(t *testing.T) {
	fx := newGatewayFixture(t)
	roomID := uuid.NewString()

	resident := registerClient(t, fx.hub, uuid.New())
	fx.hub.JoinRoom(resident, roomID)

	joiner := registerClient(t, fx.hub, uuid.New())
	fx.gateway.handleJoin(context.Background(), joiner, mustRaw(t, roomID))

	for _, c := range []*Client{resident, joiner} {
		frame := decodeFrame(t, drainFrame(t, c))
		assert.Equal(t, EventUserJoined, frame.Event)

		var payload UserPayload
		require.NoError(t, json.Unmarshal(frame.Data, &payload))
		assert.Equal(t, joiner.UserID.String(), payload.UserId)
	}
	assert.Equal(t, 2, fx.hub.RoomSubscriberCount(roomID))
}

func TestHandleJoinMissingRoomIdIsIgnored(t *testing.T) {
	fx := newGatewayFixture(t)
	client := registerClient(t, fx.hub, uuid.New())

	fx.gateway.handleJoin(context.Background(), client, mustRaw(t, ""))
	assertNoFrame(t, client)

	fx.gateway.handleJoin(context.Background(), client, nil)
	assertNoFrame(t, client)
}

func TestHandleLeaveBroadcastExcludesLeaver(t *testing.T) {
	fx := newGatewayFixture(t)
	roomID := uuid.NewString()

	leaver := registerClient(t, fx.hub, uuid.New())
	resident := registerClient(t, fx.hub, uuid.New())
	fx.hub.JoinRoom(leaver, roomID)
	fx.hub.JoinRoom(resident, roomID)

	fx.gateway.handleLeave(context.Background(), leaver, mustRaw(t, roomID))

	frame := decodeFrame(t, drainFrame(t, resident))
	assert.Equal(t, EventUserLeft, frame.Event)

	var payload UserPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, leaver.UserID.String(), payload.UserId)

	assertNoFrame(t, leaver)
	assert.Equal(t, 1, fx.hub.RoomSubscriberCount(roomID))
}

func TestHandleSendMessagePersistsThenFansOut(t *testing.T) {
	fx := newGatewayFixture(t)
	roomID := uuid.NewString()

	sender := registerClient(t, fx.hub, uuid.New())
	receiver := registerClient(t, fx.hub, uuid.New())
	fx.hub.JoinRoom(sender, roomID)
	fx.hub.JoinRoom(receiver, roomID)

	payload := mustRawJSON(t, dto.CreateMessageRequest{RoomId: roomID, Body: "hello there"})
	fx.gateway.handleSendMessage(context.Background(), sender, payload)

	require.Len(t, fx.store.saved, 1)
	assert.Equal(t, sender.UserID, fx.store.senders[0])

	// Sender and receiver both get the persisted message.
	for _, c := range []*Client{sender, receiver} {
		frame := decodeFrame(t, drainFrame(t, c))
		assert.Equal(t, EventMessageReceived, frame.Event)

		var msg dto.MessageResponse
		require.NoError(t, json.Unmarshal(frame.Data, &msg))
		assert.Equal(t, "hello there", msg.Body)
		assert.Equal(t, sender.UserID.String(), msg.SenderId)
	}
}

func TestHandleSendMessagePersistFailureOnlyTellsSender(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.store.err = errors.New("db down")
	roomID := uuid.NewString()

	sender := registerClient(t, fx.hub, uuid.New())
	receiver := registerClient(t, fx.hub, uuid.New())
	fx.hub.JoinRoom(sender, roomID)
	fx.hub.JoinRoom(receiver, roomID)

	payload := mustRawJSON(t, dto.CreateMessageRequest{RoomId: roomID, Body: "doomed"})
	fx.gateway.handleSendMessage(context.Background(), sender, payload)

	frame := decodeFrame(t, drainFrame(t, sender))
	assert.Equal(t, EventError, frame.Event)

	var errPayload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &errPayload))
	assert.Equal(t, "Failed to send message", errPayload.Message)

	assertNoFrame(t, receiver)
}

func TestHandleSendMessageRejectsInvalidPayload(t *testing.T) {
	fx := newGatewayFixture(t)
	sender := registerClient(t, fx.hub, uuid.New())

	fx.gateway.handleSendMessage(context.Background(), sender, mustRawJSON(t, dto.CreateMessageRequest{Body: "no room"}))

	frame := decodeFrame(t, drainFrame(t, sender))
	assert.Equal(t, EventError, frame.Event)
	assert.Empty(t, fx.store.saved)
}

func TestHandleRequestAllMessages(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.store.messages = []dto.MessageResponse{
		{Id: uuid.NewString(), Body: "first"},
		{Id: uuid.NewString(), Body: "second"},
	}

	client := registerClient(t, fx.hub, uuid.New())
	fx.gateway.handleRequestAllMessages(context.Background(), client, mustRaw(t, uuid.NewString()))

	frame := decodeFrame(t, drainFrame(t, client))
	assert.Equal(t, EventSendAllMessages, frame.Event)

	var messages []dto.MessageResponse
	require.NoError(t, json.Unmarshal(frame.Data, &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Body)
}

func TestHandleCreateChatExistingRoomReportedToRequesterOnly(t *testing.T) {
	fx := newGatewayFixture(t)
	existing := &dto.ChatResponse{Id: uuid.NewString(), Participants: []string{"a", "b"}}
	fx.registry.chat = existing
	fx.registry.wasCreated = false

	requester := registerClient(t, fx.hub, uuid.New())
	bystander := registerClient(t, fx.hub, uuid.New())

	payload := mustRawJSON(t, dto.CreateChatRequest{Participants: []string{uuid.NewString(), uuid.NewString()}})
	fx.gateway.handleCreateChat(context.Background(), requester, payload)

	frame := decodeFrame(t, drainFrame(t, requester))
	assert.Equal(t, EventChatAlreadyExists, frame.Event)

	var chat dto.ChatResponse
	require.NoError(t, json.Unmarshal(frame.Data, &chat))
	assert.Equal(t, existing.Id, chat.Id)

	assertNoFrame(t, bystander)
	// No auto-subscription on creation.
	assert.Equal(t, 0, fx.hub.RoomSubscriberCount(existing.Id))
}

func TestHandleCreateChatNewRoomSendsNothingDirectly(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.registry.chat = &dto.ChatResponse{Id: uuid.NewString()}
	fx.registry.wasCreated = true

	requester := registerClient(t, fx.hub, uuid.New())
	payload := mustRawJSON(t, dto.CreateChatRequest{Participants: []string{uuid.NewString()}})
	fx.gateway.handleCreateChat(context.Background(), requester, payload)

	// New rooms are announced through the chat feed worker instead.
	assertNoFrame(t, requester)
	require.Len(t, fx.registry.calls, 1)
}

func TestHandleCreateChatRegistryError(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.registry.err = errors.New("participant does not exist")

	requester := registerClient(t, fx.hub, uuid.New())
	payload := mustRawJSON(t, dto.CreateChatRequest{Participants: []string{uuid.NewString()}})
	fx.gateway.handleCreateChat(context.Background(), requester, payload)

	frame := decodeFrame(t, drainFrame(t, requester))
	assert.Equal(t, EventError, frame.Event)
}

func TestHandleRequestAllChats(t *testing.T) {
	fx := newGatewayFixture(t)
	client := registerClient(t, fx.hub, uuid.New())
	fx.registry.chatLists[client.UserID] = []dto.ChatResponse{{Id: uuid.NewString()}}

	fx.gateway.handleRequestAllChats(context.Background(), client, nil)

	frame := decodeFrame(t, drainFrame(t, client))
	assert.Equal(t, EventSendAllChats, frame.Event)

	var chats []dto.ChatResponse
	require.NoError(t, json.Unmarshal(frame.Data, &chats))
	require.Len(t, chats, 1)
}

func TestDecodeRoomIDShapes(t *testing.T) {
	assert.Equal(t, "r1", decodeRoomID(json.RawMessage(`"r1"`)))
	assert.Equal(t, "r2", decodeRoomID(json.RawMessage(`{"roomId":"r2"}`)))
	assert.Equal(t, "", decodeRoomID(nil))
	assert.Equal(t, "", decodeRoomID(json.RawMessage(`{}`)))
	assert.Equal(t, "", decodeRoomID(json.RawMessage(`123`)))
}

func mustRaw(t *testing.T, roomID string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(roomID)
	require.NoError(t, err)
	return raw
}

func mustRawJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
