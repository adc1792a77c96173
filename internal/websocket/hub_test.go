package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopLogger keeps hub noise out of test output.
type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(noopLogger{})
	go hub.Run()
	return hub
}

func registerClient(t *testing.T, hub *Hub, userID uuid.UUID) *Client {
	t.Helper()
	client := newClient(hub, nil, userID)
	before := hub.UserConnectionCount(userID)
	hub.register <- client
	waitFor(t, func() bool { return hub.UserConnectionCount(userID) > before })
	return client
}

// waitFor polls until the condition holds; hub registration happens on
// the Run goroutine so tests have to wait for it.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func drainFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("expected a frame, got none")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("expected no frame, got %s", string(data))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubPresenceHooks(t *testing.T) {
	hub := NewHub(noopLogger{})

	var mu sync.Mutex
	var onlineEvents, offlineEvents []uuid.UUID
	hub.SetPresenceHooks(
		func(userID uuid.UUID) {
			mu.Lock()
			onlineEvents = append(onlineEvents, userID)
			mu.Unlock()
		},
		func(userID uuid.UUID) {
			mu.Lock()
			offlineEvents = append(offlineEvents, userID)
			mu.Unlock()
		},
	)
	go hub.Run()

	userID := uuid.New()
	first := registerClient(t, hub, userID)
	second := registerClient(t, hub, userID)
	require.Equal(t, 2, hub.UserConnectionCount(userID))

	// Only the first connection flips the user online.
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(onlineEvents) == 1
	})

	hub.unregister <- first
	waitFor(t, func() bool { return hub.UserConnectionCount(userID) == 1 })
	mu.Lock()
	assert.Empty(t, offlineEvents, "offline must not fire while a connection remains")
	mu.Unlock()

	hub.unregister <- second
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(offlineEvents) == 1
	})
	assert.Equal(t, userID, offlineEvents[0])
	assert.Equal(t, 0, hub.UserConnectionCount(userID))
}

func TestHubJoinLeaveBroadcast(t *testing.T) {
	hub := newRunningHub(t)
	roomID := uuid.NewString()

	alice := registerClient(t, hub, uuid.New())
	bob := registerClient(t, hub, uuid.New())

	hub.JoinRoom(alice, roomID)
	hub.JoinRoom(bob, roomID)
	require.Equal(t, 2, hub.RoomSubscriberCount(roomID))

	hub.BroadcastToRoom(roomID, []byte(`{"event":"x"}`))
	assert.Equal(t, `{"event":"x"}`, string(drainFrame(t, alice)))
	assert.Equal(t, `{"event":"x"}`, string(drainFrame(t, bob)))

	hub.LeaveRoom(bob, roomID)
	assert.Equal(t, 1, hub.RoomSubscriberCount(roomID))

	hub.BroadcastToRoom(roomID, []byte(`{"event":"y"}`))
	assert.Equal(t, `{"event":"y"}`, string(drainFrame(t, alice)))
	assertNoFrame(t, bob)
}

func TestHubBroadcastToEmptyRoomIsNoOp(t *testing.T) {
	hub := newRunningHub(t)

	// Must not panic or block.
	hub.BroadcastToRoom(uuid.NewString(), []byte(`{"event":"x"}`))
}

func TestHubUnregisterDropsRoomSubscriptions(t *testing.T) {
	hub := newRunningHub(t)
	roomID := uuid.NewString()

	client := registerClient(t, hub, uuid.New())
	hub.JoinRoom(client, roomID)
	require.Equal(t, 1, hub.RoomSubscriberCount(roomID))

	hub.unregister <- client
	waitFor(t, func() bool { return hub.RoomSubscriberCount(roomID) == 0 })

	// Closed clients silently drop anything still in flight.
	assert.False(t, client.trySend([]byte(`late`)))
}

func TestHubLeaveRoomNotJoinedIsNoOp(t *testing.T) {
	hub := newRunningHub(t)

	client := registerClient(t, hub, uuid.New())
	hub.LeaveRoom(client, uuid.NewString())
}

func TestHubSendToUserReachesAllConnections(t *testing.T) {
	hub := newRunningHub(t)
	userID := uuid.New()

	laptop := registerClient(t, hub, userID)
	phone := registerClient(t, hub, userID)
	other := registerClient(t, hub, uuid.New())

	hub.SendToUser(userID, []byte(`hello`))
	assert.Equal(t, "hello", string(drainFrame(t, laptop)))
	assert.Equal(t, "hello", string(drainFrame(t, phone)))
	assertNoFrame(t, other)
}
