package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// MockMQTTClient is a mock transport recording publishes and subscriptions.
type MockMQTTClient struct {
	mu            sync.Mutex
	connected     bool
	published     []PublishedMessage
	publishError  error
	subscriptions map[string]paho.MessageHandler
	subscribeN    int
}

type PublishedMessage struct {
	Topic   string
	Payload []byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected:     true,
		subscriptions: make(map[string]paho.MessageHandler),
	}
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishError != nil {
		return m.publishError
	}
	m.published = append(m.published, PublishedMessage{Topic: topic, Payload: payload})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, handler paho.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = handler
	m.subscribeN++
	return nil
}

func (m *MockMQTTClient) GetPublished() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage{}, m.published...)
}

func (m *MockMQTTClient) SimulateMessage(filter, topic string, payload []byte) {
	m.mu.Lock()
	handler, ok := m.subscriptions[filter]
	m.mu.Unlock()
	if ok {
		handler(nil, &mockMessage{topic: topic, payload: payload})
	}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

// fakeRuntime runs posted funcs immediately and records commands.
type fakeRuntime struct {
	mu       sync.Mutex
	commands []bus.Command
	pos      mgl32.Vec3
	layer    int
	standing int
}

func (r *fakeRuntime) Post(fn func()) bool { fn(); return true }

func (r *fakeRuntime) PostCommand(cmd bus.Command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return true
}

func (r *fakeRuntime) SetPlayer(pos mgl32.Vec3, layer, standingOn int) {
	r.pos, r.layer, r.standing = pos, layer, standingOn
}

// flush publishes everything queued so far.
func flush(b *Bridge) {
	for {
		select {
		case msg := <-b.out:
			b.send(msg)
		default:
			return
		}
	}
}

func TestBridge_ForwardsCommands(t *testing.T) {
	mock := NewMockMQTTClient()
	b := NewBridge(mock, "scene/dev/", &fakeRuntime{}, nil)
	bs := bus.New()
	bs.Register(b)

	bs.Publish(bus.Command{Kind: bus.KindPlaySound, Payload: bus.PlaySound{Name: "lever_pull", Loop: 0, ObjectID: 1}})
	bs.Publish(bus.Command{Kind: bus.KindInputDisable})
	flush(b)

	published := mock.GetPublished()
	if len(published) != 2 {
		t.Fatalf("expected 2 published messages, got %d", len(published))
	}
	if published[0].Topic != "scene/dev/commands/play_sound" {
		t.Errorf("wrong topic: %s", published[0].Topic)
	}

	var env struct {
		Kind    string                 `json:"kind"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(published[0].Payload, &env); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if env.Kind != "play_sound" || env.Payload["name"] != "lever_pull" || env.Payload["object_id"] != float64(1) {
		t.Errorf("unexpected payload: %s", published[0].Payload)
	}

	if err := json.Unmarshal(published[1].Payload, &env); err != nil {
		t.Fatal(err)
	}
	if env.Kind != "input_disable" {
		t.Errorf("wrong kind: %s", env.Kind)
	}
}

func TestBridge_MoveActorTarget(t *testing.T) {
	mock := NewMockMQTTClient()
	b := NewBridge(mock, "scene", &fakeRuntime{}, nil)
	b.HandleCommand(bus.Command{Kind: bus.KindMoveActor, Payload: bus.MoveActor{ActorID: 0, Target: mgl32.Vec3{1, 2, 3}, Layer: 1, Teleport: true}})
	flush(b)

	var env struct {
		Payload moveWire `json:"payload"`
	}
	if err := json.Unmarshal(mock.GetPublished()[0].Payload, &env); err != nil {
		t.Fatal(err)
	}
	if env.Payload.Target != (mgl32.Vec3{1, 2, 3}) || !env.Payload.Teleport || env.Payload.Layer != 1 {
		t.Errorf("unexpected move payload: %+v", env.Payload)
	}
}

func TestBridge_NotConnectedEmitsError(t *testing.T) {
	events.Clear()
	mock := NewMockMQTTClient()
	mock.connected = false
	b := NewBridge(mock, "scene", &fakeRuntime{}, nil)

	b.HandleCommand(bus.Command{Kind: bus.KindCameraFree})
	flush(b)

	if len(mock.GetPublished()) != 0 {
		t.Error("should not publish while disconnected")
	}
	if len(events.Find("collaborator.error")) != 1 {
		t.Error("expected collaborator.error")
	}
}

func TestBridge_PublishFailureEmitsError(t *testing.T) {
	events.Clear()
	mock := NewMockMQTTClient()
	mock.publishError = errors.New("broker gone")
	b := NewBridge(mock, "scene", &fakeRuntime{}, nil)

	b.HandleCommand(bus.Command{Kind: bus.KindGameStateChanged, Payload: bus.GameStateChanged{State: "cutscene"}})
	flush(b)

	errs := events.Find("collaborator.error")
	if len(errs) != 1 {
		t.Fatalf("expected 1 collaborator.error, got %d", len(errs))
	}
	if errs[0].Fields["topic"] != "scene/commands/game_state_changed" {
		t.Errorf("missing topic in error fields: %v", errs[0].Fields)
	}
}

func TestBridge_SubscribeIdempotent(t *testing.T) {
	mock := NewMockMQTTClient()
	b := NewBridge(mock, "scene", &fakeRuntime{}, nil)

	for i := 0; i < 3; i++ {
		if err := b.Subscribe(); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	if mock.subscribeN != 1 {
		t.Errorf("expected 1 broker subscribe, got %d", mock.subscribeN)
	}
	if !b.IsSubscribed("scene/notify/#") {
		t.Error("notify wildcard not tracked")
	}

	if err := b.Resubscribe(); err != nil {
		t.Fatal(err)
	}
	if mock.subscribeN != 2 {
		t.Errorf("resubscribe should hit the broker again, got %d", mock.subscribeN)
	}
	if got := b.SubscribedTopics(); len(got) != 1 {
		t.Errorf("unexpected topics: %v", got)
	}
}

func TestBridge_InboundNotifications(t *testing.T) {
	mock := NewMockMQTTClient()
	rt := &fakeRuntime{}
	mon := NewMonitor(2)
	b := NewBridge(mock, "scene", rt, mon)
	if err := b.Subscribe(); err != nil {
		t.Fatal(err)
	}
	filter := b.NotifyTopic()

	mock.SimulateMessage(filter, "scene/notify/actor", []byte(`{"position":[4,0,2],"layer":1}`))
	if rt.pos != (mgl32.Vec3{4, 0, 2}) || rt.layer != 1 || rt.standing != trigger.Nothing {
		t.Errorf("actor not applied: %+v", rt)
	}

	mock.SimulateMessage(filter, "scene/notify/interact", []byte(`{"object_id":7,"actor_id":0,"player":true}`))
	mock.SimulateMessage(filter, "scene/notify/deactivate", []byte(`{"object_id":3}`))
	mock.SimulateMessage(filter, "scene/notify/game_state", []byte(`{"state":"menu"}`))
	if len(rt.commands) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(rt.commands))
	}
	if p, ok := rt.commands[0].Payload.(bus.Interact); !ok || p.ObjectID != 7 || !p.Player {
		t.Errorf("unexpected interact: %+v", rt.commands[0])
	}
	if rt.commands[1].Kind != bus.KindDeactivateObject {
		t.Errorf("expected deactivate, got %s", rt.commands[1].Kind)
	}
	if p := rt.commands[2].Payload.(bus.GameStateChanged); p.State != "menu" {
		t.Errorf("unexpected state %q", p.State)
	}

	mock.SimulateMessage(filter, "scene/notify/heartbeat", []byte(`{"id":"audio","interval_ms":1000}`))
	if st := mon.State("audio"); st == nil || !st.Connected {
		t.Error("heartbeat not recorded")
	}
}

func TestBridge_BadNotifications(t *testing.T) {
	events.Clear()
	mock := NewMockMQTTClient()
	rt := &fakeRuntime{}
	b := NewBridge(mock, "scene", rt, nil)
	b.Subscribe()
	filter := b.NotifyTopic()

	mock.SimulateMessage(filter, "scene/notify/interact", []byte(`not json`))
	mock.SimulateMessage(filter, "scene/notify/teleport", []byte(`{}`))
	mock.SimulateMessage(filter, "scene/notify/game_state", []byte(`{"state":""}`))

	if len(rt.commands) != 0 {
		t.Errorf("bad notifications must not post commands: %v", rt.commands)
	}
	if n := len(events.Find("collaborator.error")); n != 3 {
		t.Errorf("expected 3 collaborator.error events, got %d", n)
	}
}
