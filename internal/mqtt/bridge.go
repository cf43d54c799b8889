package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// Transport is the part of Client the bridge uses.
type Transport interface {
	IsConnected() bool
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler paho.MessageHandler) error
}

// Runtime receives inbound notifications. Both methods must be safe to call
// from any goroutine; Post runs fn on the game loop.
type Runtime interface {
	Post(fn func()) bool
	PostCommand(cmd bus.Command) bool
	SetPlayer(pos mgl32.Vec3, layer, standingOn int)
}

// outboundKinds are forwarded to collaborators (audio, camera, input, actor
// controller, scene fader).
var outboundKinds = []bus.Kind{
	bus.KindPlaySound,
	bus.KindCameraFocus,
	bus.KindCameraFree,
	bus.KindInputEnable,
	bus.KindInputDisable,
	bus.KindMoveActor,
	bus.KindFaceActor,
	bus.KindSceneTransition,
	bus.KindSceneLoaded,
	bus.KindGameStateChanged,
}

const outboundQueue = 256

type message struct {
	topic   string
	payload []byte
}

// Bridge forwards bus commands to collaborators on
// <prefix>/commands/<kind> and turns notifications received on
// <prefix>/notify/<name> into runtime inbox posts.
type Bridge struct {
	transport Transport
	prefix    string
	rt        Runtime
	monitor   *Monitor
	out       chan message

	mu         sync.RWMutex
	subscribed map[string]bool
}

// NewBridge creates a bridge. monitor may be nil.
func NewBridge(t Transport, prefix string, rt Runtime, monitor *Monitor) *Bridge {
	return &Bridge{
		transport:  t,
		prefix:     strings.TrimSuffix(prefix, "/"),
		rt:         rt,
		monitor:    monitor,
		out:        make(chan message, outboundQueue),
		subscribed: make(map[string]bool),
	}
}

// CommandTopic returns the topic a command kind is published on.
func (b *Bridge) CommandTopic(kind bus.Kind) string {
	return b.prefix + "/commands/" + string(kind)
}

// NotifyTopic is the wildcard the bridge subscribes to.
func (b *Bridge) NotifyTopic() string {
	return b.prefix + "/notify/#"
}

func (b *Bridge) Kinds() []bus.Kind { return outboundKinds }

// HandleCommand encodes cmd and queues it for the publisher goroutine. It
// runs on the game loop and never blocks on the network.
func (b *Bridge) HandleCommand(cmd bus.Command) {
	body, err := json.Marshal(envelope{Kind: string(cmd.Kind), Payload: wirePayload(cmd)})
	if err != nil {
		b.emitError(string(cmd.Kind), "", fmt.Sprintf("encode: %v", err))
		return
	}
	msg := message{topic: b.CommandTopic(cmd.Kind), payload: body}
	select {
	case b.out <- msg:
	default:
		b.emitError(string(cmd.Kind), msg.topic, "outbound queue full")
	}
}

// Run publishes queued commands until ctx is done.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.out:
			b.send(msg)
		}
	}
}

func (b *Bridge) send(msg message) {
	if b.transport == nil || !b.transport.IsConnected() {
		b.emitError("", msg.topic, "MQTT client not connected")
		return
	}
	if err := b.transport.Publish(msg.topic, msg.payload); err != nil {
		b.emitError("", msg.topic, fmt.Sprintf("MQTT publish failed: %v", err))
	}
}

// Subscribe subscribes to the notify wildcard if not already subscribed.
// Calling it again is safe.
func (b *Bridge) Subscribe() error {
	topic := b.NotifyTopic()

	b.mu.RLock()
	done := b.subscribed[topic]
	b.mu.RUnlock()
	if done {
		return nil
	}

	if err := b.transport.Subscribe(topic, func(_ paho.Client, msg paho.Message) {
		b.handleMessage(msg.Topic(), msg.Payload())
	}); err != nil {
		b.emitError("", topic, fmt.Sprintf("subscribe: %v", err))
		return err
	}

	b.mu.Lock()
	b.subscribed[topic] = true
	b.mu.Unlock()
	return nil
}

// Resubscribe forgets existing subscriptions and subscribes again. Hook it
// to the client's reconnect callback.
func (b *Bridge) Resubscribe() error {
	b.ClearSubscriptions()
	return b.Subscribe()
}

// IsSubscribed reports whether topic is subscribed.
func (b *Bridge) IsSubscribed(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscribed[topic]
}

// SubscribedTopics lists subscribed topics in order.
func (b *Bridge) SubscribedTopics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	topics := make([]string, 0, len(b.subscribed))
	for t := range b.subscribed {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// ClearSubscriptions clears the subscription tracking.
func (b *Bridge) ClearSubscriptions() {
	b.mu.Lock()
	b.subscribed = make(map[string]bool)
	b.mu.Unlock()
}

// handleMessage runs on a paho goroutine.
func (b *Bridge) handleMessage(topic string, payload []byte) {
	name, ok := strings.CutPrefix(topic, b.prefix+"/notify/")
	if !ok {
		b.emitError("", topic, "unexpected topic")
		return
	}
	if err := b.dispatch(name, payload); err != nil {
		b.emitError(name, topic, err.Error())
	}
}

func (b *Bridge) dispatch(name string, payload []byte) error {
	switch name {
	case "actor":
		var n actorNotice
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("decode actor: %w", err)
		}
		standingOn := trigger.Nothing
		if n.StandingOn != nil {
			standingOn = *n.StandingOn
		}
		pos, layer := n.Position, n.Layer
		b.rt.Post(func() { b.rt.SetPlayer(pos, layer, standingOn) })
	case "interact":
		var n objectNotice
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("decode interact: %w", err)
		}
		b.rt.PostCommand(bus.Command{Kind: bus.KindInteractObject, Payload: bus.Interact{ObjectID: n.ObjectID, ActorID: n.ActorID, Player: n.Player}})
	case "activate", "deactivate":
		var n objectNotice
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		kind := bus.KindActivateObject
		if name == "deactivate" {
			kind = bus.KindDeactivateObject
		}
		b.rt.PostCommand(bus.Command{Kind: kind, Payload: bus.ObjectRef{ObjectID: n.ObjectID}})
	case "game_state":
		var n gameStateNotice
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("decode game_state: %w", err)
		}
		if n.State == "" {
			return fmt.Errorf("game_state: empty state")
		}
		b.rt.PostCommand(bus.Command{Kind: bus.KindGameStateChanged, Payload: bus.GameStateChanged{State: n.State}})
	case "heartbeat":
		var n heartbeatNotice
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("decode heartbeat: %w", err)
		}
		if n.ID == "" {
			return fmt.Errorf("heartbeat: missing id")
		}
		if b.monitor != nil {
			b.monitor.Beat(n.ID, time.Duration(n.IntervalMS)*time.Millisecond)
		}
	default:
		return fmt.Errorf("unknown notification %q", name)
	}
	return nil
}

func (b *Bridge) emitError(kind, topic, msg string) {
	fields := map[string]interface{}{"error": msg}
	if kind != "" {
		fields["kind"] = kind
	}
	if topic != "" {
		fields["topic"] = topic
	}
	events.Emit("error", "collaborator.error", msg, fields)
}
