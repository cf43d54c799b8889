package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/SceneEngine/internal/events"
)

const (
	// Number of recent events replayed on connection
	recentEventsCount = 50

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is meant for tools on the LAN; auth is enforced by RequireAnyRole.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// eventFilter selects events by name prefix and minimum level. Query
// parameters: ?prefix=interaction.&prefix=chain.&level=info
type eventFilter struct {
	prefixes []string
	minLevel int
}

func parseFilter(r *http.Request) eventFilter {
	q := r.URL.Query()
	f := eventFilter{prefixes: q["prefix"]}
	if rank, ok := levelRank[q.Get("level")]; ok {
		f.minLevel = rank
	}
	return f
}

func (f eventFilter) match(e events.Event) bool {
	if levelRank[e.Level] < f.minLevel {
		return false
	}
	if len(f.prefixes) == 0 {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(e.Name, p) {
			return true
		}
	}
	return false
}

// wsEventsHandler streams events over a WebSocket: the last matching events
// first, then live ones. Filtering happens in the broadcaster.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	sub := events.Subscribe(filter.match)
	closeAll := func() {
		events.Unsubscribe(sub)
		conn.Close()
	}

	write := func(e events.Event) error {
		data, err := json.Marshal(e)
		if err != nil {
			return nil
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	for _, e := range events.Recent(recentEventsCount, filter.match) {
		if err := write(e); err != nil {
			log.Printf("ws write recent event failed: %v", err)
			closeAll()
			return
		}
	}

	// Reader goroutine handles pongs and close messages.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			closeAll()
			return

		case e, ok := <-sub:
			if !ok {
				// Closed by CloseAllSubscribers on shutdown.
				conn.Close()
				return
			}
			if err := write(e); err != nil {
				log.Printf("ws write event failed: %v", err)
				closeAll()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				closeAll()
				return
			}
		}
	}
}
