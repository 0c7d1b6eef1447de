package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/platform/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 512

	// Frames buffered per subscriber before it counts as slow.
	subscriberBuffer = 64

	// Pending publications before new ones are dropped.
	publishBuffer = 256

	// EventSnapshot carries a full snapshot after each transition.
	EventSnapshot = "snapshot"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is one frame sent to subscribers of a game.
type Message struct {
	GameID   string           `json:"game_id"`
	Event    string           `json:"event"`
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Data     interface{}      `json:"data,omitempty"`
}

// Subscriber is one connection listening to one game.
type Subscriber struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

// Hub fans game messages out to subscribers. Only the Run goroutine touches
// games and latest.
type Hub struct {
	games  map[string]map[*Subscriber]struct{}
	// last snapshot frame of each watched game, replayed to new subscribers
	latest map[string][]byte

	publish chan *Message
	join    chan *Subscriber
	leave   chan *Subscriber
	counts  chan chan map[string]int
	done    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		games:   make(map[string]map[*Subscriber]struct{}),
		latest:  make(map[string][]byte),
		publish: make(chan *Message, publishBuffer),
		join:    make(chan *Subscriber),
		leave:   make(chan *Subscriber),
		counts:  make(chan chan map[string]int),
		done:    make(chan struct{}),
	}
}

// Run processes subscriptions and publications until ctx is done, then
// disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, subs := range h.games {
				for sub := range subs {
					h.remove(sub)
				}
			}
			return
		case sub := <-h.join:
			h.add(sub)
		case sub := <-h.leave:
			h.remove(sub)
		case msg := <-h.publish:
			h.fanOut(msg)
		case reply := <-h.counts:
			counts := make(map[string]int, len(h.games))
			for gameID, subs := range h.games {
				counts[gameID] = len(subs)
			}
			reply <- counts
		}
	}
}

// Serve upgrades the request and subscribes the connection to gameID. If the
// game already has subscribers, its latest snapshot is sent first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("[WS] upgrade failed for game %s: %v", gameID, err)
		return
	}

	sub := &Subscriber{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, subscriberBuffer),
		gameID: gameID,
	}
	select {
	case h.join <- sub:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go sub.writeLoop()
	go sub.readLoop()
}

// PublishSnapshot queues a snapshot for every subscriber of gameID. It never
// blocks.
func (h *Hub) PublishSnapshot(gameID string, snapshot *engine.Snapshot) {
	h.enqueue(&Message{GameID: gameID, Event: EventSnapshot, Snapshot: snapshot})
}

// PublishEvent queues a named event for every subscriber of gameID. It never
// blocks.
func (h *Hub) PublishEvent(gameID string, event string, data interface{}) {
	h.enqueue(&Message{GameID: gameID, Event: event, Data: data})
}

// Subscribers reports the number of connections per game.
func (h *Hub) Subscribers(ctx context.Context) map[string]int {
	reply := make(chan map[string]int, 1)
	select {
	case h.counts <- reply:
		return <-reply
	case <-h.done:
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (h *Hub) enqueue(msg *Message) {
	select {
	case h.publish <- msg:
	default:
		log.Warn("[WS] publish queue full, dropping %s for game %s", msg.Event, msg.GameID)
	}
}

func (h *Hub) add(sub *Subscriber) {
	subs := h.games[sub.gameID]
	if subs == nil {
		subs = make(map[*Subscriber]struct{})
		h.games[sub.gameID] = subs
	}
	subs[sub] = struct{}{}
	if frame, ok := h.latest[sub.gameID]; ok {
		sub.send <- frame
	}
	log.Debug("[WS] game %s: %d subscribers", sub.gameID, len(subs))
}

func (h *Hub) remove(sub *Subscriber) {
	subs, ok := h.games[sub.gameID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.send)
	if len(subs) == 0 {
		delete(h.games, sub.gameID)
		delete(h.latest, sub.gameID)
	}
	log.Debug("[WS] game %s: %d subscribers", sub.gameID, len(subs))
}

func (h *Hub) fanOut(msg *Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		log.Error("[WS] encode %s for game %s: %v", msg.Event, msg.GameID, err)
		return
	}

	subs := h.games[msg.GameID]
	if msg.Snapshot != nil && len(subs) > 0 {
		if msg.Snapshot.Status == engine.GameOver {
			delete(h.latest, msg.GameID)
		} else {
			h.latest[msg.GameID] = frame
		}
	}

	for sub := range subs {
		select {
		case sub.send <- frame:
		default:
			log.Debug("[WS] game %s: dropping slow subscriber", msg.GameID)
			h.remove(sub)
		}
	}
}

// readLoop only drains control frames; subscribers never send game input.
func (s *Subscriber) readLoop() {
	defer func() {
		select {
		case s.hub.leave <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug("[WS] game %s: read: %v", s.gameID, err)
			}
			return
		}
	}
}

func (s *Subscriber) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, open := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
