package signalclient

import (
	"encoding/json"
	"fmt"
	"sync"

	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/signaling"
)

// Events holds the callbacks a client fires from its read loop. Nil
// callbacks are skipped.
type Events struct {
	OnParticipantJoined func(id string, role signaling.Role)
	OnParticipantLeft   func(id string)
	OnReady             func(payload signaling.ReadyPayload)
	OnOffer             func(from string, description json.RawMessage)
	OnAnswer            func(from string, description json.RawMessage)
	OnICECandidate      func(from string, candidate json.RawMessage)
	OnError             func(message string)
}

// Client manages one websocket connection to the signaling server.
type Client struct {
	url    string
	log    *slog.Logger
	events Events

	conn   *websocket.Conn
	mu     sync.Mutex
	closed chan struct{}
	once   sync.Once
}

// New creates a signaling client for the given ws:// URL.
func New(url string, log *slog.Logger, events Events) *Client {
	return &Client{
		url:    url,
		log:    log.With("component", "signal_client"),
		events: events,
		closed: make(chan struct{}),
	}
}

// Connect dials the signaling websocket and starts the read loop.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn
	c.log.Info("connected", "url", c.url)
	go c.readLoop()
	return nil
}

// Join enters a room with the given role.
func (c *Client) Join(roomID string, role signaling.Role) error {
	return c.send(signaling.EventJoin, signaling.JoinPayload{RoomID: roomID, Role: role})
}

// Leave exits the current room.
func (c *Client) Leave() error {
	return c.send(signaling.EventLeave, struct{}{})
}

// SendOffer forwards a session description to the addressed peer.
func (c *Client) SendOffer(to string, description json.RawMessage) error {
	return c.send(signaling.EventOffer, signaling.RelayPayload{To: to, Description: description})
}

// SendAnswer forwards an answer description to the addressed peer.
func (c *Client) SendAnswer(to string, description json.RawMessage) error {
	return c.send(signaling.EventAnswer, signaling.RelayPayload{To: to, Description: description})
}

// SendICECandidate forwards an ICE candidate to the addressed peer.
func (c *Client) SendICECandidate(to string, candidate json.RawMessage) error {
	return c.send(signaling.EventICECandidate, signaling.RelayPayload{To: to, Candidate: candidate})
}

// Close shuts down the websocket connection.
func (c *Client) Close() {
	c.once.Do(func() { close(c.closed) })
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Done is closed once the read loop exits.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

func (c *Client) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(signaling.Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.log.Warn("read loop ended", "error", err)
			}
			return
		}
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	var env signaling.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn("unparseable frame", "error", err)
		return
	}
	switch env.Event {
	case signaling.EventParticipantJoined:
		var p signaling.ParticipantPayload
		if json.Unmarshal(env.Data, &p) == nil && c.events.OnParticipantJoined != nil {
			c.events.OnParticipantJoined(p.ID, p.Role)
		}
	case signaling.EventParticipantLeft:
		var p signaling.ParticipantPayload
		if json.Unmarshal(env.Data, &p) == nil && c.events.OnParticipantLeft != nil {
			c.events.OnParticipantLeft(p.ID)
		}
	case signaling.EventReady:
		var p signaling.ReadyPayload
		if json.Unmarshal(env.Data, &p) == nil && c.events.OnReady != nil {
			c.events.OnReady(p)
		}
	case signaling.EventOffer, signaling.EventAnswer, signaling.EventICECandidate:
		var p signaling.RelayPayload
		if json.Unmarshal(env.Data, &p) != nil {
			return
		}
		switch env.Event {
		case signaling.EventOffer:
			if c.events.OnOffer != nil {
				c.events.OnOffer(p.From, p.Description)
			}
		case signaling.EventAnswer:
			if c.events.OnAnswer != nil {
				c.events.OnAnswer(p.From, p.Description)
			}
		default:
			if c.events.OnICECandidate != nil {
				c.events.OnICECandidate(p.From, p.Candidate)
			}
		}
	case signaling.EventError:
		var p signaling.ErrorPayload
		if json.Unmarshal(env.Data, &p) == nil {
			c.log.Warn("server error event", "message", p.Message)
			if c.events.OnError != nil {
				c.events.OnError(p.Message)
			}
		}
	default:
		c.log.Debug("ignoring event", "event", env.Event)
	}
}
