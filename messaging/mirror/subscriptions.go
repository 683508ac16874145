package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"trustmesh/engine/library"
)

// Disposer ends a subscription. It is safe to call more than once.
type Disposer func()

func (c *Client) streamURL(topic library.TopicID) string {
	base := c.WS
	if c.WSPort != "" {
		base = base + ":" + c.WSPort
	}
	return fmt.Sprintf("%s/api/v1/topics/%s/messages", base, url.PathEscape(topic))
}

// Subscribe streams topic and calls onDecoded for every frame that decodes. Frames that are
// not JSON or don't decode are logged and skipped. The stream is not reconnected when the
// mirror node drops it. onDecoded is called from the reader goroutine, one frame at a time,
// and must not call the returned Disposer.
func (c *Client) Subscribe(ctx context.Context, topic library.TopicID, onDecoded func(Decoded)) (Disposer, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	u := c.streamURL(topic)
	sub := uuid.NewString()
	c.Log.Info("WS subscribe", library.Fields{"url": u, "sub": sub})
	conn, _, err := c.Dialer.DialContext(ctx, u, nil)
	if err != nil {
		c.Log.Error("WS error", library.Fields{"url": u, "sub": sub, "err": err})
		return nil, fmt.Errorf("subscribing to %s: %w", u, err)
	}
	c.Log.Info("WS open", library.Fields{"sub": sub})

	var closing bool
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				mu.Lock()
				wasClosing := closing
				mu.Unlock()
				var ce *websocket.CloseError
				switch {
				case wasClosing:
					c.Log.Info("WS closed", library.Fields{"sub": sub})
				case errors.As(err, &ce):
					c.Log.Info("WS closed", library.Fields{"sub": sub, "code": ce.Code})
				default:
					c.Log.Error("WS error", library.Fields{"sub": sub, "err": err})
				}
				conn.Close()
				return
			}
			c.handleFrame(topic, sub, frame, onDecoded)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.Log.Info("closing WS", library.Fields{"sub": sub})
			mu.Lock()
			closing = true
			mu.Unlock()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			conn.Close()
			<-done
		})
	}, nil
}

func (c *Client) handleFrame(topic library.TopicID, sub string, frame []byte, onDecoded func(Decoded)) {
	sane := library.ValidateSaneExecutionTime("WS frame "+sub, c.Log)
	defer sane()
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		c.Log.Error("WS parse error", library.Fields{"sub": sub, "err": err, "frame": truncate(frame, 256)})
		return
	}
	m.TopicID = topic
	d, ok := Decode(m)
	if !ok {
		c.Log.Debug("dropping undecodable frame", library.Fields{"sub": sub, "seq": m.SequenceNumber})
		return
	}
	c.Log.Debug("WS message", library.Fields{"kind": d.Kind, "hrl": d.HRL})
	onDecoded(d)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
