package mirror

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"trustmesh/engine/library"
)

// DefaultWSPort is where mirror nodes serve the topic message stream.
const DefaultWSPort = "5600"

var ErrEmptyTopic = errors.New("topic id is empty")

// Client reads a topic from a mirror node: one page of history over REST and the live
// stream over WebSocket.
type Client struct {
	REST string
	WS   string
	// WSPort is appended to WS as ":<port>" when non-empty.
	WSPort string
	HTTP   *http.Client
	Dialer *websocket.Dialer
	Log    library.Logger
}

func NewClient(rest, ws string, log library.Logger) *Client {
	if log == nil {
		log = library.Nop
	}
	return &Client{
		REST:   strings.TrimRight(rest, "/"),
		WS:     strings.TrimRight(ws, "/"),
		WSPort: DefaultWSPort,
		HTTP:   &http.Client{Timeout: 30 * time.Second},
		Dialer: websocket.DefaultDialer,
		Log:    log,
	}
}
