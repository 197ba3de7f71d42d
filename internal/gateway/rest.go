package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// replyTimeout bounds how long an HTTP caller waits for the command
// reply before the request gives up.
const replyTimeout = 60 * time.Second

// RESTAdapter exposes the gateway over HTTP for wyrmctl. Each request
// becomes a one-shot channel: the command reply addressed to that
// ephemeral channel ID completes the HTTP response.
type RESTAdapter struct {
	logger  *zap.Logger
	handler MessageHandler

	mu      sync.Mutex
	pending map[string]chan *OutboundMessage
}

// NewRESTAdapter creates a REST gateway adapter.
func NewRESTAdapter(logger *zap.Logger) *RESTAdapter {
	return &RESTAdapter{
		logger:  logger,
		pending: make(map[string]chan *OutboundMessage),
	}
}

func (a *RESTAdapter) Platform() string                { return "rest" }
func (a *RESTAdapter) Connect(_ context.Context) error { return nil }
func (a *RESTAdapter) OnMessage(h MessageHandler)      { a.handler = h }
func (a *RESTAdapter) Close() error                    { return nil }

// Routes returns the chi router the API mounts under /api/gateway/rest.
func (a *RESTAdapter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/command", a.handleCommand)
	return r
}

// Send completes the HTTP request waiting on the message's channel ID.
func (a *RESTAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	a.mu.Lock()
	ch := a.pending[msg.ChannelID]
	a.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("no request waiting on channel %s", msg.ChannelID)
	}
	select {
	case ch <- msg:
		return nil
	default:
		return fmt.Errorf("reply channel %s already satisfied", msg.ChannelID)
	}
}

// Broadcast delivers to whatever requests happen to be in flight. REST
// callers are transient, so this is best effort.
func (a *RESTAdapter) Broadcast(_ context.Context, msg *BroadcastMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ch := range a.pending {
		select {
		case ch <- &OutboundMessage{
			Platform: "rest",
			Content:  fmt.Sprintf("[%s] %s\n%s", msg.Type, msg.Title, msg.Content),
		}:
		default:
		}
	}
	return nil
}

func (a *RESTAdapter) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		UserName string `json:"user_name"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		restError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		restError(w, http.StatusBadRequest, "content is required")
		return
	}

	channelID := uuid.New().String()
	ch := make(chan *OutboundMessage, 1)

	a.mu.Lock()
	a.pending[channelID] = ch
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.pending, channelID)
		a.mu.Unlock()
	}()

	if a.handler == nil {
		restError(w, http.StatusServiceUnavailable, "gateway not wired")
		return
	}
	a.handler(&InboundMessage{
		Platform:  "rest",
		ChannelID: channelID,
		UserID:    req.UserID,
		UserName:  req.UserName,
		Content:   req.Content,
		Timestamp: time.Now(),
	})

	select {
	case msg := <-ch:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(msg)
	case <-time.After(replyTimeout):
		restError(w, http.StatusGatewayTimeout, "response timeout")
	case <-r.Context().Done():
	}
}

func restError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
