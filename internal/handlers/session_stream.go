package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"borneo/internal/config"
	"borneo/internal/middleware"
	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/translator"
	contextutils "borneo/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Events streams state snapshots as server-sent events until the client leaves
func (h *TranslatorHandler) Events(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "session_events")
	defer observability.FinishSpan(span, nil)

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	span.SetAttributes(observability.AttributeSessionID(o.ID()))

	states, cancel := o.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	keepAlive := time.NewTicker(config.SSEKeepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case state, ok := <-states:
			if !ok {
				// Session closed by the janitor or shutdown
				return false
			}
			c.SSEvent("state", state)
			return true
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return false
			}
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// wsMessage is a client command on the websocket
type wsMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// wsEnvelope is a server push on the websocket
type wsEnvelope struct {
	Type  string                   `json:"type"`
	State *models.TranslationState `json:"state,omitempty"`
	Error map[string]interface{}   `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// WebSocketHandler carries the translate-as-you-type loop over a websocket. The
// client sends commands, the server pushes every state change.
type WebSocketHandler struct {
	*TranslatorHandler
	schemas *middleware.SchemaLoader
}

// NewWebSocketHandler creates a websocket handler sharing the session routes' manager
func NewWebSocketHandler(th *TranslatorHandler, schemas *middleware.SchemaLoader) *WebSocketHandler {
	return &WebSocketHandler{TranslatorHandler: th, schemas: schemas}
}

// checkOrigin allows same-host requests and the configured CORS origins
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Serve upgrades the connection and runs the read and write loops
func (h *WebSocketHandler) Serve(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "session_websocket")
	defer observability.FinishSpan(span, nil)

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	span.SetAttributes(observability.AttributeSessionID(o.ID()))

	up := upgrader
	up.CheckOrigin = h.checkOrigin
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn(ctx, "Websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	states, unsubscribe := o.Subscribe()
	defer unsubscribe()

	replies := make(chan wsEnvelope, 4)
	go h.readLoop(ctx, cancel, conn, o, replies)

	for {
		var out wsEnvelope
		select {
		case state, ok := <-states:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(config.WebsocketWriteWait))
				return
			}
			out = wsEnvelope{Type: "state", State: &state}
		case out = <-replies:
		case <-ctx.Done():
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(config.WebsocketWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			h.logger.Debug(ctx, "Websocket write failed", map[string]interface{}{"error": err.Error()})
			return
		}
	}
}

// readLoop applies client commands until the connection fails. Errors are sent
// back as "error" envelopes, the state change itself arrives via the subscription.
func (h *WebSocketHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, o *translator.Orchestrator, replies chan<- wsEnvelope) {
	defer cancel()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn(ctx, "Websocket closed unexpectedly", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		if err := h.apply(o, data); err != nil {
			var appErr *contextutils.AppError
			if !contextutils.AsError(err, &appErr) {
				appErr = contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInternalError, contextutils.SeverityError, "Internal server error", err.Error(), err)
			}
			select {
			case replies <- wsEnvelope{Type: "error", Error: appErr.ToJSON()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *WebSocketHandler) apply(o *translator.Orchestrator, data []byte) error {
	if err := h.schemas.ValidateBytes(data, middleware.SchemaWSMessage); err != nil {
		return err
	}
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid message: %v", err)
	}

	switch msg.Type {
	case "input":
		from, err := parseOptionalLanguage(msg.From)
		if err != nil {
			return err
		}
		to, err := parseOptionalLanguage(msg.To)
		if err != nil {
			return err
		}
		return o.Submit(msg.Text, from, to)
	case "languages":
		from, err := models.ParseLanguage(msg.From)
		if err != nil {
			return err
		}
		to, err := models.ParseLanguage(msg.To)
		if err != nil {
			return err
		}
		return o.SetLanguages(from, to)
	case "swap":
		return o.Swap()
	case "retry":
		return o.Retry()
	default:
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown message type %q", msg.Type)
	}
}
