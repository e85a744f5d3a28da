package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	notifService "legalconnect.io/portal/internal/modules/notification/service"
	"legalconnect.io/portal/pkg/response"
)

type NotificationHandler struct {
	service  notifService.NotificationService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewNotificationHandler(service notifService.NotificationService, allowedOrigins []string, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		service: service,
		log:     logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// checkOrigin admits the configured browser origins. Requests without an
// Origin header are not from a browser and pass.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket forwards the toasts of the caller's registration session.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	sessionID, err := response.GetSessionID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	// Subscribe before upgrading so a redis failure is still an HTTP error.
	sub, err := h.service.Subscribe(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error("subscribe failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications unavailable"})
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	messages := sub.Messages()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			// Payload is already the JSON toast.
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("failed to write message to websocket", zap.Error(err))
				return
			}
		case <-clientClosed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
