// README: Notification inbox and live stream handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medride/internal/modules/notification"
	"medride/internal/types"
)

type NotificationHandler struct {
	inbox *notification.Inbox
	hub   *notification.Hub
}

func NewNotificationHandler(inbox *notification.Inbox, hub *notification.Hub) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, hub: hub}
}

func (h *NotificationHandler) List(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"notifications": h.inbox.List(),
		"unread":        h.inbox.Unread(),
	})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.inbox.MarkRead(types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, n)
}

func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		writeError(c, http.StatusServiceUnavailable, "notification stream disabled")
		return
	}
	h.hub.ServeHTTP(c.Writer, c.Request)
}
