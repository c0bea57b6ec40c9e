package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"task_manager/internal/middleware"
	"task_manager/internal/service"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

type NotificationHandler struct {
	notifyService service.NotifyService
	log           logger.Logger
}

func NewNotificationHandler(notifyService service.NotifyService, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifyService: notifyService,
		log:           log,
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notifications, err := h.notifyService.List(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, err := strconv.ParseInt(c.Param("notificationId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := h.notifyService.MarkRead(c.Request.Context(), user.ID, notificationID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
