package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"task_manager/internal/middleware"
	"task_manager/internal/repository"
	"task_manager/internal/service"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

// Формат дат фильтра, исторический контракт фронтенда.
const logDateLayout = "2006-01-02T15:04"

type GroupLogHandler struct {
	groupLogService service.GroupLogService
	log             logger.Logger
}

func NewGroupLogHandler(groupLogService service.GroupLogService, log logger.Logger) *GroupLogHandler {
	return &GroupLogHandler{
		groupLogService: groupLogService,
		log:             log,
	}
}

// List отдаёт журнал аудита группы владельцу. Фильтры в query:
// date-start, date-out, event-type (можно несколько), username, group-name.
func (h *GroupLogHandler) List(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	filter := repository.GroupLogFilter{
		AnchorUsername: c.Query("username"),
		GroupName:      c.Query("group-name"),
		EventTypes:     c.QueryArray("event-type"),
	}

	if raw := c.Query("date-start"); raw != "" {
		t, err := time.Parse(logDateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date-start"})
			return
		}
		filter.DateStart = &t
	}
	if raw := c.Query("date-out"); raw != "" {
		t, err := time.Parse(logDateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date-out"})
			return
		}
		filter.DateOut = &t
	}

	logs, err := h.groupLogService.List(c.Request.Context(), groupID, user, filter)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, logs)
}
