package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"task_manager/internal/middleware"
	"task_manager/internal/service"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

type GroupHandler struct {
	membershipService service.MembershipService
	log               logger.Logger
}

func NewGroupHandler(membershipService service.MembershipService, log logger.Logger) *GroupHandler {
	return &GroupHandler{
		membershipService: membershipService,
		log:               log,
	}
}

type InviteRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *GroupHandler) Invite(c *gin.Context) {
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

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	if err := h.membershipService.Invite(c.Request.Context(), groupID, user, targetID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Invitation sent"})
}

type ResolveInviteRequest struct {
	NotificationID int64  `json:"notification_id" binding:"required"`
	Decision       string `json:"decision" binding:"required"`
}

// ResolveInvite принимает accept/decline; "cancel" оставлен как синоним
// decline для старых клиентов.
func (h *GroupHandler) ResolveInvite(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req ResolveInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := req.Decision
	if decision == "cancel" {
		decision = service.DecisionDecline
	}

	if err := h.membershipService.ResolveInvite(c.Request.Context(), req.NotificationID, user, decision); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation resolved", "decision": decision})
}

type KickRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *GroupHandler) Kick(c *gin.Context) {
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

	var req KickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	if err := h.membershipService.Kick(c.Request.Context(), groupID, user, targetID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
