package router

import (
	"context"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/app"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/repository"
	errprocess "github.com/LajoLouis/lajospacesbackend-sub000/pkg/err"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RestHandler serves the query-side surface next to the realtime
// channel: history pages, read marks, mute flags and presence lookups.
type RestHandler struct {
	messageUC *app.MessageUseCase
	presence  *app.PresenceRegistry
	snapshots repository.PresenceSnapshotRepository
}

// NewRestHandler create a RestHandler
func NewRestHandler(messageUC *app.MessageUseCase, presence *app.PresenceRegistry, snapshots repository.PresenceSnapshotRepository) *RestHandler {
	return &RestHandler{
		messageUC: messageUC,
		presence:  presence,
		snapshots: snapshots,
	}
}

// History returns one page of a conversation's messages.
// @Summary Page message history
// @Description Newest-first message page keyed by before/after message-id cursors
// @Tags Conversations
// @Produce json
// @Param id path string true "conversation id"
// @Param before query string false "page before this message id"
// @Param after query string false "page after this message id"
// @Param limit query int false "page size, capped at 100"
// @Success 200 {array} domain.Message
// @Failure 403 {object} string "not a participant"
// @Failure 404 {object} string "conversation not found"
// @Router /conversations/{id}/messages [get]
func (h *RestHandler) History(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	msgs, err := h.messageUC.History(
		c.Context(),
		c.Params("id"),
		userID,
		c.Query("before"),
		c.Query("after"),
		c.QueryInt("limit"),
	)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs, "count": len(msgs)})
}

// MarkRead marks unread messages read for the caller.
// @Summary Mark messages read
// @Description Marks every unread message in the conversation read, or only the listed ids
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body object false "optional message id list"
// @Success 200 {object} string "count of messages marked"
// @Failure 403 {object} string "not a participant"
// @Router /conversations/{id}/read [post]
func (h *RestHandler) MarkRead(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	type request struct {
		MessageIDs []string `json:"message_ids"`
	}
	var req request
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request", "code": string(errprocess.ValidationFailed),
			})
		}
	}

	count, err := h.messageUC.MarkConversationRead(c.Context(), c.Params("id"), userID, req.MessageIDs)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"marked": count})
}

// Mute flips the caller's mute flag on a conversation.
// @Summary Mute or unmute a conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body object true "muted flag and optional expiry"
// @Success 200 {object} string "ok"
// @Router /conversations/{id}/mute [post]
func (h *RestHandler) Mute(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	type request struct {
		Muted     bool  `json:"muted"`
		MuteUntil int64 `json:"mute_until"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request", "code": string(errprocess.ValidationFailed),
		})
	}

	if err := h.messageUC.Mute(c.Context(), c.Params("id"), userID, req.Muted, req.MuteUntil); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// Presence returns a user's presence. Live registry state wins; users
// unknown to this process fall back to the durable snapshot.
// @Summary Look up a user's presence
// @Tags Presence
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} domain.PresenceSnapshot
// @Router /presence/{id} [get]
func (h *RestHandler) Presence(c *fiber.Ctx) error {
	userID := c.Params("id")
	snap := h.presence.Snapshot(userID)
	if snap.Status == domain.PresenceOffline && snap.LastSeenAt == 0 && h.snapshots != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		if stored, err := h.snapshots.Load(ctx, userID); err == nil {
			snap = stored
		}
	}
	return c.JSON(snap)
}

func errorJSON(c *fiber.Ctx, err error) error {
	code := errprocess.CodeOf(err)
	status := fiber.StatusInternalServerError
	switch code {
	case errprocess.AuthenticationFailed:
		status = fiber.StatusUnauthorized
	case errprocess.PermissionDenied:
		status = fiber.StatusForbidden
	case errprocess.NotFound:
		status = fiber.StatusNotFound
	case errprocess.ValidationFailed:
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": string(code)})
}
