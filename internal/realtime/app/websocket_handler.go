package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/repository"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/config"
	errprocess "github.com/LajoLouis/lajospacesbackend-sub000/pkg/err"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/logger"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RealtimeWebsocketHandler owns one websocket connection's lifecycle:
// registration, presence transitions, action demux, and teardown.
type RealtimeWebsocketHandler struct {
	messageUC *MessageUseCase
	presence  *PresenceRegistry
	typing    *TypingRegistry
	hub       *Hub
	convRepo  repository.ConversationRepository
	snapshots repository.PresenceSnapshotRepository
	ws        config.WSConfig
}

// NewRealtimeWebsocketHandler create a RealtimeWebsocketHandler
func NewRealtimeWebsocketHandler(
	messageUC *MessageUseCase,
	presence *PresenceRegistry,
	typing *TypingRegistry,
	hub *Hub,
	convRepo repository.ConversationRepository,
	snapshots repository.PresenceSnapshotRepository,
	ws config.WSConfig,
) *RealtimeWebsocketHandler {
	if ws.PingIntervalSeconds <= 0 {
		ws.PingIntervalSeconds = 30
	}
	if ws.WriteDeadlineSeconds <= 0 {
		ws.WriteDeadlineSeconds = 10
	}
	if ws.MaxMessageSizeBytes <= 0 {
		ws.MaxMessageSizeBytes = 64 * 1024
	}
	if ws.SendBufferSize <= 0 {
		ws.SendBufferSize = 256
	}
	return &RealtimeWebsocketHandler{
		messageUC: messageUC,
		presence:  presence,
		typing:    typing,
		hub:       hub,
		convRepo:  convRepo,
		snapshots: snapshots,
		ws:        ws,
	}
}

// HandleConnection is the websocket entry point. Identity was bound to
// the connection by the auth middleware before the upgrade.
func (h *RealtimeWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, ok := conn.Locals(middlewares.TokenUserID).(string)
	if !ok || userID == "" {
		conn.Close()
		return
	}

	connID := uuid.New().String()
	client := NewClient(connID, userID, h.ws.SendBufferSize)
	h.hub.Register(client)

	now := time.Now()
	if wasOffline := h.presence.Connect(userID, connID, now); wasOffline {
		h.broadcastStatus(userID)
	}
	h.syncSnapshot(userID)
	h.joinConversationRooms(ctx, connID, userID)

	logger.Log.Info("websocket connected",
		zap.String("userID", userID), zap.String("connID", connID))

	pumpDone := make(chan struct{})
	go h.writerPump(conn, client, pumpDone)

	defer func() {
		h.teardown(userID, connID)
		conn.Close()
		<-pumpDone
		logger.Log.Info("websocket closed",
			zap.String("userID", userID), zap.String("connID", connID))
	}()

	conn.SetReadLimit(int64(h.ws.MaxMessageSizeBytes))
	conn.SetPongHandler(func(string) error {
		h.presence.Touch(userID, time.Now())
		return nil
	})

	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("userID", userID))
			} else {
				logger.Log.Error("websocket read error",
					zap.String("userID", userID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			h.sendError(connID, domain.EventError, "unsupported frame type", errprocess.ValidationFailed)
			continue
		}
		h.presence.Touch(userID, time.Now())
		h.execAction(ctx, connID, userID, raw)
	}
}

// writerPump drains the client's outbound queue onto the socket and
// keeps the connection alive with pings. It owns all writes.
func (h *RealtimeWebsocketHandler) writerPump(conn *websocket.Conn, client *Client, done chan<- struct{}) {
	defer close(done)

	pingInterval := time.Duration(h.ws.PingIntervalSeconds) * time.Second
	writeDeadline := time.Duration(h.ws.WriteDeadlineSeconds) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, open := <-client.Send:
			if !open {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Log.Error("websocket write error",
					zap.String("userID", client.UserID), zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *RealtimeWebsocketHandler) execAction(ctx context.Context, connID, userID string, raw []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.sendError(connID, domain.EventError, "malformed frame", errprocess.ValidationFailed)
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: true}
	var err error

	switch req.Action {
	case domain.ActionSendMessage:
		var msg *domain.Message
		msg, err = h.messageUC.Send(ctx, userID, SendInput{
			ConversationID: req.ConversationID,
			Content:        req.Content,
			Type:           req.Type,
			Metadata:       req.Metadata,
			ReplyTo:        req.ReplyTo,
			ClientTempID:   req.ClientTempID,
		})
		resp.Payload = msg
		if err == nil {
			// A delivered message supersedes its typing indicator.
			h.typingStop(userID, req.ConversationID)
		}

	case domain.ActionMessageDelivered:
		err = h.messageUC.AcknowledgeDelivered(ctx, req.MessageID, userID)

	case domain.ActionMessageRead:
		if req.MessageID != "" {
			err = h.messageUC.AcknowledgeRead(ctx, req.MessageID, userID)
		} else {
			// Bulk form: catch up a whole conversation, optionally
			// narrowed to explicit message ids.
			resp.Payload, err = h.markConversationRead(ctx, userID, req)
		}

	case domain.ActionEditMessage:
		resp.Payload, err = h.messageUC.Edit(ctx, req.MessageID, userID, req.Content)

	case domain.ActionDeleteMessage:
		err = h.messageUC.Delete(ctx, req.MessageID, userID, req.ForEveryone)

	case domain.ActionReactToMessage:
		resp.Payload, err = h.messageUC.React(ctx, req.MessageID, userID, req.Reaction)

	case domain.ActionJoinConversation:
		err = h.joinConversation(ctx, connID, userID, req.ConversationID)

	case domain.ActionLeaveConversation:
		h.leaveConversation(connID, userID, req.ConversationID)

	case domain.ActionTypingStart:
		h.typingStart(userID, req.ConversationID)

	case domain.ActionTypingStop:
		h.typingStop(userID, req.ConversationID)

	case domain.ActionStatusChange:
		err = h.statusChange(userID, domain.PresenceStatus(req.Status))

	case domain.ActionSetActivity:
		h.presence.SetActivity(userID, domain.Activity{
			Kind:      req.Activity,
			Detail:    req.ConversationID,
			StartedAt: time.Now().UnixMilli(),
		})

	case domain.ActionClearActivity:
		h.presence.ClearActivity(userID)

	case domain.ActionHeartbeat:
		h.presence.Touch(userID, time.Now())

	default:
		h.sendError(connID, domain.EventError, "unknown action", errprocess.ValidationFailed)
		return
	}

	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
		resp.Code = string(errprocess.CodeOf(err))
		logger.Log.Error("websocket action failed",
			zap.String("userID", userID),
			zap.String("action", req.Action),
			zap.String("err", resp.Error))
	}
	h.hub.SendTo(connID, resp.Encode())
}

// joinConversationRooms subscribes a fresh connection to every
// conversation the user takes part in, so room-scoped events reach it
// without an explicit join_conversation. Lookup failures leave the
// connection reachable through its per-user index.
func (h *RealtimeWebsocketHandler) joinConversationRooms(ctx context.Context, connID, userID string) {
	convs, err := h.convRepo.FindByParticipant(ctx, userID)
	if err != nil {
		logger.Log.Warn("conversation subscription lookup failed",
			zap.String("userID", userID), zap.Error(err))
		return
	}
	for i := range convs {
		if convs[i].Status == domain.ConversationDeleted || !convs[i].IsActiveParticipant(userID) {
			continue
		}
		h.hub.Join(convs[i].ID, connID)
	}
}

func (h *RealtimeWebsocketHandler) markConversationRead(ctx context.Context, userID string, req domain.WSRequest) (interface{}, error) {
	count, err := h.messageUC.MarkConversationRead(ctx, req.ConversationID, userID, req.MessageIDs)
	if err != nil {
		return nil, err
	}
	return map[string]int{"marked": count}, nil
}

func (h *RealtimeWebsocketHandler) joinConversation(ctx context.Context, connID, userID, convID string) error {
	if convID == "" {
		return errprocess.New(errprocess.ValidationFailed, "conversation id is required")
	}
	conv, err := h.convRepo.FindByID(ctx, convID)
	if err != nil {
		return errprocess.Newf(errprocess.Transient, "load conversation: %v", err)
	}
	if conv == nil {
		return errprocess.New(errprocess.NotFound, "conversation not found")
	}
	if conv.StateOf(userID) == nil {
		return errprocess.New(errprocess.PermissionDenied, "not a participant of this conversation")
	}
	h.hub.Join(convID, connID)
	h.presence.SetActivity(userID, domain.Activity{
		Kind:      domain.ActivityViewingConversation,
		Detail:    convID,
		StartedAt: time.Now().UnixMilli(),
	})
	return nil
}

func (h *RealtimeWebsocketHandler) leaveConversation(connID, userID, convID string) {
	h.hub.Leave(convID, connID)
	if act := h.presence.Activity(userID); act != nil &&
		act.Kind == domain.ActivityViewingConversation && act.Detail == convID {
		h.presence.ClearActivity(userID)
	}
}

func (h *RealtimeWebsocketHandler) typingStart(userID, convID string) {
	if convID == "" {
		return
	}
	if h.typing.Start(userID, convID, time.Now()) {
		h.broadcastTyping(userID, convID, true)
	}
}

func (h *RealtimeWebsocketHandler) typingStop(userID, convID string) {
	if convID == "" {
		return
	}
	if h.typing.Stop(userID, convID, time.Now()) {
		h.broadcastTyping(userID, convID, false)
	}
}

func (h *RealtimeWebsocketHandler) broadcastTyping(userID, convID string, isTyping bool) {
	resp := domain.WSResponse{
		Action:  domain.EventUserTyping,
		Success: true,
		Payload: domain.TypingEvent{
			UserID:         userID,
			ConversationID: convID,
			IsTyping:       isTyping,
		},
	}
	h.hub.BroadcastToRoom(convID, resp.Encode(), userID)
}

func (h *RealtimeWebsocketHandler) statusChange(userID string, status domain.PresenceStatus) error {
	if !status.Valid() || !status.Reachable() {
		return errprocess.Newf(errprocess.ValidationFailed, "invalid status %q", status)
	}
	if !h.presence.SetStatus(userID, status, time.Now()) {
		return errprocess.New(errprocess.PermissionDenied, "no live connection")
	}
	h.broadcastStatus(userID)
	h.syncSnapshot(userID)
	return nil
}

// broadcastStatus fans a presence change out to every connected peer.
func (h *RealtimeWebsocketHandler) broadcastStatus(userID string) {
	snap := h.presence.Snapshot(userID)
	resp := domain.WSResponse{
		Action:  domain.EventUserStatusChange,
		Success: true,
		Payload: domain.StatusEvent{
			UserID:   userID,
			Status:   snap.Status,
			LastSeen: snap.LastSeenAt,
		},
	}
	h.hub.BroadcastToAll(resp.Encode(), userID)
}

// syncSnapshot pushes the durable presence view out without blocking
// the connection path.
func (h *RealtimeWebsocketHandler) syncSnapshot(userID string) {
	if h.snapshots == nil {
		return
	}
	snap := h.presence.Snapshot(userID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := h.snapshots.Save(ctx, snap); err != nil {
			logger.Log.Warn("presence snapshot sync failed",
				zap.String("userID", userID), zap.Error(err))
		}
	}()
}

func (h *RealtimeWebsocketHandler) teardown(userID, connID string) {
	h.hub.Unregister(connID)

	for _, entry := range h.typing.ClearUser(userID) {
		h.broadcastTyping(userID, entry.ConversationID, false)
	}

	if becameOffline := h.presence.Disconnect(userID, connID, time.Now()); becameOffline {
		h.broadcastStatus(userID)
		h.syncSnapshot(userID)
	}
}

func (h *RealtimeWebsocketHandler) sendError(connID, action, msg string, code errprocess.Code) {
	resp := domain.WSResponse{
		Action: action,
		Error:  msg,
		Code:   string(code),
	}
	h.hub.SendTo(connID, resp.Encode())
}
