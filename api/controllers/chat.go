package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/api/responses"
	"github.com/mvalverde/agrolink-backend/api/validators"
	"github.com/mvalverde/agrolink-backend/internal/chat"
	"github.com/mvalverde/agrolink-backend/internal/chat/fanout"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

const streamKeepAliveInterval = 30 * time.Second

type resolveRoomPayload struct {
	OtherUserID string `json:"other_user_id" validate:"required,uuid4"`
}

type sendMessagePayload struct {
	Content string `json:"content" validate:"required"`
}

// ChatResolveRoom finds or creates the private room between the caller
// and the other user. Calling it twice, in either order, lands on the
// same room.
func ChatResolveRoom(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveRoomPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		otherID, err := uuid.Parse(payload.OtherUserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid other_user_id"))
			return
		}

		room, err := svc.GetOrCreatePrivateRoom(r.Context(), principal, otherID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, roomToView(room))
	}
}

// ChatListMessages returns the room history in ascending send order.
func ChatListMessages(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomID, err := parseIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.ListMessages(r.Context(), principal, roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]messageView, 0, len(history))
		for _, row := range history {
			views = append(views, messageToView(row))
		}
		responses.WriteSuccess(w, map[string]any{"messages": views})
	}
}

// ChatSendMessage appends one message to the room.
func ChatSendMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomID, err := parseIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sendMessagePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.SendMessage(r.Context(), principal, chat.SendMessageInput{
			ChatRoomID: roomID,
			Content:    payload.Content,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, messageView{
			ID:         message.ID,
			ChatRoomID: message.ChatRoomID,
			SenderID:   message.SenderID,
			Content:    message.Content,
			CreatedAt:  message.CreatedAt,
		})
	}
}

// ChatStream serves the room as a server-sent event stream: history
// first, then live fan-out messages. Duplicates between the two phases
// are dropped by message id.
func ChatStream(svc chat.Service, broker *fanout.Broker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || broker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat stream unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomID, err := parseIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		// Subscribe before loading history so nothing lands in the gap.
		sub := broker.Subscribe(roomID)
		defer sub.Close()

		history, err := svc.ListMessages(r.Context(), principal, roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		view := fanout.NewChatView()
		for _, row := range history {
			message := fanout.Message{
				MessageID:  row.Message.ID,
				ChatRoomID: row.Message.ChatRoomID,
				SenderID:   row.Message.SenderID,
				SenderName: row.SenderName,
				SenderRole: row.SenderRole,
				Content:    row.Message.Content,
				CreatedAt:  row.Message.CreatedAt,
			}
			if view.Apply(message) {
				writeStreamEvent(w, message)
			}
		}
		flusher.Flush()

		keepAlive := time.NewTicker(streamKeepAliveInterval)
		defer keepAlive.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case message, open := <-sub.C:
				if !open {
					return
				}
				if !view.Apply(message) {
					continue
				}
				writeStreamEvent(w, message)
				flusher.Flush()
			}
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, message fanout.Message) {
	payload, err := json.Marshal(messageView{
		ID:         message.MessageID,
		ChatRoomID: message.ChatRoomID,
		SenderID:   message.SenderID,
		SenderName: message.SenderName,
		SenderRole: message.SenderRole,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
	})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
}
