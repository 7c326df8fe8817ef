// Package messages implements direct messaging between owners and
// housekeepers: the send gate, persistence and per-side deletion.
package messages

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/splax/housechat/internal/apperr"
	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/repository"
)

// Service coordinates message operations.
type Service struct {
	profiles repository.ProfileRepository
	messages repository.MessageRepository
	logger   *slog.Logger
	newID    func() string
}

// New constructs a Service.
func New(profiles repository.ProfileRepository, messages repository.MessageRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{profiles: profiles, messages: messages, logger: logger, newID: uuid.NewString}
}

// Send validates the body, applies the send rules and stores the message.
func (s Service) Send(ctx context.Context, sender domain.Identity, receiverID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.ErrEmptyBody
	}
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return nil, apperr.Validation("receiver_id is required")
	}
	receiver, err := s.CheckSend(ctx, sender, receiverID)
	if err != nil {
		if apperr.CodeOf(err) != apperr.CodeStore {
			s.logger.Warn("send denied", "sender_id", sender.UserID, "receiver_id", receiverID, "reason", apperr.Message(err))
		}
		return nil, err
	}
	msg := &domain.Message{
		ID:         s.newID(),
		SenderID:   sender.UserID,
		ReceiverID: receiver.UserID,
		Body:       body,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Store(err)
	}
	s.logger.Info("message sent", "message_id", msg.ID, "sender_id", msg.SenderID, "receiver_id", msg.ReceiverID)
	return msg, nil
}

// Conversation returns the messages between viewer and otherID that the
// viewer has not deleted, oldest first.
func (s Service) Conversation(ctx context.Context, viewer domain.Identity, otherID string) ([]domain.Message, error) {
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return nil, apperr.Validation("other user id is required")
	}
	out, err := s.messages.ListConversation(ctx, viewer.UserID, otherID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return out, nil
}

// AllForUser returns every message userID sent or received and still sees,
// oldest first. Callers may only read their own history.
func (s Service) AllForUser(ctx context.Context, viewer domain.Identity, userID string) ([]domain.Message, error) {
	if viewer.UserID != userID {
		return nil, apperr.ErrForeignHistory
	}
	out, err := s.messages.ListMessagesForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return out, nil
}

// Delete hides a message. With forEveryone the sender unsends it from both
// sides; otherwise only the requester's side is hidden. Repeating a delete is
// a no-op that still succeeds.
func (s Service) Delete(ctx context.Context, messageID, requesterID string, forEveryone bool) (*domain.Message, error) {
	msg, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrMessageNotFound
		}
		return nil, apperr.Store(err)
	}
	if !msg.Involves(requesterID) {
		return nil, apperr.ErrNotParticipant
	}

	var forSender, forReceiver bool
	switch {
	case forEveryone:
		if requesterID != msg.SenderID {
			return nil, apperr.ErrOnlySenderUnsends
		}
		forSender, forReceiver = true, true
	case requesterID == msg.SenderID:
		forSender = true
	default:
		forReceiver = true
	}
	if (!forSender || msg.DeletedForSender) && (!forReceiver || msg.DeletedForReceiver) {
		return msg, nil
	}

	updated, err := s.messages.MarkDeleted(ctx, msg.ID, forSender, forReceiver)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrMessageNotFound
		}
		return nil, apperr.Store(err)
	}
	s.logger.Info("message deleted", "message_id", msg.ID, "requester_id", requesterID, "for_everyone", forEveryone)
	return updated, nil
}
