package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/splax/housechat/internal/apperr"
	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/repository"
)

// CanSend decides whether a sender with senderRole may message a receiver
// with receiverRole, given whether the two already share a conversation.
//
//	owner       -> owner        always
//	owner       -> housekeeper  only when prior is true
//	housekeeper -> anyone       always
func CanSend(senderRole, receiverRole domain.Role, prior bool) error {
	if !receiverRole.Valid() {
		return unknownRole(receiverRole)
	}
	switch senderRole {
	case domain.RoleHousekeeper:
		return nil
	case domain.RoleOwner:
		switch receiverRole {
		case domain.RoleOwner:
			return nil
		case domain.RoleHousekeeper:
			if prior {
				return nil
			}
			return apperr.ErrMustBeContactedFirst
		}
	}
	return unknownRole(senderRole)
}

// needsHistory reports whether CanSend depends on its prior argument for the
// pair, so the store is only asked when the answer matters.
func needsHistory(senderRole, receiverRole domain.Role) bool {
	return senderRole == domain.RoleOwner && receiverRole == domain.RoleHousekeeper
}

func unknownRole(r domain.Role) error {
	return apperr.Store(fmt.Errorf("integrity fault: unknown role %q", r))
}

// CheckSend runs the send rules in order: the receiver must exist, it must
// not be the sender, then the role policy applies. It returns the receiver's
// profile on success.
func (s Service) CheckSend(ctx context.Context, sender domain.Identity, receiverID string) (*domain.Profile, error) {
	receiver, err := s.profiles.GetProfileByUserID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrReceiverNotFound
		}
		return nil, apperr.Store(err)
	}
	if sender.UserID == receiver.UserID {
		return nil, apperr.ErrSelfMessage
	}
	prior := false
	if needsHistory(sender.Role, receiver.Role) {
		prior, err = s.messages.ConversationExists(ctx, sender.UserID, receiver.UserID)
		if err != nil {
			return nil, apperr.Store(err)
		}
	}
	if err := CanSend(sender.Role, receiver.Role, prior); err != nil {
		return nil, err
	}
	return receiver, nil
}
