// Package contacts resolves which profiles a user may open a chat with.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/splax/housechat/internal/apperr"
	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/repository"
)

// Service computes contact lists from roles and message history.
type Service struct {
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(profiles repository.ProfileRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{profiles: profiles, logger: logger}
}

// ListVisible returns the profiles requesterID may message, never including
// the requester.
//
// Housekeepers see every owner. Owners see the other owners followed by the
// housekeepers they already share a conversation with; each group is sorted
// by name on its own and the groups are concatenated.
func (s Service) ListVisible(ctx context.Context, requesterID string) ([]domain.Profile, error) {
	requester, err := s.profiles.GetProfileByUserID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrProfileNotFound
		}
		return nil, apperr.Store(err)
	}

	switch requester.Role {
	case domain.RoleHousekeeper:
		owners, err := s.profiles.ListProfilesByRole(ctx, domain.RoleOwner)
		if err != nil {
			return nil, apperr.Store(err)
		}
		return without(owners, requesterID), nil
	case domain.RoleOwner:
		owners, err := s.profiles.ListProfilesByRole(ctx, domain.RoleOwner)
		if err != nil {
			return nil, apperr.Store(err)
		}
		housekeepers, err := s.profiles.ListCorrespondents(ctx, requesterID, domain.RoleHousekeeper)
		if err != nil {
			return nil, apperr.Store(err)
		}
		out := without(owners, requesterID)
		return append(out, without(housekeepers, requesterID)...), nil
	default:
		s.logger.Error("profile has unknown role", "user_id", requesterID, "role", string(requester.Role))
		return nil, apperr.Store(fmt.Errorf("profile %s has unknown role %q", requester.ID, requester.Role))
	}
}

func without(profiles []domain.Profile, userID string) []domain.Profile {
	out := make([]domain.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.UserID != userID {
			out = append(out, p)
		}
	}
	return out
}
