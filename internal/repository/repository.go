package repository

import (
	"context"

	"github.com/splax/housechat/internal/domain"
)

// AccountRepository persists users together with their profiles.
type AccountRepository interface {
	// CreateAccount stores the user and its profile in one atomic write.
	CreateAccount(ctx context.Context, user *domain.User, profile *domain.Profile) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// ProfileRepository answers identity lookups by user and by role.
type ProfileRepository interface {
	GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	// ListProfilesByRole returns every profile with the role, ordered by name.
	ListProfilesByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
	// ListCorrespondents returns profiles with the role that exchanged at least
	// one message with userID in either direction, deleted or not, ordered by name.
	ListCorrespondents(ctx context.Context, userID string, role domain.Role) ([]domain.Profile, error)
}

// MessageRepository persists direct messages.
type MessageRepository interface {
	// CreateMessage inserts msg and fills its Seq and CreatedAt.
	CreateMessage(ctx context.Context, msg *domain.Message) error
	GetMessageByID(ctx context.Context, id string) (*domain.Message, error)
	// ConversationExists ignores delete flags.
	ConversationExists(ctx context.Context, userA, userB string) (bool, error)
	// ListMessagesForUser returns messages the user sent or received and has
	// not deleted on their side, ordered by (created_at, seq).
	ListMessagesForUser(ctx context.Context, userID string) ([]domain.Message, error)
	// ListConversation returns the pair's messages still visible to userID,
	// ordered by (created_at, seq).
	ListConversation(ctx context.Context, userID, otherID string) ([]domain.Message, error)
	// MarkDeleted raises the requested flags. Flags already set stay set.
	MarkDeleted(ctx context.Context, id string, forSender, forReceiver bool) (*domain.Message, error)
}
