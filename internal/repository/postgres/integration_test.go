package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/housechat/internal/app/migrate"
	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/repository"
	"github.com/splax/housechat/pkg/logger"
)

// newIntegrationRepo connects to HOUSECHAT_TEST_DATABASE_URL, migrating it
// first. Tests are skipped when the variable is unset.
func newIntegrationRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("HOUSECHAT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("HOUSECHAT_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runner, err := migrate.New(dsn, "../../../db/migrations", logger.Discard())
	require.NoError(t, err)
	require.NoError(t, runner.Up(ctx))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return New(pool)
}

func createAccount(t *testing.T, r *Repository, name string, role domain.Role) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	require.NoError(t, r.CreateAccount(context.Background(),
		&domain.User{ID: id, Email: id + "@house.test", PasswordHash: []byte("x"), CreatedAt: now},
		&domain.Profile{ID: uuid.NewString(), UserID: id, Name: name, Role: role, CreatedAt: now}))
	return id
}

func TestIntegrationCreateAccountIsAtomic(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	existing := createAccount(t, r, "Ana", domain.RoleOwner)

	// A profile clash rolls back the user insert too.
	id := uuid.NewString()
	err := r.CreateAccount(ctx,
		&domain.User{ID: id, Email: id + "@house.test", PasswordHash: []byte("x"), CreatedAt: time.Now()},
		&domain.Profile{ID: uuid.NewString(), UserID: existing, Name: "Dup", Role: domain.RoleOwner, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = r.GetUserByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = r.GetProfileByUserID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIntegrationMessageLifecycle(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	owner := createAccount(t, r, "Olga", domain.RoleOwner)
	hk := createAccount(t, r, "Hugo", domain.RoleHousekeeper)

	exists, err := r.ConversationExists(ctx, owner, hk)
	require.NoError(t, err)
	assert.False(t, exists)

	first := &domain.Message{ID: uuid.NewString(), SenderID: hk, ReceiverID: owner, Body: "hi"}
	require.NoError(t, r.CreateMessage(ctx, first))
	second := &domain.Message{ID: uuid.NewString(), SenderID: owner, ReceiverID: hk, Body: "hello"}
	require.NoError(t, r.CreateMessage(ctx, second))
	assert.Greater(t, second.Seq, first.Seq)

	m, err := r.MarkDeleted(ctx, first.ID, true, true)
	require.NoError(t, err)
	assert.True(t, m.DeletedForSender && m.DeletedForReceiver)
	m, err = r.MarkDeleted(ctx, first.ID, false, false)
	require.NoError(t, err)
	assert.True(t, m.DeletedForSender && m.DeletedForReceiver)

	exists, err = r.ConversationExists(ctx, owner, hk)
	require.NoError(t, err)
	assert.True(t, exists)

	conv, err := r.ListConversation(ctx, owner, hk)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, second.ID, conv[0].ID)

	correspondents, err := r.ListCorrespondents(ctx, owner, domain.RoleHousekeeper)
	require.NoError(t, err)
	require.Len(t, correspondents, 1)
	assert.Equal(t, hk, correspondents[0].UserID)

	none, err := r.ListConversation(ctx, owner, "garbage")
	require.NoError(t, err)
	assert.Empty(t, none)
}
