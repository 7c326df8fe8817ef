package contacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/housechat/internal/apperr"
	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/repository/memory"
	"github.com/splax/housechat/pkg/logger"
)

type fixture struct {
	store *memory.Store
	svc   Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	f := fixture{store: store, svc: New(store, logger.Discard())}
	f.add(t, "o-zoe", "Zoe", domain.RoleOwner)
	f.add(t, "o-amy", "Amy", domain.RoleOwner)
	f.add(t, "o-max", "Max", domain.RoleOwner)
	f.add(t, "h-bob", "Bob", domain.RoleHousekeeper)
	f.add(t, "h-ann", "Ann", domain.RoleHousekeeper)
	f.add(t, "h-cal", "Cal", domain.RoleHousekeeper)
	return f
}

func (f fixture) add(t *testing.T, id, name string, role domain.Role) {
	t.Helper()
	require.NoError(t, f.store.CreateAccount(context.Background(),
		&domain.User{ID: id, Email: id + "@house.test"},
		&domain.Profile{ID: "p-" + id, UserID: id, Name: name, Role: role}))
}

func (f fixture) message(t *testing.T, id, from, to string) {
	t.Helper()
	require.NoError(t, f.store.CreateMessage(context.Background(),
		&domain.Message{ID: id, SenderID: from, ReceiverID: to, Body: "hi"}))
}

func names(profiles []domain.Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Name)
	}
	return out
}

func TestHousekeeperSeesEveryOwner(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.ListVisible(context.Background(), "h-bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"Amy", "Max", "Zoe"}, names(got))
	for _, p := range got {
		assert.Equal(t, domain.RoleOwner, p.Role)
	}
}

func TestOwnerWithoutHistorySeesOnlyOtherOwners(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.ListVisible(context.Background(), "o-max")
	require.NoError(t, err)
	assert.Equal(t, []string{"Amy", "Zoe"}, names(got))
}

func TestOwnerSeesCorrespondentHousekeepersAfterOwners(t *testing.T) {
	f := newFixture(t)
	f.message(t, "m1", "h-cal", "o-max")
	f.message(t, "m2", "o-max", "h-ann")
	_, err := f.store.MarkDeleted(context.Background(), "m2", true, true)
	require.NoError(t, err)
	f.message(t, "m3", "h-bob", "o-zoe")

	got, err := f.svc.ListVisible(context.Background(), "o-max")
	require.NoError(t, err)
	// Owners first, then housekeepers; each group sorted by name on its own.
	assert.Equal(t, []string{"Amy", "Zoe", "Ann", "Cal"}, names(got))
}

func TestRequesterNeverListed(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"o-zoe", "o-amy", "o-max", "h-bob", "h-ann", "h-cal"} {
		got, err := f.svc.ListVisible(context.Background(), id)
		require.NoError(t, err)
		for _, p := range got {
			assert.NotEqual(t, id, p.UserID)
		}
	}
}

func TestMissingProfile(t *testing.T) {
	f := newFixture(t)
	f.store.PutUser(domain.User{ID: "ghost", Email: "ghost@house.test"})

	_, err := f.svc.ListVisible(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrProfileNotFound)
}
