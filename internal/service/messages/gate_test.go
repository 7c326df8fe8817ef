package messages

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/splax/housechat/internal/apperr"
	"github.com/splax/housechat/internal/domain"
)

func TestCanSend(t *testing.T) {
	tests := []struct {
		name     string
		sender   domain.Role
		receiver domain.Role
		prior    bool
		want     error
	}{
		{"owner to owner", domain.RoleOwner, domain.RoleOwner, false, nil},
		{"owner to owner with history", domain.RoleOwner, domain.RoleOwner, true, nil},
		{"owner cold-contacts housekeeper", domain.RoleOwner, domain.RoleHousekeeper, false, apperr.ErrMustBeContactedFirst},
		{"owner continues housekeeper thread", domain.RoleOwner, domain.RoleHousekeeper, true, nil},
		{"housekeeper to owner", domain.RoleHousekeeper, domain.RoleOwner, false, nil},
		{"housekeeper to housekeeper", domain.RoleHousekeeper, domain.RoleHousekeeper, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanSend(tt.sender, tt.receiver, tt.prior)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(err))
		})
	}
}

func TestCanSendUnknownRoleIsIntegrityFault(t *testing.T) {
	err := CanSend("admin", domain.RoleOwner, true)
	assert.Equal(t, apperr.CodeStore, apperr.CodeOf(err))

	err = CanSend(domain.RoleHousekeeper, "", true)
	assert.Equal(t, apperr.CodeStore, apperr.CodeOf(err))
}
