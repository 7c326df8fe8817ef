package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrEmptyBody, http.StatusBadRequest},
		{ErrSelfMessage, http.StatusBadRequest},
		{ErrDuplicateEmail, http.StatusConflict},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrProfileNotFound, http.StatusNotFound},
		{ErrReceiverNotFound, http.StatusNotFound},
		{ErrNotParticipant, http.StatusForbidden},
		{ErrMustBeContactedFirst, http.StatusForbidden},
		{Store(errors.New("conn reset")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestWrappedSentinelsMatch(t *testing.T) {
	err := fmt.Errorf("send: %w", ErrMustBeContactedFirst)
	assert.ErrorIs(t, err, ErrMustBeContactedFirst)
	assert.NotErrorIs(t, err, ErrReceiverNotFound)
	assert.Equal(t, CodePermissionDenied, CodeOf(err))
}

func TestStoreKeepsCauseText(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Store(cause)
	assert.Equal(t, "dial tcp: connection refused", Message(err))
	assert.Equal(t, "dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}
