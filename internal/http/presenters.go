package httpx

import (
	"time"

	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/service/auth"
)

type userJSON struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type profileJSON struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type messageJSON struct {
	ID                 string    `json:"id"`
	SenderID           string    `json:"sender_id"`
	ReceiverID         string    `json:"receiver_id"`
	Body               string    `json:"body"`
	DeletedForSender   bool      `json:"deleted_for_sender"`
	DeletedForReceiver bool      `json:"deleted_for_receiver"`
	CreatedAt          time.Time `json:"created_at"`
}

type tokensJSON struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type accountJSON struct {
	User    userJSON    `json:"user"`
	Profile profileJSON `json:"profile"`
	Tokens  tokensJSON  `json:"tokens"`
}

func presentTokens(t auth.TokenPair) tokensJSON {
	return tokensJSON{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    int64(t.ExpiresIn / time.Second),
	}
}

func presentAccount(a auth.Account) accountJSON {
	return accountJSON{
		User:    userJSON{ID: a.User.ID, Email: a.User.Email, CreatedAt: a.User.CreatedAt.UTC()},
		Profile: presentProfile(*a.Profile),
		Tokens:  presentTokens(a.Tokens),
	}
}

func presentProfile(p domain.Profile) profileJSON {
	return profileJSON{ID: p.ID, UserID: p.UserID, Name: p.Name, Role: p.Role.String(), CreatedAt: p.CreatedAt.UTC()}
}

func presentProfiles(profiles []domain.Profile) []profileJSON {
	out := make([]profileJSON, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, presentProfile(p))
	}
	return out
}

func presentMessage(m domain.Message) messageJSON {
	return messageJSON{
		ID:                 m.ID,
		SenderID:           m.SenderID,
		ReceiverID:         m.ReceiverID,
		Body:               m.Body,
		DeletedForSender:   m.DeletedForSender,
		DeletedForReceiver: m.DeletedForReceiver,
		CreatedAt:          m.CreatedAt.UTC(),
	}
}

func presentMessages(msgs []domain.Message) []messageJSON {
	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, presentMessage(m))
	}
	return out
}
