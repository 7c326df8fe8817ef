// Package memory implements the repository interfaces in process memory. It
// backs the test suites and the STORAGE_DRIVER=memory development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/repository"
)

// Store keeps users, profiles and messages behind a single lock.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[string]domain.User
	emails   map[string]string
	profiles map[string]domain.Profile // keyed by user id
	messages []domain.Message
	byID     map[string]int
	seq      int64
}

// ensure Store satisfies interfaces.
var (
	_ repository.AccountRepository = (*Store)(nil)
	_ repository.ProfileRepository = (*Store)(nil)
	_ repository.MessageRepository = (*Store)(nil)
)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		profiles: make(map[string]domain.Profile),
		byID:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping always succeeds; it mirrors pgxpool.Pool.Ping for health checks.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateAccount(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := domain.NormalizeEmail(user.Email)
	if _, ok := s.emails[email]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := s.profiles[profile.UserID]; ok {
		return repository.ErrDuplicate
	}
	user.Email = email
	s.users[user.ID] = *user
	s.emails[email] = user.ID
	s.profiles[profile.UserID] = *profile
	return nil
}

// PutUser stores a user without a profile. It exists to reproduce accounts
// left behind by older, non-atomic signups.
func (s *Store) PutUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = domain.NormalizeEmail(user.Email)
	s.users[user.ID] = user
	s.emails[user.Email] = user.ID
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListProfilesByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Profile
	for _, p := range s.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out, nil
}

func (s *Store) ListCorrespondents(ctx context.Context, userID string, role domain.Role) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []domain.Profile
	for _, m := range s.messages {
		if !m.Involves(userID) {
			continue
		}
		other := m.SenderID
		if other == userID {
			other = m.ReceiverID
		}
		if _, ok := seen[other]; ok {
			continue
		}
		p, ok := s.profiles[other]
		if !ok || p.Role != role {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, p)
	}
	sortByName(out)
	return out, nil
}

func (s *Store) CreateMessage(ctx context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[msg.ID]; ok {
		return repository.ErrDuplicate
	}
	s.seq++
	msg.Seq = s.seq
	msg.CreatedAt = s.now()
	s.byID[msg.ID] = len(s.messages)
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *Store) GetMessageByID(ctx context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m := s.messages[idx]
	return &m, nil
}

func (s *Store) ConversationExists(ctx context.Context, userA, userB string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListMessagesForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.VisibleTo(userID) {
			out = append(out, m)
		}
	}
	sortChronologically(out)
	return out, nil
}

func (s *Store) ListConversation(ctx context.Context, userID, otherID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Message
	for _, m := range s.messages {
		sent := m.SenderID == userID && m.ReceiverID == otherID && !m.DeletedForSender
		received := m.SenderID == otherID && m.ReceiverID == userID && !m.DeletedForReceiver
		if sent || received {
			out = append(out, m)
		}
	}
	sortChronologically(out)
	return out, nil
}

func (s *Store) MarkDeleted(ctx context.Context, id string, forSender, forReceiver bool) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m := &s.messages[idx]
	m.DeletedForSender = m.DeletedForSender || forSender
	m.DeletedForReceiver = m.DeletedForReceiver || forReceiver
	out := *m
	return &out, nil
}

func sortByName(profiles []domain.Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].Name != profiles[j].Name {
			return profiles[i].Name < profiles[j].Name
		}
		return profiles[i].UserID < profiles[j].UserID
	})
}

func sortChronologically(messages []domain.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Before(messages[j])
	})
}
