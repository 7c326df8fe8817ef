package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/splax/housechat/internal/domain"
)

const profileColumns = `p.id, p.user_id, p.name, p.role, p.created_at`

// CreateAccount inserts the user and its profile inside one transaction so a
// failed profile insert never leaves an orphaned user row.
func (r *Repository) CreateAccount(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		return insertProfile(ctx, tx, profile)
	})
	return translate(err)
}

func insertUser(ctx context.Context, q queryer, user *domain.User) error {
	const query = `INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := q.Exec(ctx, query, user.ID, domain.NormalizeEmail(user.Email), user.PasswordHash, user.CreatedAt)
	return err
}

func insertProfile(ctx context.Context, q queryer, profile *domain.Profile) error {
	const query = `INSERT INTO profiles (id, user_id, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := q.Exec(ctx, query, profile.ID, profile.UserID, profile.Name, string(profile.Role), profile.CreatedAt)
	return err
}

// GetUserByEmail fetches a user by normalized email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`
	var u domain.User
	row := r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email))
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`
	var u domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetProfileByUserID returns the profile owned by userID.
func (r *Repository) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE p.user_id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// ListProfilesByRole lists profiles holding role ordered by name.
func (r *Repository) ListProfilesByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE p.role = $1 ORDER BY p.name ASC, p.user_id ASC`
	return r.listProfiles(ctx, query, string(role))
}

// ListCorrespondents lists profiles with role that share at least one message
// with userID, regardless of either side's delete flags.
func (r *Repository) ListCorrespondents(ctx context.Context, userID string, role domain.Role) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p
		WHERE p.role = $2
		  AND p.user_id <> $1
		  AND EXISTS (
			SELECT 1 FROM messages m
			WHERE (m.sender_id = $1 AND m.receiver_id = p.user_id)
			   OR (m.sender_id = p.user_id AND m.receiver_id = $1)
		  )
		ORDER BY p.name ASC, p.user_id ASC`
	return r.listProfiles(ctx, query, userID, string(role))
}

func (r *Repository) listProfiles(ctx context.Context, query string, args ...any) ([]domain.Profile, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p    domain.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &role, &p.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	p.Role = parsed
	return &p, nil
}
