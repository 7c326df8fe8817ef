package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/splax/housechat/internal/domain"
)

const messageColumns = `id, seq, sender_id, receiver_id, body, deleted_for_sender, deleted_for_receiver, created_at`

// CreateMessage inserts msg with both delete flags cleared. The database
// assigns the sequence number and creation time.
func (r *Repository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	const query = `INSERT INTO messages (id, sender_id, receiver_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING seq, created_at`
	err := r.pool.QueryRow(ctx, query, msg.ID, msg.SenderID, msg.ReceiverID, msg.Body).Scan(&msg.Seq, &msg.CreatedAt)
	if err != nil {
		return translate(err)
	}
	msg.DeletedForSender = false
	msg.DeletedForReceiver = false
	return nil
}

// GetMessageByID loads a message regardless of its delete flags.
func (r *Repository) GetMessageByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	m, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// ConversationExists reports whether any message links the two users.
func (r *Repository) ConversationExists(ctx context.Context, userA, userB string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
	)`
	if !validIDs(userA, userB) {
		return false, nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, translate(err)
	}
	return exists, nil
}

// ListMessagesForUser returns messages the user has not deleted on their side.
func (r *Repository) ListMessagesForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE (sender_id = $1 AND NOT deleted_for_sender)
		   OR (receiver_id = $1 AND NOT deleted_for_receiver)
		ORDER BY created_at ASC, seq ASC`
	return r.listMessages(ctx, query, userID)
}

// ListConversation returns the pair's messages visible to userID.
func (r *Repository) ListConversation(ctx context.Context, userID, otherID string) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2 AND NOT deleted_for_sender)
		   OR (sender_id = $2 AND receiver_id = $1 AND NOT deleted_for_receiver)
		ORDER BY created_at ASC, seq ASC`
	return r.listMessages(ctx, query, userID, otherID)
}

// MarkDeleted ORs the requested flags into the row, so a flag that is already
// set can never be cleared by a concurrent writer.
func (r *Repository) MarkDeleted(ctx context.Context, id string, forSender, forReceiver bool) (*domain.Message, error) {
	query := `UPDATE messages
		SET deleted_for_sender = deleted_for_sender OR $2,
		    deleted_for_receiver = deleted_for_receiver OR $3
		WHERE id = $1
		RETURNING ` + messageColumns
	m, err := scanMessage(r.pool.QueryRow(ctx, query, id, forSender, forReceiver))
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// listMessages runs query with user id arguments. Ids that cannot be UUIDs
// match nothing.
func (r *Repository) listMessages(ctx context.Context, query string, ids ...string) ([]domain.Message, error) {
	if !validIDs(ids...) {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.Seq, &m.SenderID, &m.ReceiverID, &m.Body,
		&m.DeletedForSender, &m.DeletedForReceiver, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if uuid.Validate(id) != nil {
			return false
		}
	}
	return true
}
