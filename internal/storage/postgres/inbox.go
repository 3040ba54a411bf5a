package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/npcmod/internal/host"
)

// ErrInvalidMessage is returned when a message lacks an ID or sender.
var ErrInvalidMessage = errors.New("text message must have an id and npc")

// InboxRepository stores the text messages NPCs send to the player's phone.
type InboxRepository struct {
	db *pgxpool.Pool
}

// NewInboxRepository creates an InboxRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewInboxRepository(db *pgxpool.Pool) *InboxRepository {
	return &InboxRepository{db: db}
}

// Append stores msg. Appending a message whose ID is already stored is a
// no-op, so retried sends never duplicate.
//
// Precondition: msg.ID and msg.NPC must be non-empty.
// Postcondition: msg is stored, or ErrInvalidMessage / a wrapped database
// error is returned.
func (r *InboxRepository) Append(ctx context.Context, msg host.TextMessage) error {
	if msg.ID == "" || msg.NPC == "" {
		return ErrInvalidMessage
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO npc_messages (id, npc_id, body, sent_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.NPC, msg.Text, msg.SentAt,
	)
	if err != nil {
		return fmt.Errorf("inserting text message: %w", err)
	}
	return nil
}

// ListByNPC returns up to limit messages from npcID, oldest first.
//
// Precondition: limit > 0.
// Postcondition: Returns a non-nil slice (possibly empty) or an error.
func (r *InboxRepository) ListByNPC(ctx context.Context, npcID string, limit int) ([]host.TextMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, npc_id, body, sent_at
		FROM npc_messages WHERE npc_id = $1
		ORDER BY sent_at ASC, id ASC
		LIMIT $2`,
		npcID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing text messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]host.TextMessage, 0)
	for rows.Next() {
		var m host.TextMessage
		if err := rows.Scan(&m.ID, &m.NPC, &m.Text, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scanning text message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating text messages: %w", err)
	}
	return msgs, nil
}

// Count returns the number of stored messages.
func (r *InboxRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM npc_messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting text messages: %w", err)
	}
	return n, nil
}
