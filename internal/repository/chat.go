package repository

import (
	"context"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const chatTurnColumns = `id, document_id, conversation_id, role, message, created_at`

// ChatRepository persists conversation turns. Turns are append-only.
type ChatRepository struct {
	db dbtx
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: pool}
}

func NewChatRepositoryWithTx(tx pgx.Tx) *ChatRepository {
	return &ChatRepository{db: tx}
}

func (r *ChatRepository) Append(ctx context.Context, turn *domain.ChatTurn) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_turns (`+chatTurnColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ID, turn.DocumentID, turn.ConversationID, turn.Role, turn.Message, turn.CreatedAt,
	)
	return err
}

// ListRecent returns turns newest first. limit <= 0 returns every turn.
func (r *ChatRepository) ListRecent(ctx context.Context, documentID, conversationID string, limit int) ([]domain.ChatTurn, error) {
	query := `SELECT ` + chatTurnColumns + `
		 FROM chat_turns
		 WHERE document_id = $1 AND conversation_id = $2
		 ORDER BY created_at DESC, id DESC`
	args := []any{documentID, conversationID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChatTurns(rows)
}

// ListPage pages through a conversation newest first.
func (r *ChatRepository) ListPage(ctx context.Context, documentID, conversationID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[domain.ChatTurn], error) {
	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+chatTurnColumns+`
			 FROM chat_turns
			 WHERE document_id = $1 AND conversation_id = $2 AND (created_at, id) < ($3, $4)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $5`,
			documentID, conversationID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+chatTurnColumns+`
			 FROM chat_turns
			 WHERE document_id = $1 AND conversation_id = $2
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			documentID, conversationID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanChatTurns(rows)
	if err != nil {
		return nil, err
	}

	return pagination.NewPage(items, limit, func(t domain.ChatTurn) (string, time.Time) {
		return t.ID, t.CreatedAt
	}), nil
}

func scanChatTurns(rows pgx.Rows) ([]domain.ChatTurn, error) {
	turns := make([]domain.ChatTurn, 0)
	for rows.Next() {
		var t domain.ChatTurn
		if err := rows.Scan(&t.ID, &t.DocumentID, &t.ConversationID, &t.Role, &t.Message, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
