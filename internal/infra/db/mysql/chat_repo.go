package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/chat"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Append(ctx context.Context, m *chat.Message) error {
	const q = `
INSERT INTO chat_messages (analysis_id, message, response, created_at)
VALUES (?,?,?,?);
`
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, q, string(m.AnalysisID), m.Message, m.Response, created.UTC()); err != nil {
		return wrapf(err, "append chat message for %s", m.AnalysisID)
	}
	return nil
}

// History in insertion order (auto-increment seq)
func (r *ChatRepository) History(ctx context.Context, id analysis.ID) ([]*chat.Message, error) {
	const q = `
SELECT analysis_id, message, response, created_at
FROM chat_messages
WHERE analysis_id=?
ORDER BY seq ASC;
`
	rows, err := r.db.QueryContext(ctx, q, string(id))
	if err != nil {
		return nil, wrapf(err, "chat history for %s", id)
	}
	defer rows.Close()

	out := []*chat.Message{}
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.AnalysisID, &m.Message, &m.Response, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
