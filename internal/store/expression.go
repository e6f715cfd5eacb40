package store

import (
	"database/sql"

	"github.com/ayusman/abhinaya/internal/expression"
)

// Expression is one classified frame.
type Expression struct {
	ID          int64            `json:"id"`
	SessionID   string           `json:"session_id"`
	FrameIndex  int              `json:"frame_index"`
	TimestampMs int64            `json:"timestamp_ms"`
	Label       expression.Label `json:"label"`
}

// ExpressionRepository provides operations on classified frames.
type ExpressionRepository struct {
	db *sql.DB
}

// Expressions returns the expression repository for this store.
func (s *Store) Expressions() *ExpressionRepository {
	return &ExpressionRepository{db: s.db}
}

const insertExpression = `INSERT INTO expressions (session_id, frame_index, timestamp_ms, label) VALUES (?, ?, ?, ?)`

// Record inserts one classified frame.
func (r *ExpressionRepository) Record(e *Expression) error {
	return r.RecordBatch([]*Expression{e})
}

// RecordBatch inserts classified frames in a single transaction. Either all
// rows are stored or none.
func (r *ExpressionRepository) RecordBatch(exprs []*Expression) error {
	if len(exprs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertExpression)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ids := make([]int64, len(exprs))
	for i, e := range exprs {
		result, err := stmt.Exec(e.SessionID, e.FrameIndex, e.TimestampMs, string(e.Label))
		if err != nil {
			return err
		}
		if ids[i], err = result.LastInsertId(); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for i, e := range exprs {
		e.ID = ids[i]
	}
	return nil
}

// ListBySession retrieves a session's classified frames in frame order.
func (r *ExpressionRepository) ListBySession(sessionID string) ([]Expression, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, frame_index, timestamp_ms, label
		 FROM expressions
		 WHERE session_id = ?
		 ORDER BY frame_index`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expressions []Expression
	for rows.Next() {
		var e Expression
		var label string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.FrameIndex, &e.TimestampMs, &label); err != nil {
			return nil, err
		}
		e.Label = expression.Label(label)
		expressions = append(expressions, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expressions, nil
}

// CountByLabel returns how many frames of a session got each label.
// Labels that never occurred are absent from the map.
func (r *ExpressionRepository) CountByLabel(sessionID string) (map[expression.Label]int, error) {
	rows, err := r.db.Query(
		`SELECT label, COUNT(*) FROM expressions WHERE session_id = ? GROUP BY label`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[expression.Label]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[expression.Label(label)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}
