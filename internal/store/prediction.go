package store

import (
	"database/sql"
	"time"
)

// Prediction is a letter shown during a session.
type Prediction struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Hands      int       `json:"hands"`
	CreatedAt  time.Time `json:"created_at"`
}

// PredictionRepository stores recognized letters.
type PredictionRepository struct {
	db *sql.DB
}

// Predictions returns the prediction repository for this store.
func (s *Store) Predictions() *PredictionRepository {
	return &PredictionRepository{db: s.db}
}

// Create inserts a prediction and sets its ID. A zero CreatedAt is set to
// now.
func (r *PredictionRepository) Create(p *Prediction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO predictions (session_id, label, confidence, hands, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.SessionID, p.Label, p.Confidence, p.Hands, p.CreatedAt,
	)
	if err != nil {
		return err
	}

	p.ID, err = result.LastInsertId()
	return err
}

// ListBySession retrieves the predictions of a session in the order they
// were shown.
func (r *PredictionRepository) ListBySession(sessionID string) ([]Prediction, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, label, confidence, hands, created_at
		 FROM predictions
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Label, &p.Confidence, &p.Hands, &p.CreatedAt); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return predictions, nil
}

// Transcript concatenates the labels of a session.
func (r *PredictionRepository) Transcript(sessionID string) (string, error) {
	predictions, err := r.ListBySession(sessionID)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, len(predictions))
	for _, p := range predictions {
		buf = append(buf, p.Label...)
	}
	return string(buf), nil
}

// LetterCounts returns how many times each label was shown in a session.
func (r *PredictionRepository) LetterCounts(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT label, COUNT(*) FROM predictions WHERE session_id = ? GROUP BY label`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}

	return counts, rows.Err()
}
