package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrManualNotFound is returned when no manual matches.
var ErrManualNotFound = errors.New("manual not found")

// Manual is one indexed unit manual or reference document.
type Manual struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// CreateManual inserts an index entry.
func (s *Store) CreateManual(m *Manual) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO manuals (id, name, file_name)
		VALUES (?, ?, ?)
	`, m.ID, m.Name, m.FileName)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("manual %q already exists", m.Name)
		}
		return fmt.Errorf("insert manual failed: %w", err)
	}
	return nil
}

// GetManual fetches an entry by id.
func (s *Store) GetManual(id string) (*Manual, error) {
	var m Manual
	err := s.db.QueryRow(manualSelect+" WHERE id = ?", id).
		Scan(&m.ID, &m.Name, &m.FileName, &m.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrManualNotFound
		}
		return nil, fmt.Errorf("scan manual failed: %w", err)
	}
	return &m, nil
}

// SearchManuals lists entries whose name contains the search term
// (case-insensitive), name order, with offset/limit pagination. An empty
// term matches everything. total is the match count before pagination.
func (s *Store) SearchManuals(term string, offset, limit int) (manuals []Manual, total int, err error) {
	pattern := "%" + strings.ToLower(term) + "%"

	if err := s.db.QueryRow(`
		SELECT COUNT(1) FROM manuals WHERE LOWER(name) LIKE ?
	`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count manuals failed: %w", err)
	}

	rows, err := s.db.Query(manualSelect+`
		WHERE LOWER(name) LIKE ?
		ORDER BY name LIMIT ? OFFSET ?
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query manuals failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Manual
		if err := rows.Scan(&m.ID, &m.Name, &m.FileName, &m.UploadedAt); err != nil {
			return nil, 0, fmt.Errorf("scan manual failed: %w", err)
		}
		manuals = append(manuals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate manuals failed: %w", err)
	}
	return manuals, total, nil
}

// DeleteManual removes an index entry.
func (s *Store) DeleteManual(id string) error {
	res, err := s.db.Exec("DELETE FROM manuals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete manual failed: %w", err)
	}
	return requireRow(res, ErrManualNotFound)
}

const manualSelect = `
	SELECT id, name, file_name, uploaded_at
	FROM manuals`
