package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrLessonPlanNotFound is returned when no lesson plan matches.
var ErrLessonPlanNotFound = errors.New("lesson plan not found")

// LessonPlan is one indexed lesson plan PDF. SyllabusKey ties it to the
// flattened syllabus index when known.
type LessonPlan struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FileName    string    `json:"fileName"`
	SyllabusKey string    `json:"syllabusKey,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// CreateLessonPlan inserts an index entry.
func (s *Store) CreateLessonPlan(lp *LessonPlan) error {
	if lp.ID == "" {
		lp.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO lesson_plans (id, name, file_name, syllabus_key)
		VALUES (?, ?, ?, ?)
	`, lp.ID, lp.Name, lp.FileName, lp.SyllabusKey)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lesson plan %q already exists", lp.Name)
		}
		return fmt.Errorf("insert lesson plan failed: %w", err)
	}
	return nil
}

// GetLessonPlan fetches an entry by id.
func (s *Store) GetLessonPlan(id string) (*LessonPlan, error) {
	row := s.db.QueryRow(lessonPlanSelect+" WHERE id = ?", id)
	return scanLessonPlan(row)
}

// SearchLessonPlans lists entries whose name contains the search term
// (case-insensitive), name order, with offset/limit pagination. An empty
// term matches everything. total is the match count before pagination.
func (s *Store) SearchLessonPlans(term string, offset, limit int) (plans []LessonPlan, total int, err error) {
	pattern := "%" + strings.ToLower(term) + "%"

	if err := s.db.QueryRow(`
		SELECT COUNT(1) FROM lesson_plans WHERE LOWER(name) LIKE ?
	`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lesson plans failed: %w", err)
	}

	rows, err := s.db.Query(lessonPlanSelect+`
		WHERE LOWER(name) LIKE ?
		ORDER BY name LIMIT ? OFFSET ?
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query lesson plans failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lp LessonPlan
		if err := rows.Scan(&lp.ID, &lp.Name, &lp.FileName, &lp.SyllabusKey, &lp.UploadedAt); err != nil {
			return nil, 0, fmt.Errorf("scan lesson plan failed: %w", err)
		}
		plans = append(plans, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate lesson plans failed: %w", err)
	}
	return plans, total, nil
}

// LessonPlansForSyllabusKey lists the plans tied to one syllabus lesson.
func (s *Store) LessonPlansForSyllabusKey(key string) ([]LessonPlan, error) {
	rows, err := s.db.Query(lessonPlanSelect+" WHERE syllabus_key = ? ORDER BY name", key)
	if err != nil {
		return nil, fmt.Errorf("query lesson plans failed: %w", err)
	}
	defer rows.Close()

	var plans []LessonPlan
	for rows.Next() {
		var lp LessonPlan
		if err := rows.Scan(&lp.ID, &lp.Name, &lp.FileName, &lp.SyllabusKey, &lp.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan lesson plan failed: %w", err)
		}
		plans = append(plans, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson plans failed: %w", err)
	}
	return plans, nil
}

// DeleteLessonPlan removes an index entry.
func (s *Store) DeleteLessonPlan(id string) error {
	res, err := s.db.Exec("DELETE FROM lesson_plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete lesson plan failed: %w", err)
	}
	return requireRow(res, ErrLessonPlanNotFound)
}

// LinkActivity records an explicit schedule-cell -> syllabus mapping.
func (s *Store) LinkActivity(activity, syllabusKey string) error {
	_, err := s.db.Exec(`
		INSERT INTO lesson_links (activity, syllabus_key) VALUES (?, ?)
		ON CONFLICT(activity) DO UPDATE SET syllabus_key = excluded.syllabus_key
	`, activity, syllabusKey)
	if err != nil {
		return fmt.Errorf("link activity failed: %w", err)
	}
	return nil
}

// ResolveActivity returns the syllabus key linked to a schedule activity
// label. Unlinked activities resolve to nothing: the portal never guesses
// from the label text.
func (s *Store) ResolveActivity(activity string) (string, bool, error) {
	var key string
	err := s.db.QueryRow(`
		SELECT syllabus_key FROM lesson_links WHERE activity = ?
	`, activity).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve activity failed: %w", err)
	}
	return key, true, nil
}

const lessonPlanSelect = `
	SELECT id, name, file_name, syllabus_key, uploaded_at
	FROM lesson_plans`

func scanLessonPlan(row *sql.Row) (*LessonPlan, error) {
	var lp LessonPlan
	if err := row.Scan(&lp.ID, &lp.Name, &lp.FileName, &lp.SyllabusKey, &lp.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLessonPlanNotFound
		}
		return nil, fmt.Errorf("scan lesson plan failed: %w", err)
	}
	return &lp, nil
}
