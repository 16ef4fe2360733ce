package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrProgramNotFound is returned when no training program matches.
var ErrProgramNotFound = errors.New("training program not found")

// EmptyActiveProgramSetError reports that the registry holds no active
// training program, so there is nothing to display.
type EmptyActiveProgramSetError struct{}

func (e *EmptyActiveProgramSetError) Error() string {
	return "no active training programs available"
}

// Program is one registry entry: a named training program table and its
// active flag. FileName is the CSV under the data dir's programs folder.
type Program struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FileName  string    `json:"fileName"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProgramDisplayName renders a "YYYY_T" file stem as "YYYY: Term T". File
// stems that do not follow the year_term convention are used as-is.
func ProgramDisplayName(stem string) string {
	parts := strings.SplitN(stem, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return stem
	}
	return fmt.Sprintf("%s: Term %s", parts[0], parts[1])
}

// ProgramFileStem is the inverse of ProgramDisplayName.
func ProgramFileStem(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, ": ", "_"), "Term ", "")
}

// DefaultProgram picks the program shown when the caller names none: the
// last active entry in name order (names sort chronologically, so this is
// the most recent term).
func DefaultProgram(programs []Program) (Program, error) {
	var chosen *Program
	for i := range programs {
		if !programs[i].Active {
			continue
		}
		if chosen == nil || programs[i].Name > chosen.Name {
			chosen = &programs[i]
		}
	}
	if chosen == nil {
		return Program{}, &EmptyActiveProgramSetError{}
	}
	return *chosen, nil
}

// CreateProgram inserts a registry entry.
func (s *Store) CreateProgram(p *Program) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO programs (id, name, file_name, active)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, p.FileName, p.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("program %q already exists", p.Name)
		}
		return fmt.Errorf("insert program failed: %w", err)
	}
	return nil
}

// GetProgram fetches a registry entry by id.
func (s *Store) GetProgram(id string) (*Program, error) {
	return s.scanProgram(s.db.QueryRow(programSelect+" WHERE id = ?", id))
}

// GetProgramByName fetches a registry entry by display name.
func (s *Store) GetProgramByName(name string) (*Program, error) {
	return s.scanProgram(s.db.QueryRow(programSelect+" WHERE name = ?", name))
}

// ListPrograms returns the registry in name order.
func (s *Store) ListPrograms() ([]Program, error) {
	rows, err := s.db.Query(programSelect + " ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query programs failed: %w", err)
	}
	defer rows.Close()

	var programs []Program
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ID, &p.Name, &p.FileName, &p.Active, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan program failed: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs failed: %w", err)
	}
	return programs, nil
}

// SetProgramActive flips a program's active flag.
func (s *Store) SetProgramActive(id string, active bool) error {
	res, err := s.db.Exec(`
		UPDATE programs SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, active, id)
	if err != nil {
		return fmt.Errorf("update program failed: %w", err)
	}
	return requireRow(res, ErrProgramNotFound)
}

// TouchProgram bumps a program's updated_at after its file is replaced.
func (s *Store) TouchProgram(id string) error {
	res, err := s.db.Exec(`
		UPDATE programs SET updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("touch program failed: %w", err)
	}
	return requireRow(res, ErrProgramNotFound)
}

// DeleteProgram removes a registry entry.
func (s *Store) DeleteProgram(id string) error {
	res, err := s.db.Exec("DELETE FROM programs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete program failed: %w", err)
	}
	return requireRow(res, ErrProgramNotFound)
}

const programSelect = `
	SELECT id, name, file_name, active, updated_at
	FROM programs`

func (s *Store) scanProgram(row *sql.Row) (*Program, error) {
	var p Program
	if err := row.Scan(&p.ID, &p.Name, &p.FileName, &p.Active, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, fmt.Errorf("scan program failed: %w", err)
	}
	return &p, nil
}
