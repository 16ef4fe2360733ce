package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AdminPermission grants every capability and guards the destructive user
// operations.
const AdminPermission = "Admin"

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when a create/update collides on email.
	ErrEmailTaken = errors.New("email already in use")
)

// User is a portal account. Instructor matching in the schedule engine uses
// Name, never Email.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Permissions []string  `json:"permissions"`
	Settings    []string  `json:"settings"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	PasswordHash string `json:"-"`
}

// IsAdmin reports whether the user holds the Admin permission.
func (u *User) IsAdmin() bool {
	for _, p := range u.Permissions {
		if p == AdminPermission {
			return true
		}
	}
	return false
}

// CreateUser inserts a new account. Emails are stored lowercase and must be
// unique.
func (s *Store) CreateUser(u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return errors.New("email is required")
	}

	perms, settings, err := marshalUserLists(u)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO users (id, name, email, password_hash, permissions, settings)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.PasswordHash, perms, settings)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user failed: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(id string) (*User, error) {
	return s.scanUser(s.db.QueryRow(userSelect+" WHERE id = ?", id))
}

// GetUserByEmail fetches a user by email (case-insensitive).
func (s *Store) GetUserByEmail(email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.scanUser(s.db.QueryRow(userSelect+" WHERE email = ?", email))
}

// ListUsers returns all accounts, admins first, then by name.
func (s *Store) ListUsers() ([]*User, error) {
	rows, err := s.db.Query(userSelect + `
		ORDER BY CASE WHEN permissions LIKE '%"Admin"%' THEN 0 ELSE 1 END, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query users failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users failed: %w", err)
	}
	return users, nil
}

// UpdateUser updates name, permissions and settings.
func (s *Store) UpdateUser(u *User) error {
	perms, settings, err := marshalUserLists(u)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE users
		SET name = ?, permissions = ?, settings = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, u.Name, perms, settings, u.ID)
	if err != nil {
		return fmt.Errorf("update user failed: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

// SetUserPassword replaces a user's password hash.
func (s *Store) SetUserPassword(id, passwordHash string) error {
	res, err := s.db.Exec(`
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password failed: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(id string) error {
	res, err := s.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user failed: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

const userSelect = `
	SELECT id, name, email, password_hash, permissions, settings, created_at, updated_at
	FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	u, err := scanUserRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func scanUserRow(row rowScanner) (*User, error) {
	var u User
	var perms, settings string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &perms, &settings, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user failed: %w", err)
	}
	if err := json.Unmarshal([]byte(perms), &u.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions failed: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &u.Settings); err != nil {
		return nil, fmt.Errorf("decode settings failed: %w", err)
	}
	return &u, nil
}

func marshalUserLists(u *User) (perms, settings string, err error) {
	if u.Permissions == nil {
		u.Permissions = []string{}
	}
	if u.Settings == nil {
		u.Settings = []string{}
	}
	p, err := json.Marshal(u.Permissions)
	if err != nil {
		return "", "", fmt.Errorf("encode permissions failed: %w", err)
	}
	st, err := json.Marshal(u.Settings)
	if err != nil {
		return "", "", fmt.Errorf("encode settings failed: %w", err)
	}
	return string(p), string(st), nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
