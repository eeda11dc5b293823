package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/bancoq/bancoq/internal/model"
)

// CreateUser inserts a new user.
func (s *Store) CreateUser(u model.User) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (email, first_name, last_name, password_hash, profile_photo, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, u.ProfilePhoto, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "email", u.Email)
	return id, nil
}

// GetUserByEmail returns a user by email, or nil when no such user exists.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	return s.getUser(`SELECT id, email, first_name, last_name, password_hash, profile_photo, created_at
		FROM users WHERE email = ?`, email)
}

// GetUserByID returns a user by ID, or nil when no such user exists.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return s.getUser(`SELECT id, email, first_name, last_name, password_hash, profile_photo, created_at
		FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(query string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(query, arg).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.ProfilePhoto, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile sets the user's first and last name.
func (s *Store) UpdateProfile(id int64, firstName, lastName string) error {
	return s.updateUser(`UPDATE users SET first_name = ?, last_name = ? WHERE id = ?`, firstName, lastName, id)
}

// UpdatePassword replaces the user's password hash.
func (s *Store) UpdatePassword(id int64, passwordHash string) error {
	return s.updateUser(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
}

// UpdateProfilePhoto replaces the user's profile photo data URL.
func (s *Store) UpdateProfilePhoto(id int64, photo string) error {
	return s.updateUser(`UPDATE users SET profile_photo = ? WHERE id = ?`, photo, id)
}

func (s *Store) updateUser(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
