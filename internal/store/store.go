package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bancoq/bancoq/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist or the caller does not
// own it. The two cases are deliberately indistinguishable to callers.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		profile_photo TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		statement TEXT NOT NULL,
		kind TEXT NOT NULL,
		author_id INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		education_level TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		image BLOB,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (author_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS options (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		correct INTEGER NOT NULL DEFAULT 0,
		image BLOB,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS chat_state (
		session_id TEXT PRIMARY KEY,
		pending TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// validateOptions enforces the question/option invariant: essay questions
// carry no options, choice questions carry at least one with at least one
// marked correct.
func validateOptions(kind model.QuestionKind, opts []model.Option) error {
	if !kind.HasOptions() {
		if len(opts) > 0 {
			return fmt.Errorf("%s question cannot have options", kind)
		}
		return nil
	}
	if len(opts) == 0 {
		return fmt.Errorf("%s question requires options", kind)
	}
	correct := 0
	for _, o := range opts {
		if strings.TrimSpace(o.Text) == "" {
			return errors.New("option text cannot be empty")
		}
		if o.Correct {
			correct++
		}
	}
	if correct == 0 {
		return errors.New("at least one option must be marked correct")
	}
	return nil
}

// InsertQuestion stores a question and its options as a single transaction.
// Either the question and all options are persisted, or none of them.
func (s *Store) InsertQuestion(q model.Question, opts []model.Option) (int64, error) {
	if !q.Kind.Valid() {
		return 0, fmt.Errorf("invalid question kind %q", q.Kind)
	}
	if err := validateOptions(q.Kind, opts); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO questions (statement, kind, author_id, difficulty, education_level, subject, active, image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		q.Statement, q.Kind, q.AuthorID, q.Difficulty, q.EducationLevel, q.Subject, q.Image, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	questionID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, o := range opts {
		_, err := tx.Exec(
			`INSERT INTO options (question_id, text, correct, image) VALUES (?, ?, ?, ?)`,
			questionID, o.Text, o.Correct, o.Image,
		)
		if err != nil {
			return 0, err
		}
	}

	return questionID, tx.Commit()
}

// GetQuestion returns a question by ID, active or not.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, statement, kind, author_id, difficulty, education_level, subject, active, image, created_at
		 FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.Statement, &q.Kind, &q.AuthorID, &q.Difficulty, &q.EducationLevel, &q.Subject, &q.Active, &q.Image, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return q, ErrNotFound
	}
	return q, err
}

// GetOptions returns the options of a question ordered by ID.
func (s *Store) GetOptions(questionID int64) ([]model.Option, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, text, correct, image FROM options WHERE question_id = ? ORDER BY id`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var opts []model.Option
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Correct, &o.Image); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// SearchActiveByStatement returns active questions whose statement contains
// the term, case-insensitively, newest first, bounded by limit.
func (s *Store) SearchActiveByStatement(term string, limit int) ([]model.QuestionSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, statement, kind, difficulty, education_level FROM questions
		 WHERE active = 1 AND LOWER(statement) LIKE '%' || LOWER(?) || '%'
		 ORDER BY id DESC LIMIT ?`,
		term, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// ListActive returns active questions, newest first. A non-empty search term
// matches statement, difficulty, or education level as a substring.
func (s *Store) ListActive(search string) ([]model.QuestionSummary, error) {
	query := `SELECT id, statement, kind, difficulty, education_level FROM questions WHERE active = 1`
	var args []any
	if search != "" {
		query += ` AND (LOWER(statement) LIKE '%' || LOWER(?) || '%'
			OR LOWER(difficulty) LIKE '%' || LOWER(?) || '%'
			OR LOWER(education_level) LIKE '%' || LOWER(?) || '%')`
		args = append(args, search, search, search)
	}
	query += ` ORDER BY id DESC`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// ListDeleted returns soft-deleted questions, newest first.
func (s *Store) ListDeleted() ([]model.QuestionSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, statement, kind, difficulty, education_level FROM questions WHERE active = 0 ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]model.QuestionSummary, error) {
	var out []model.QuestionSummary
	for rows.Next() {
		var q model.QuestionSummary
		if err := rows.Scan(&q.ID, &q.Statement, &q.Kind, &q.Difficulty, &q.EducationLevel); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpdateQuestion replaces the editable fields and the full option set of an
// author-owned question in one transaction.
func (s *Store) UpdateQuestion(id, authorID int64, statement string, difficulty model.Difficulty, educationLevel string, opts []model.Option) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var kind model.QuestionKind
	var owner int64
	err = tx.QueryRow(`SELECT kind, author_id FROM questions WHERE id = ?`, id).Scan(&kind, &owner)
	if err == sql.ErrNoRows || (err == nil && owner != authorID) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := validateOptions(kind, opts); err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE questions SET statement = ?, difficulty = ?, education_level = ? WHERE id = ?`,
		statement, difficulty, educationLevel, id,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM options WHERE question_id = ?`, id); err != nil {
		return err
	}
	for _, o := range opts {
		_, err := tx.Exec(
			`INSERT INTO options (question_id, text, correct, image) VALUES (?, ?, ?, ?)`,
			id, o.Text, o.Correct, o.Image,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SoftDeleteQuestion moves an author-owned question to the trash.
func (s *Store) SoftDeleteQuestion(id, authorID int64) error {
	return s.setActive(id, authorID, false)
}

// RestoreQuestion brings an author-owned question back from the trash.
func (s *Store) RestoreQuestion(id, authorID int64) error {
	return s.setActive(id, authorID, true)
}

func (s *Store) setActive(id, authorID int64, active bool) error {
	res, err := s.db.Exec(
		`UPDATE questions SET active = ? WHERE id = ? AND author_id = ?`, active, id, authorID,
	)
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

// DeleteQuestionPermanently removes an author-owned question and its options.
func (s *Store) DeleteQuestionPermanently(id, authorID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM questions WHERE id = ? AND author_id = ?`, id, authorID)
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
	if _, err := tx.Exec(`DELETE FROM options WHERE question_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// QuestionCount returns the number of questions, including soft-deleted ones.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}
