package model

import (
	"context"
	"strings"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	ProfilePhoto string // data URL, empty when unset
	CreatedAt    time.Time
}

// FullName returns the display name composed from first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type sessionTokenCtxKey struct{}

// ContextWithSessionToken stores the auth session token in context.
func ContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenCtxKey{}, token)
}

// SessionTokenFromContext retrieves the auth session token from context.
func SessionTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(sessionTokenCtxKey{}).(string)
	return t
}

// QuestionKind represents the answer format of a question.
type QuestionKind string

const (
	KindSingleChoice   QuestionKind = "single_choice"
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindEssay          QuestionKind = "essay"
)

// HasOptions reports whether questions of this kind carry answer options.
func (k QuestionKind) HasOptions() bool {
	return k == KindSingleChoice || k == KindMultipleChoice
}

// Valid reports whether the kind is one of the known values.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindSingleChoice, KindMultipleChoice, KindEssay:
		return true
	}
	return false
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
)

// Valid reports whether the difficulty is one of the known values.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyVeryHard:
		return true
	}
	return false
}

// Question represents a stored exam question.
type Question struct {
	ID             int64        `json:"id"`
	Statement      string       `json:"statement"`
	Kind           QuestionKind `json:"kind"`
	AuthorID       int64        `json:"author_id"`
	Difficulty     Difficulty   `json:"difficulty"`
	EducationLevel string       `json:"education_level"`
	Subject        string       `json:"subject"`
	Active         bool         `json:"active"`
	Image          []byte       `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Option is one answer choice belonging to a question.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
	Image      []byte `json:"-"`
}

// QuestionSummary is the listing/search projection of a question.
type QuestionSummary struct {
	ID             int64        `json:"id"`
	Statement      string       `json:"statement"`
	Kind           QuestionKind `json:"kind"`
	Difficulty     Difficulty   `json:"difficulty"`
	EducationLevel string       `json:"education_level"`
}

// PendingOption is one answer choice of a not-yet-persisted question.
type PendingOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// PendingQuestion is a generated question candidate held in session state
// until the user confirms insertion or the session ends. At most one exists
// per session; a new generation overwrites it wholesale.
type PendingQuestion struct {
	Statement      string          `json:"statement"`
	Kind           QuestionKind    `json:"kind"`
	Difficulty     Difficulty      `json:"difficulty"`
	EducationLevel string          `json:"education_level"`
	Subject        string          `json:"subject"`
	Options        []PendingOption `json:"options"`
	ImagePath      string          `json:"image_path,omitempty"`
}

// ImageCandidate is one ranked result from the image search service.
type ImageCandidate struct {
	URL string `json:"url"`
}

// Intent is the classified purpose of one chat utterance.
type Intent string

const (
	IntentSearch Intent = "search"
	IntentCreate Intent = "create"
	IntentInsert Intent = "insert"
	IntentChat   Intent = "chat"
)

// IntentResult is the classifier output for one utterance.
type IntentResult struct {
	Intent Intent
	Topic  string
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	StagingDir    string // Directory for downloaded candidate images
}
