// Package chat implements the conversational assistant: intent routing and
// the pending-question state machine behind the chat endpoint. One call to
// HandleTurn is one turn; the only state carried across turns is the
// session's pending question, kept in an explicit keyed store.
package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	appi18n "github.com/bancoq/bancoq/internal/i18n"
	"github.com/bancoq/bancoq/internal/llm/prompts"
	"github.com/bancoq/bancoq/internal/model"
)

// PreviewRoute is the route that serves the staged candidate image of the
// session's pending question. CREATE replies embed it when an image was
// staged.
const PreviewRoute = "/chat/pending-image"

const (
	searchLimit         = 10
	statementPreviewLen = 80
	downloadTimeout     = 10 * time.Second
	maxImageBytes       = 5 << 20
)

// Generator produces raw text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageSearcher returns ranked candidate image URLs for a query.
type ImageSearcher interface {
	Search(ctx context.Context, query string) ([]model.ImageCandidate, error)
}

// QuestionStore is the slice of the store the assistant reads and writes.
type QuestionStore interface {
	SearchActiveByStatement(term string, limit int) ([]model.QuestionSummary, error)
	InsertQuestion(q model.Question, opts []model.Option) (int64, error)
}

// PendingStore holds at most one pending question per session.
type PendingStore interface {
	GetPendingQuestion(sessionID string) (*model.PendingQuestion, error)
	SetPendingQuestion(sessionID string, pq *model.PendingQuestion) error
	ClearPendingQuestion(sessionID string) error
}

// Assistant drives one chat turn: classify, branch, reply.
type Assistant struct {
	gen        Generator
	images     ImageSearcher
	store      QuestionStore
	pending    PendingStore
	httpc      *http.Client
	stagingDir string
}

// NewAssistant creates an assistant. images may be nil when image search is
// not configured.
func NewAssistant(gen Generator, images ImageSearcher, store QuestionStore, pending PendingStore, stagingDir string) *Assistant {
	return &Assistant{
		gen:        gen,
		images:     images,
		store:      store,
		pending:    pending,
		httpc:      &http.Client{Timeout: downloadTimeout},
		stagingDir: stagingDir,
	}
}

// HandleTurn processes one utterance and always returns a user-visible
// reply. Unexpected failures are caught here: the pending state is cleared
// defensively and the user sees a single generic failure message.
func (a *Assistant) HandleTurn(ctx context.Context, user *model.User, sessionID, message string) string {
	reply, err := a.handleTurn(ctx, user, sessionID, message)
	if err != nil {
		slog.Error("chat turn failed", "user_id", user.ID, "error", err)
		if cerr := a.pending.ClearPendingQuestion(sessionID); cerr != nil {
			slog.Warn("failed to clear pending question", "error", cerr)
		}
		return appi18n.T(ctx, "ChatGenericFailure")
	}
	return reply
}

func (a *Assistant) handleTurn(ctx context.Context, user *model.User, sessionID, message string) (string, error) {
	pq, err := a.pending.GetPendingQuestion(sessionID)
	if err != nil {
		return "", fmt.Errorf("load pending question: %w", err)
	}

	intent, err := a.classify(ctx, message, pq != nil)
	if err != nil {
		// Classification failures degrade to plain chat, never abort the turn.
		slog.Warn("intent classification failed, falling back to chat", "error", err)
		intent = model.IntentResult{Intent: model.IntentChat}
	}

	switch intent.Intent {
	case model.IntentSearch:
		return a.handleSearch(ctx, intent.Topic)
	case model.IntentCreate:
		return a.handleCreate(ctx, sessionID, intent.Topic)
	case model.IntentInsert:
		return a.handleInsert(ctx, user, sessionID, pq)
	default:
		return a.handleChat(ctx, message), nil
	}
}

func (a *Assistant) handleSearch(ctx context.Context, topic string) (string, error) {
	matches, err := a.store.SearchActiveByStatement(topic, searchLimit)
	if err != nil {
		return "", fmt.Errorf("search questions: %w", err)
	}
	if len(matches) == 0 {
		return appi18n.Td(ctx, "ChatSearchEmpty", map[string]any{"Topic": topic}), nil
	}

	var sb strings.Builder
	sb.WriteString(appi18n.Tdp(ctx, "ChatSearchFound", len(matches), map[string]any{"Topic": topic}))
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("\n#%d: %s", m.ID, truncate(m.Statement, statementPreviewLen)))
	}
	return sb.String(), nil
}

func (a *Assistant) handleCreate(ctx context.Context, sessionID, topic string) (string, error) {
	raw, err := a.gen.Generate(ctx, prompts.QuestionGeneration(topic))
	if err != nil {
		// Pending state stays untouched on any generation failure.
		slog.Warn("question generation failed", "topic", topic, "error", err)
		return appi18n.T(ctx, "ChatCreateFailed"), nil
	}

	pq, err := parseGeneratedQuestion(raw)
	if err != nil {
		slog.Warn("malformed generated question", "topic", topic, "error", err)
		return appi18n.T(ctx, "ChatCreateFailed"), nil
	}
	if pq.Subject == "" {
		pq.Subject = topic
	}

	if path := a.stageImage(ctx, imageQuery(pq, topic)); path != "" {
		pq.ImagePath = path
	}

	if err := a.pending.SetPendingQuestion(sessionID, pq); err != nil {
		return "", fmt.Errorf("save pending question: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(appi18n.T(ctx, "ChatCreateIntro"))
	sb.WriteString("\n\n" + pq.Statement)
	for i, o := range pq.Options {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, o.Text))
	}
	if pq.ImagePath != "" {
		sb.WriteString(fmt.Sprintf("\n\n<img src=%q alt=%q>", PreviewRoute, pq.Subject))
	}
	sb.WriteString("\n\n" + appi18n.T(ctx, "ChatCreateConfirm"))
	return sb.String(), nil
}

// handleInsert persists the pending question. The pending state is cleared
// whether persistence succeeds or fails; a failed insert is not retried.
func (a *Assistant) handleInsert(ctx context.Context, user *model.User, sessionID string, pq *model.PendingQuestion) (string, error) {
	if pq == nil {
		return appi18n.T(ctx, "ChatInsertNothing"), nil
	}

	defer func() {
		if err := a.pending.ClearPendingQuestion(sessionID); err != nil {
			slog.Warn("failed to clear pending question after insert", "error", err)
		}
		if pq.ImagePath != "" {
			_ = os.Remove(pq.ImagePath)
		}
	}()

	q := model.Question{
		Statement:      pq.Statement,
		Kind:           pq.Kind,
		AuthorID:       user.ID,
		Difficulty:     pq.Difficulty,
		EducationLevel: pq.EducationLevel,
		Subject:        pq.Subject,
		Active:         true,
	}
	if pq.ImagePath != "" {
		data, err := os.ReadFile(pq.ImagePath)
		if err != nil {
			slog.Warn("staged image unreadable, inserting without image", "path", pq.ImagePath, "error", err)
		} else {
			q.Image = data
		}
	}

	opts := make([]model.Option, 0, len(pq.Options))
	for _, o := range pq.Options {
		opts = append(opts, model.Option{Text: o.Text, Correct: o.Correct})
	}

	id, err := a.store.InsertQuestion(q, opts)
	if err != nil {
		slog.Error("failed to insert pending question", "user_id", user.ID, "error", err)
		return appi18n.T(ctx, "ChatGenericFailure"), nil
	}
	return appi18n.Td(ctx, "ChatInsertOK", map[string]any{"ID": id}), nil
}

func (a *Assistant) handleChat(ctx context.Context, message string) string {
	raw, err := a.gen.Generate(ctx, prompts.GeneralChat(message))
	if err != nil {
		slog.Warn("chat generation failed", "error", err)
		return appi18n.T(ctx, "ChatGenericFailure")
	}
	return raw
}

// stageImage searches for candidate images and downloads the first one that
// works. Everything here is best-effort: any failure yields an empty path
// and the question proceeds without an image.
func (a *Assistant) stageImage(ctx context.Context, query string) string {
	if a.images == nil || query == "" {
		return ""
	}
	candidates, err := a.images.Search(ctx, query)
	if err != nil {
		slog.Warn("image search failed", "query", query, "error", err)
		return ""
	}
	for _, c := range candidates {
		path, err := a.downloadImage(ctx, c.URL)
		if err != nil {
			slog.Debug("image candidate rejected", "url", c.URL, "error", err)
			continue
		}
		return path
	}
	return ""
}

// downloadImage fetches one candidate URL into the staging directory.
// Only image content within the size cap is accepted.
func (a *Assistant) downloadImage(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("not an image: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	if err := os.MkdirAll(a.stagingDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(a.stagingDir, uuid.NewString()+extensionFor(contentType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".img"
}

func imageQuery(pq *model.PendingQuestion, topic string) string {
	q := strings.TrimSpace(pq.Subject)
	if q == "" {
		q = strings.TrimSpace(topic)
	}
	if q == "" {
		q = truncate(pq.Statement, statementPreviewLen)
	}
	return q
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
