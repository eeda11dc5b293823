package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bancoq/bancoq/internal/chat"
	"github.com/bancoq/bancoq/internal/export"
	appi18n "github.com/bancoq/bancoq/internal/i18n"
	"github.com/bancoq/bancoq/internal/model"
	"github.com/bancoq/bancoq/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	assistant *chat.Assistant
	config    model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, assistant *chat.Assistant, cfg model.AppConfig) *Handler {
	return &Handler{store: s, assistant: assistant, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Post("/profile", h.handleUpdateProfile)
		r.Post("/password", h.handleChangePassword)
		r.Post("/profile/photo", h.handleUploadPhoto)

		r.Get("/questions", h.handleListQuestions)
		r.Get("/questions/search", h.handleSearchQuestions)
		r.Post("/questions", h.handleCreateQuestion)
		r.Post("/questions/export", h.handleExport)
		r.Get("/questions/{questionID}", h.handleGetQuestion)
		r.Post("/questions/{questionID}", h.handleEditQuestion)
		r.Post("/questions/{questionID}/delete", h.handleDeleteQuestion)
		r.Post("/questions/{questionID}/restore", h.handleRestoreQuestion)
		r.Post("/questions/{questionID}/purge", h.handlePurgeQuestion)
		r.Get("/trash", h.handleTrash)

		r.Post("/chat", h.handleChat)
		r.Get(chat.PreviewRoute, h.handlePendingImage)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
}

func questionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
}

type optionRequest struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
	Image   string `json:"image,omitempty"` // base64, optional
}

type questionRequest struct {
	Statement      string          `json:"statement"`
	Kind           string          `json:"kind"`
	Difficulty     string          `json:"difficulty"`
	EducationLevel string          `json:"education_level"`
	Subject        string          `json:"subject"`
	Image          string          `json:"image,omitempty"` // base64, optional
	Options        []optionRequest `json:"options"`
}

func decodeOptions(reqs []optionRequest) ([]model.Option, error) {
	var opts []model.Option
	for _, o := range reqs {
		opt := model.Option{Text: o.Text, Correct: o.Correct}
		if o.Image != "" {
			data, err := base64.StdEncoding.DecodeString(o.Image)
			if err != nil {
				return nil, fmt.Errorf("decode option image: %w", err)
			}
			opt.Image = data
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListActive(r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("list questions", "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	if questions == nil {
		questions = []model.QuestionSummary{}
	}
	writeJSON(w, http.StatusOK, questions)
}

// handleSearchQuestions is the typeahead search: bounded, statement-first.
func (h *Handler) handleSearchQuestions(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if len(term) < 2 {
		writeJSON(w, http.StatusOK, []model.QuestionSummary{})
		return
	}
	questions, err := h.store.SearchActiveByStatement(term, 10)
	if err != nil {
		slog.Error("search questions", "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	if questions == nil {
		questions = []model.QuestionSummary{}
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := questionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question ID")
		return
	}
	q, err := h.store.GetQuestion(id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, appi18n.T(r.Context(), "QuestionNotFound"))
		return
	}
	if err != nil {
		slog.Error("get question", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}

	resp := map[string]any{
		"id":              q.ID,
		"statement":       q.Statement,
		"kind":            q.Kind,
		"author_id":       q.AuthorID,
		"difficulty":      q.Difficulty,
		"education_level": q.EducationLevel,
		"subject":         q.Subject,
		"has_image":       len(q.Image) > 0,
	}
	if q.Kind.HasOptions() {
		opts, err := h.store.GetOptions(id)
		if err != nil {
			slog.Error("get options", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
			return
		}
		if opts == nil {
			opts = []model.Option{}
		}
		resp["options"] = opts
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Statement == "" || req.Kind == "" || req.Difficulty == "" {
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "QuestionFieldsRequired"))
		return
	}

	q := model.Question{
		Statement:      req.Statement,
		Kind:           model.QuestionKind(req.Kind),
		AuthorID:       user.ID,
		Difficulty:     model.Difficulty(req.Difficulty),
		EducationLevel: req.EducationLevel,
		Subject:        req.Subject,
		Active:         true,
	}
	if req.Image != "" {
		data, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid image data")
			return
		}
		q.Image = data
	}

	opts, err := decodeOptions(req.Options)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.InsertQuestion(q, opts)
	if err != nil {
		slog.Error("create question", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"id":      id,
		"message": appi18n.T(r.Context(), "QuestionCreated"),
	})
}

func (h *Handler) handleEditQuestion(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id, err := questionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question ID")
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Statement == "" || req.Difficulty == "" {
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "QuestionFieldsRequired"))
		return
	}

	opts, err := decodeOptions(req.Options)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.store.UpdateQuestion(id, user.ID, req.Statement, model.Difficulty(req.Difficulty), req.EducationLevel, opts)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, appi18n.T(r.Context(), "QuestionNotFound"))
		return
	}
	if err != nil {
		slog.Error("edit question", "id", id, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeMessage(w, appi18n.T(r.Context(), "QuestionUpdated"))
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	h.handleQuestionAction(w, r, h.store.SoftDeleteQuestion, "QuestionTrashed")
}

func (h *Handler) handleRestoreQuestion(w http.ResponseWriter, r *http.Request) {
	h.handleQuestionAction(w, r, h.store.RestoreQuestion, "QuestionRestored")
}

func (h *Handler) handlePurgeQuestion(w http.ResponseWriter, r *http.Request) {
	h.handleQuestionAction(w, r, h.store.DeleteQuestionPermanently, "QuestionPurged")
}

func (h *Handler) handleQuestionAction(w http.ResponseWriter, r *http.Request, action func(id, authorID int64) error, okMsgID string) {
	user := model.UserFromContext(r.Context())
	id, err := questionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question ID")
		return
	}
	err = action(id, user.ID)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, appi18n.T(r.Context(), "QuestionNotFound"))
		return
	}
	if err != nil {
		slog.Error("question action failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	writeMessage(w, appi18n.T(r.Context(), okMsgID))
}

func (h *Handler) handleTrash(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListDeleted()
	if err != nil {
		slog.Error("list trash", "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	if questions == nil {
		questions = []model.QuestionSummary{}
	}
	writeJSON(w, http.StatusOK, questions)
}

type exportRequest struct {
	IDs    []int64 `json:"ids"`
	Format string  `json:"format"`
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 || req.Format == "" {
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "ExportBadRequest"))
		return
	}

	questions, err := h.store.ExportQuestions(req.IDs, user.ID)
	if err != nil {
		slog.Error("export questions", "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}

	data, contentType, err := export.Render(req.Format, questions)
	if err != nil {
		slog.Warn("export render failed", "format", req.Format, "error", err)
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "ExportBadFormat"))
		return
	}

	filename := fmt.Sprintf("questoes_%s.%s", time.Now().Format("20060102_150405"), req.Format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment;filename="+filename)
	if _, err := w.Write(data); err != nil {
		slog.Error("write export", "error", err)
	}
}
