package handler

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appi18n "github.com/bancoq/bancoq/internal/i18n"
	"github.com/bancoq/bancoq/internal/model"
)

const sessionCookieName = "session"

// maxPhotoBytes caps uploaded profile photos.
const maxPhotoBytes = 2 << 20

// requireAuth resolves the session cookie to a user and stores both the user
// and the session token in the request context. Unauthenticated requests get
// a 401 JSON error.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, appi18n.T(r.Context(), "NotAuthenticated"))
			return
		}
		sess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("session lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
			return
		}
		if sess == nil {
			writeError(w, http.StatusUnauthorized, appi18n.T(r.Context(), "NotAuthenticated"))
			return
		}
		user, err := h.store.GetUserByID(sess.UserID)
		if err != nil {
			slog.Error("user lookup failed", "user_id", sess.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, appi18n.T(r.Context(), "NotAuthenticated"))
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		ctx = model.ContextWithSessionToken(ctx, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, appi18n.T(r.Context(), "LoginError"))
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userPayload(user),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := model.SessionTokenFromContext(r.Context())
	if err := h.store.DeleteAuthSession(token); err != nil {
		slog.Warn("failed to delete session", "error", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, userPayload(user))
}

func userPayload(u *model.User) map[string]any {
	return map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"full_name":     u.FullName(),
		"profile_photo": u.ProfilePhoto,
	}
}

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "ProfileFieldsRequired"))
		return
	}

	if err := h.store.UpdateProfile(user.ID, req.FirstName, req.LastName); err != nil {
		slog.Error("failed to update profile", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	writeMessage(w, appi18n.T(r.Context(), "ProfileUpdated"))
}

type passwordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
	Confirm string `json:"confirm_password"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Current == "" || req.New == "" || req.Confirm == "" {
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "PasswordFieldsRequired"))
		return
	}
	if req.New != req.Confirm {
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "PasswordMismatch"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Current)) != nil {
		writeError(w, http.StatusUnauthorized, appi18n.T(r.Context(), "PasswordWrong"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	if err := h.store.UpdatePassword(user.ID, string(hash)); err != nil {
		slog.Error("failed to update password", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	slog.Info("password changed", "user_id", user.ID)
	writeMessage(w, appi18n.T(r.Context(), "PasswordChanged"))
}

// handleUploadPhoto accepts a multipart image upload and stores it as a data
// URL on the user record.
func (h *Handler) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "PhotoMissing"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, appi18n.T(r.Context(), "PhotoMissing"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		slog.Error("failed to read photo", "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	if err := h.store.UpdateProfilePhoto(user.ID, dataURL); err != nil {
		slog.Error("failed to update photo", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "profile_photo": dataURL})
}
