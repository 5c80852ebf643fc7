package user

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/awesomeproject/service/internal/middleware"
	"github.com/awesomeproject/service/internal/response"
	"github.com/awesomeproject/service/internal/storage"
)

const maxAvatarSize = 5 << 20

// Handler holds HTTP handlers for user-related endpoints.
type Handler struct {
	svc   *Service
	media storage.Storage
}

// NewHandler creates a new user Handler. media receives uploaded avatars.
func NewHandler(svc *Service, media storage.Storage) *Handler {
	return &Handler{svc: svc, media: media}
}

type avatarData struct {
	Key       string `json:"key"       example:"avatars/e7eedc79-0707-4fe4-8734-526b7ef13a7b/me.jpg"`
	AvatarURL string `json:"avatarUrl" example:"http://localhost:9000/media/avatars/e7eedc79/me.jpg?X-Amz-Expires=604800"`
}

// GetMe godoc
//
//	@Summary		Get current user
//	@Description	Returns the profile of the currently authenticated user. avatarUrl is a signed URL valid for one week.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=User}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	u, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}

	if u.AvatarKey != nil {
		avatarURL, err := h.media.URL(r.Context(), *u.AvatarKey)
		if err != nil {
			slog.ErrorContext(r.Context(), "avatar url failed", "user", userID, "error", err)
			response.InternalError(w)
			return
		}
		u.AvatarURL = avatarURL
	}

	response.OK(w, u)
}

// UploadAvatar godoc
//
//	@Summary		Upload avatar
//	@Description	Stores an image as the current user's avatar in media storage. Existing files are never overwritten.
//	@Tags			users
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			avatar	formData	file	true	"Image file, at most 5 MiB"
//	@Success		201		{object}	response.Envelope{data=avatarData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/users/me/avatar [post]
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize+1024)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RequestTooLarge(w, "avatar must be at most 5 MiB")
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.BadRequest(w, "avatar file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.BadRequest(w, "avatar must be an image")
		return
	}

	base := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		response.BadRequest(w, "avatar file name is required")
		return
	}

	key, err := h.media.Save(r.Context(), path.Join("avatars", userID, base), file, header.Size, contentType)
	if err != nil {
		slog.ErrorContext(r.Context(), "avatar upload failed", "user", userID, "error", err)
		response.InternalError(w)
		return
	}

	if err := h.svc.SetAvatar(r.Context(), userID, key); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}

	avatarURL, err := h.media.URL(r.Context(), key)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, avatarData{Key: key, AvatarURL: avatarURL})
}
