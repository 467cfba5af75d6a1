package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoice-assistant/internal/blob"
	"github.com/rezonia/invoice-assistant/internal/model"
)

// AvatarUploader stores a profile image and returns its public URL
type AvatarUploader interface {
	Upload(ctx context.Context, userID, filename, contentType string, r io.Reader, size int64) (string, error)
}

// loadProfile returns the stored profile, or an empty one for a new user
func (s *Server) loadProfile(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := s.repo.GetProfile(ctx, id)
	if errors.Is(err, model.ErrProfileNotFound) {
		return &model.Profile{ID: id}, nil
	}
	return profile, err
}

func (s *Server) handleGetProfile(c *gin.Context) {
	profile, err := s.loadProfile(c.Request.Context(), creator(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, model.NewValidationError("body", nil, "binding", err.Error()))
		return
	}

	profile, err := s.repo.UpsertProfile(c.Request.Context(), model.Profile{
		ID:       creator(c),
		Name:     req.Name,
		Company:  req.Company,
		Phone:    req.Phone,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleUploadAvatar(c *gin.Context) {
	if s.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "avatar storage is not configured"})
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		s.respondError(c, model.NewValidationError("avatar", nil, "required", "multipart field avatar is required"))
		return
	}
	if file.Size <= 0 || file.Size > blob.MaxAvatarSize {
		s.respondError(c, model.NewValidationError("avatar", file.Size, "max", fmt.Sprintf("must be between 1 byte and %d bytes", blob.MaxAvatarSize)))
		return
	}

	f, err := file.Open()
	if err != nil {
		s.respondError(c, fmt.Errorf("open avatar upload: %w", err))
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	userID := creator(c)
	url, err := s.avatars.Upload(ctx, userID, file.Filename, file.Header.Get("Content-Type"), f, file.Size)
	if err != nil {
		s.respondError(c, fmt.Errorf("upload avatar: %w", err))
		return
	}

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	profile.ImageURL = url
	saved, err := s.repo.UpsertProfile(ctx, *profile)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
