package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/lms/internal/common"
	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/dmitrijs2005/lms/internal/server/models"
	"github.com/dmitrijs2005/lms/internal/server/repositories/repomanager"
)

// MediaStore is the object storage used for content media.
type MediaStore interface {
	Put(ctx context.Context, kind, filename, contentType string, body io.Reader, size int64) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// MediaUpload is one uploaded file of a content form.
type MediaUpload struct {
	Kind        string
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

// ContentInput carries the fields of a create or update request. Media
// holds only the files actually uploaded.
type ContentInput struct {
	Title       string
	Topic       string
	Description string
	Media       []MediaUpload
}

type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       MediaStore
	logger      logging.Logger
}

func NewContentService(db *sql.DB, m repomanager.RepositoryManager, store MediaStore, logger logging.Logger) *ContentService {
	return &ContentService{
		db:          db,
		repomanager: m,
		store:       store,
		logger:      logger.With("component", "content_service"),
	}
}

// Create stores the uploaded media and inserts the content row. If the
// insert fails the freshly stored media is removed again.
func (s *ContentService) Create(ctx context.Context, createdBy string, in ContentInput) (*models.Content, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c := &models.Content{
		Title:       strings.TrimSpace(in.Title),
		Topic:       strings.TrimSpace(in.Topic),
		Description: in.Description,
		CreatedBy:   createdBy,
	}
	stored, err := s.storeMedia(ctx, c, in.Media)
	if err != nil {
		return nil, err
	}

	created, err := s.repomanager.Contents(s.db).Create(ctx, c)
	if err != nil {
		s.removeMedia(ctx, stored)
		return nil, fmt.Errorf("error creating content: %w", err)
	}
	s.logger.Info(ctx, "content created", "id", created.ID, "created_by", createdBy, "media", len(stored))
	return created, nil
}

// Get returns a content item or common.ErrorNotFound.
func (s *ContentService) Get(ctx context.Context, id int64) (*models.Content, error) {
	return s.repomanager.Contents(s.db).Get(ctx, id)
}

// List returns every content item, newest first.
func (s *ContentService) List(ctx context.Context) ([]*models.Content, error) {
	items, err := s.repomanager.Contents(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing contents: %w", err)
	}
	return items, nil
}

// ListPublic returns the public catalogue, at most limit items when limit > 0.
func (s *ContentService) ListPublic(ctx context.Context, limit int) ([]*models.Content, error) {
	items, err := s.repomanager.Contents(s.db).ListPublic(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing public contents: %w", err)
	}
	return items, nil
}

// Update replaces the text fields of a content item and any media kind for
// which a new file was uploaded. Media that was not re-uploaded is kept.
func (s *ContentService) Update(ctx context.Context, id int64, in ContentInput) (*models.Content, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Contents(s.db)
	c, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := *c

	c.Title = strings.TrimSpace(in.Title)
	c.Topic = strings.TrimSpace(in.Topic)
	c.Description = in.Description

	stored, err := s.storeMedia(ctx, c, in.Media)
	if err != nil {
		return nil, err
	}

	if err := repo.Update(ctx, c); err != nil {
		s.removeMedia(ctx, stored)
		return nil, err
	}

	var replaced []string
	for _, k := range previous.MediaKeys() {
		if k != c.Image && k != c.Audio && k != c.Video {
			replaced = append(replaced, k)
		}
	}
	s.removeMedia(ctx, replaced)
	s.logger.Info(ctx, "content updated", "id", id, "replaced_media", len(replaced))
	return c, nil
}

// Delete removes a content item and, best effort, its stored media.
func (s *ContentService) Delete(ctx context.Context, id int64) error {
	repo := s.repomanager.Contents(s.db)
	c, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeMedia(ctx, c.MediaKeys())
	s.logger.Info(ctx, "content deleted", "id", id)
	return nil
}

// MediaURL returns a short-lived download URL for a stored media key.
func (s *ContentService) MediaURL(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, "contents/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid media key", common.ErrorValidation)
	}
	url, err := s.store.PresignGet(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "presign failed", "key", key, "error", err)
		return "", common.ErrorInternal
	}
	return url, nil
}

func (in ContentInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	if strings.TrimSpace(in.Topic) == "" {
		return fmt.Errorf("%w: topic is required", common.ErrorValidation)
	}
	for _, m := range in.Media {
		switch m.Kind {
		case models.MediaImage, models.MediaAudio, models.MediaVideo:
		default:
			return fmt.Errorf("%w: unknown media kind %q", common.ErrorValidation, m.Kind)
		}
	}
	return nil
}

// storeMedia uploads every file and points the matching field of c at it.
// On failure everything stored so far is removed.
func (s *ContentService) storeMedia(ctx context.Context, c *models.Content, media []MediaUpload) ([]string, error) {
	var stored []string
	for _, m := range media {
		key, err := s.store.Put(ctx, m.Kind, m.Filename, m.ContentType, m.Body, m.Size)
		if err != nil {
			s.removeMedia(ctx, stored)
			return nil, fmt.Errorf("error storing %s: %w", m.Kind, err)
		}
		stored = append(stored, key)

		switch m.Kind {
		case models.MediaImage:
			c.Image = key
		case models.MediaAudio:
			c.Audio = key
		case models.MediaVideo:
			c.Video = key
		}
	}
	return stored, nil
}

func (s *ContentService) removeMedia(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.logger.Warn(ctx, "media cleanup failed", "key", k, "error", err)
		}
	}
}
