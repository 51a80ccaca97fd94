package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"play-llm-server/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// TaskArtifactDelete is the queue task type that removes a stored artifact.
const TaskArtifactDelete = "model.artifact.delete"

// ArtifactStore persists model artifacts under opaque keys.
type ArtifactStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// TaskEnqueuer hands work to the background task queue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any) (string, error)
}

type ModelService struct {
	DB    *gorm.DB
	Store ArtifactStore
	Queue TaskEnqueuer // optional; artifacts are deleted inline without it
}

func NewModelService(db *gorm.DB, store ArtifactStore, queue TaskEnqueuer) *ModelService {
	return &ModelService{DB: db, Store: store, Queue: queue}
}

type CreateModelInput struct {
	Name        string
	Description *string
	// StoragePath references an artifact that lives elsewhere. Ignored when
	// Body is set. Paths inside the artifact namespace are rejected.
	StoragePath string

	Filename    string
	ContentType string
	Body        io.Reader
}

type ArtifactDeletePayload struct {
	Key string `json:"key"`
}

// ArtifactKey builds the store key for a new artifact of userID's model.
func ArtifactKey(userID uint, name, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	base := slug.Make(name)
	if base == "" {
		base = "model"
	}
	return fmt.Sprintf("%s%d/%s-%s%s", artifactPrefix, userID, base, uuid.NewString(), ext)
}

const artifactPrefix = "models/"

// CreateModel registers a model, uploading its artifact first when a body is
// given. A failed insert removes the uploaded artifact again.
func (s *ModelService) CreateModel(ctx context.Context, actor Actor, in CreateModelInput) (*models.Model, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: model name is required", ErrInvalidInput)
	}

	model := &models.Model{
		Name:        name,
		Description: in.Description,
		StoragePath: strings.TrimSpace(in.StoragePath),
		UserID:      actor.UserID,
	}

	if in.Body == nil && strings.HasPrefix(model.StoragePath, artifactPrefix) {
		return nil, fmt.Errorf("%w: storage path %q is reserved for uploads", ErrInvalidInput, model.StoragePath)
	}

	if in.Body != nil {
		if s.Store == nil {
			return nil, errors.New("no artifact store configured")
		}
		key := ArtifactKey(actor.UserID, name, in.Filename)
		if err := s.Store.Put(ctx, key, in.Body, in.ContentType); err != nil {
			return nil, fmt.Errorf("failed to store model artifact: %w", err)
		}
		model.StoragePath = key
		model.Uploaded = true
	}

	if err := s.DB.WithContext(ctx).Create(model).Error; err != nil {
		if model.Uploaded {
			if derr := s.Store.Delete(ctx, model.StoragePath); derr != nil {
				log.Printf("[Models] failed to clean up artifact %s: %v", model.StoragePath, derr)
			}
		}
		return nil, err
	}

	log.Printf("[Models] user %d created model %d (%s)", actor.UserID, model.ID, model.StoragePath)
	s.withURL(model)
	return model, nil
}

func (s *ModelService) ListModels(ctx context.Context, actor Actor, opts ListOptions) ([]models.Model, error) {
	opts = opts.normalized()

	var out []models.Model
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", actor.UserID).
		Order("id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		s.withURL(&out[i])
	}
	return out, nil
}

func (s *ModelService) GetModel(ctx context.Context, actor Actor, modelID uint) (*models.Model, error) {
	var model models.Model
	if err := s.DB.WithContext(ctx).First(&model, modelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !actor.CanManage(model.UserID) {
		return nil, ErrForbidden
	}
	s.withURL(&model)
	return &model, nil
}

// DeleteModel removes the row (cascading to its matches) and schedules the
// artifact for removal.
func (s *ModelService) DeleteModel(ctx context.Context, actor Actor, modelID uint) error {
	model, err := s.GetModel(ctx, actor, modelID)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Model{}, model.ID).Error; err != nil {
		return err
	}

	if !s.ownsArtifact(model) {
		return nil
	}
	if s.Queue != nil {
		_, err := s.Queue.Enqueue(ctx, TaskArtifactDelete, ArtifactDeletePayload{Key: model.StoragePath})
		if err == nil {
			return nil
		}
		log.Printf("[Models] enqueue artifact delete failed, deleting inline: %v", err)
	}
	return s.Store.Delete(ctx, model.StoragePath)
}

// HandleArtifactDelete is the queue handler for TaskArtifactDelete.
func (s *ModelService) HandleArtifactDelete(ctx context.Context, payload json.RawMessage) error {
	var p ArtifactDeletePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode artifact delete payload: %w", err)
	}
	if p.Key == "" {
		return errors.New("artifact delete payload has no key")
	}
	if s.Store == nil {
		return errors.New("no artifact store configured")
	}
	if err := s.Store.Delete(ctx, p.Key); err != nil {
		return fmt.Errorf("delete artifact %s: %w", p.Key, err)
	}
	log.Printf("[Models] deleted artifact %s", p.Key)
	return nil
}

func (s *ModelService) withURL(m *models.Model) {
	if s.ownsArtifact(m) {
		m.ArtifactURL = s.Store.URL(m.StoragePath)
	}
}

func (s *ModelService) ownsArtifact(m *models.Model) bool {
	return s.Store != nil && m.Uploaded
}
