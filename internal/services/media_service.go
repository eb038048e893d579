package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	console "marketplace/internal/utils/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var mediaLog = console.New("MEDIA")

const defaultURLTTL = time.Hour

// Upload is a validated file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

type MediaService struct {
	storage Storage
}

func NewMediaService(storage Storage) *MediaService {
	return &MediaService{storage: storage}
}

func objectKey(kind models.OwnerKind, ownerID string, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s/%s%s", kind, ownerID, uuid.New().String(), ext)
}

// Attach uploads up and records it against owner inside tx. The object key
// is appended to staged so the caller can purge it if tx rolls back.
func (m *MediaService) Attach(ctx context.Context, tx *gorm.DB, owner models.MediaOwner, collection models.Collection, up Upload, staged *[]string) (*models.Media, error) {
	kind, ownerID := owner.MediaOwner()
	if !kind.Valid() || ownerID == "" {
		return nil, apperr.NewBadRequest("Invalid media owner")
	}

	key := objectKey(kind, ownerID, up.FileName)
	if err := m.storage.Upload(ctx, key, up.Data, up.ContentType); err != nil {
		return nil, apperr.Wrap(err, "Failed to store file")
	}
	if staged != nil {
		*staged = append(*staged, key)
	}

	media := &models.Media{
		OwnerKind:  kind,
		OwnerID:    ownerID,
		Collection: collection,
		FileName:   filepath.Base(up.FileName),
		Path:       key,
		MimeType:   up.ContentType,
		Size:       int64(len(up.Data)),
	}
	if err := tx.WithContext(ctx).Create(media).Error; err != nil {
		return nil, err
	}
	if url, err := m.storage.GetSignedURL(ctx, key, defaultURLTTL); err == nil {
		media.URL = url
	}
	return media, nil
}

// Replace detaches every item of collection and attaches up in its place.
// Keys of the replaced objects are returned for Purge after commit.
func (m *MediaService) Replace(ctx context.Context, tx *gorm.DB, owner models.MediaOwner, collection models.Collection, up Upload, staged *[]string) (*models.Media, []string, error) {
	old, err := m.DetachAll(ctx, tx, owner, collection)
	if err != nil {
		return nil, nil, err
	}
	media, err := m.Attach(ctx, tx, owner, collection, up, staged)
	if err != nil {
		return nil, nil, err
	}
	return media, old, nil
}

// Detach removes one media row of owner. It is NotFound when the row belongs
// to someone else.
func (m *MediaService) Detach(ctx context.Context, tx *gorm.DB, owner models.MediaOwner, mediaID string) ([]string, error) {
	kind, ownerID := owner.MediaOwner()
	var media models.Media
	if err := tx.WithContext(ctx).
		Where("id = ? AND owner_kind = ? AND owner_id = ?", mediaID, kind, ownerID).
		First(&media).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("Image not found")
		}
		return nil, err
	}
	if err := tx.WithContext(ctx).Unscoped().Delete(&media).Error; err != nil {
		return nil, err
	}
	return []string{media.Path}, nil
}

// DetachAll removes the media rows of owner, limited to collections when given.
func (m *MediaService) DetachAll(ctx context.Context, tx *gorm.DB, owner models.MediaOwner, collections ...models.Collection) ([]string, error) {
	kind, ownerID := owner.MediaOwner()
	q := tx.WithContext(ctx).Where("owner_kind = ? AND owner_id = ?", kind, ownerID)
	if len(collections) > 0 {
		q = q.Where("collection IN ?", collections)
	}

	var items []models.Media
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Path)
		ids = append(ids, it.ID)
	}
	if err := tx.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&models.Media{}).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// Purge deletes stored objects best-effort.
func (m *MediaService) Purge(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := m.storage.Delete(ctx, key); err != nil {
			mediaLog.Warn("Failed to delete object %s: %v", key, err)
		}
	}
}

// List returns the media of owner in one collection, oldest first.
func (m *MediaService) List(ctx context.Context, db *gorm.DB, owner models.MediaOwner, collection models.Collection) ([]models.Media, error) {
	kind, ownerID := owner.MediaOwner()
	items := []models.Media{}
	err := db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ? AND collection = ?", kind, ownerID, collection).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// First returns the newest media item of a collection, nil when empty.
func (m *MediaService) First(ctx context.Context, db *gorm.DB, owner models.MediaOwner, collection models.Collection) (*models.Media, error) {
	kind, ownerID := owner.MediaOwner()
	var items []models.Media
	if err := db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ? AND collection = ?", kind, ownerID, collection).
		Order("created_at DESC").
		Limit(1).
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// ByOwner loads one collection for many owners of the same kind.
func (m *MediaService) ByOwner(ctx context.Context, db *gorm.DB, kind models.OwnerKind, ownerIDs []string, collection models.Collection) (map[string][]models.Media, error) {
	out := make(map[string][]models.Media, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	var items []models.Media
	if err := db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id IN ? AND collection = ?", kind, ownerIDs, collection).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.OwnerID] = append(out[it.OwnerID], it)
	}
	return out, nil
}
