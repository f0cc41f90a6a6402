package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/logger"
)

// DocumentFilter selects which documents a listing returns.
type DocumentFilter string

const (
	DocumentsAll     DocumentFilter = "all"
	DocumentsRecent  DocumentFilter = "recent"
	DocumentsMine    DocumentFilter = "mine"
	DocumentsTeacher DocumentFilter = "teacher"
)

// Document events published on class streams.
const (
	EventDocumentUploaded = "document.uploaded"
	EventDocumentRemoved  = "document.removed"
)

const recentDocumentWindow = 7 * 24 * time.Hour

// UploadDocumentInput describes a document upload.
type UploadDocumentInput struct {
	Name        string
	Description string
	ClassID     string
	File        UploadFile
}

// ListDocumentsInput filters a document listing.
type ListDocumentsInput struct {
	Filter  DocumentFilter
	Query   string
	ClassID string
	Limit   int
}

// DocumentService stores shared documents in object storage.
type DocumentService struct {
	db      *gorm.DB
	uploads *UploadService
	events  *ChangePublisher
	clock   Clock
	log     *zap.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(db *gorm.DB, uploads *UploadService, events *ChangePublisher) (*DocumentService, error) {
	if db == nil {
		return nil, errors.New("document service: db is required")
	}
	if uploads == nil {
		return nil, errors.New("document service: upload service is required")
	}
	return &DocumentService{db: db, uploads: uploads, events: events, clock: systemClock, log: logger.WithModule("documents")}, nil
}

// ParseDocumentFilter maps a query value to a filter. Empty input selects DocumentsAll.
func ParseDocumentFilter(value string) (DocumentFilter, bool) {
	switch DocumentFilter(strings.ToLower(strings.TrimSpace(value))) {
	case "", DocumentsAll:
		return DocumentsAll, true
	case DocumentsRecent:
		return DocumentsRecent, true
	case DocumentsMine:
		return DocumentsMine, true
	case DocumentsTeacher:
		return DocumentsTeacher, true
	}
	return "", false
}

// Upload stores the file and records the document. The stored object is removed when the
// insert fails.
func (s *DocumentService) Upload(ctx context.Context, viewer Viewer, in UploadDocumentInput) (*models.Document, error) {
	ctx = ensureContext(ctx)

	classID := strings.TrimSpace(in.ClassID)
	if classID != "" {
		member, err := isClassMember(ctx, s.db, viewer, classID)
		if err != nil {
			return nil, fmt.Errorf("document service: check membership: %w", err)
		}
		if !member {
			return nil, apperrors.NewForbidden("You are not a member of this class")
		}
	}

	obj, err := s.uploads.Upload(ctx, "documents", in.File)
	if err != nil {
		return nil, err
	}

	document := &models.Document{
		Name:        defaultIfEmpty(strings.TrimSpace(in.Name), in.File.Name),
		Description: strings.TrimSpace(in.Description),
		FileURL:     obj.URL,
		StorageKey:  obj.Key,
		MimeType:    obj.ContentType,
		FileSize:    obj.Size,
		ClassID:     optionalString(classID),
		UploaderID:  viewer.UserID,
	}
	if err := s.db.WithContext(ctx).Create(document).Error; err != nil {
		if cleanupErr := s.uploads.Remove(context.WithoutCancel(ctx), obj); cleanupErr != nil {
			s.log.Warn("orphaned document object", zap.String("key", obj.Key), zap.Error(cleanupErr))
		}
		return nil, fmt.Errorf("document service: create: %w", err)
	}

	if classID != "" {
		s.events.ClassChanged(ctx, classID, realtime.KindDocuments, EventDocumentUploaded, document)
	}
	return document, nil
}

// List returns visible documents matching the filter, newest first. Hidden documents are only
// listed for their uploader.
func (s *DocumentService) List(ctx context.Context, viewer Viewer, in ListDocumentsInput) ([]models.Document, error) {
	ctx = ensureContext(ctx)

	classIDs, err := memberClassIDs(ctx, s.db, viewer)
	if err != nil {
		return nil, fmt.Errorf("document service: resolve classes: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&models.Document{}).Preload("Uploader").Preload("Class")

	visible := s.db.Session(&gorm.Session{NewDB: true}).
		Where("documents.class_id IS NULL").
		Or("documents.uploader_id = ?", viewer.UserID)
	if len(classIDs) > 0 {
		visible = visible.Or("documents.class_id IN ?", classIDs)
	}
	if viewer.Role != models.RoleAdmin {
		query = query.Where(visible)
	}
	query = query.Where(s.db.Session(&gorm.Session{NewDB: true}).
		Where("documents.is_hidden = ?", false).
		Or("documents.uploader_id = ?", viewer.UserID))

	switch in.Filter {
	case DocumentsRecent:
		query = query.Where("documents.created_at >= ?", s.clock().Add(-recentDocumentWindow))
	case DocumentsMine:
		query = query.Where("documents.uploader_id = ?", viewer.UserID)
	case DocumentsTeacher:
		teachers := s.db.Model(&models.User{}).Select("id").Where("role IN ?", []models.Role{models.RoleTeacher, models.RoleAdmin})
		query = query.Where("documents.uploader_id IN (?)", teachers)
	}

	if classID := strings.TrimSpace(in.ClassID); classID != "" {
		query = query.Where("documents.class_id = ?", classID)
	}
	if term := strings.ToLower(strings.TrimSpace(in.Query)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(documents.name) LIKE ? OR LOWER(documents.description) LIKE ?", like, like)
	}

	var rows []models.Document
	if err := query.Order("documents.created_at DESC").
		Limit(clampLimit(in.Limit, 50, 200)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("document service: list: %w", err)
	}
	return rows, nil
}

// SetHidden hides or reveals a document owned by the viewer.
func (s *DocumentService) SetHidden(ctx context.Context, viewer Viewer, id string, hidden bool) (*models.Document, error) {
	ctx = ensureContext(ctx)
	document, err := s.owned(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(document).Update("is_hidden", hidden).Error; err != nil {
		return nil, fmt.Errorf("document service: update visibility: %w", err)
	}
	document.IsHidden = hidden

	if classID := derefString(document.ClassID); classID != "" {
		s.events.ClassChanged(ctx, classID, realtime.KindDocuments, EventDocumentUploaded, document)
	}
	return document, nil
}

// Delete removes the document row and its stored object.
func (s *DocumentService) Delete(ctx context.Context, viewer Viewer, id string) error {
	ctx = ensureContext(ctx)
	document, err := s.owned(ctx, viewer, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(document).Error; err != nil {
		return fmt.Errorf("document service: delete: %w", err)
	}
	if err := s.uploads.RemoveKeys(ctx, document.StorageKey); err != nil {
		s.log.Warn("document object not removed", zap.String("key", document.StorageKey), zap.Error(err))
	}

	if classID := derefString(document.ClassID); classID != "" {
		s.events.ClassChanged(ctx, classID, realtime.KindDocuments, EventDocumentRemoved, map[string]string{"id": document.ID})
	}
	return nil
}

func (s *DocumentService) owned(ctx context.Context, viewer Viewer, id string) (*models.Document, error) {
	var document models.Document
	if err := s.db.WithContext(ctx).Take(&document, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, notFoundOr(err, "Document not found")
	}
	if document.UploaderID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return nil, apperrors.NewForbidden("You can only manage your own documents")
	}
	return &document, nil
}
