// Package dal implements the MySQL persistence layer for manuals, chunks and
// query records.
package dal

import (
	"context"
	"errors"
	"fmt"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/ragerr"
	"manualqa/internal/models"

	"gorm.io/gorm"
)

// DocumentDAL persists documents through GORM. Writes that touch more than
// one table run inside a transaction so readers never see partial state.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a DAL over an open GORM handle.
func NewDocumentDAL(db *gorm.DB) *DocumentDAL {
	return &DocumentDAL{db: db}
}

// CreateDocumentWithChunks inserts the document and its full chunk set in one
// transaction. GORM cascades the Chunks association from the document insert.
func (d *DocumentDAL) CreateDocumentWithChunks(ctx context.Context, doc *models.Document) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(doc).Error
	})
	if err != nil {
		return fmt.Errorf("%w: create document %s: %v", ragerr.ErrPersistenceFailed, doc.ID, err)
	}
	return nil
}

// GetDocument loads a document with its chunks in position order, or
// (nil, nil) when it does not exist.
func (d *DocumentDAL) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := d.db.WithContext(ctx).
		Preload("Chunks", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document %s: %v", ragerr.ErrPersistenceFailed, id, err)
	}
	return &doc, nil
}

// ListDocuments returns all documents without chunks, newest upload first.
func (d *DocumentDAL) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	var docs []*models.Document
	err := d.db.WithContext(ctx).
		Order("uploaded_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", ragerr.ErrPersistenceFailed, err)
	}
	return docs, nil
}

// DeleteDocument removes the document together with its chunks, its query
// records and the record-to-chunk join rows.
func (d *DocumentDAL) DeleteDocument(ctx context.Context, id string) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recordIDs []string
		if err := tx.Model(&models.QueryRecord{}).
			Where("document_id = ?", id).
			Pluck("id", &recordIDs).Error; err != nil {
			return err
		}
		if len(recordIDs) > 0 {
			if err := tx.Exec("DELETE FROM query_record_chunks WHERE query_record_id IN ?", recordIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.QueryRecord{}, "id IN ?", recordIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Chunk{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Document{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ragerr.ErrDocumentNotFound
		}
		return nil
	})
	if errors.Is(err, ragerr.ErrDocumentNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: delete document %s: %v", ragerr.ErrPersistenceFailed, id, err)
	}
	return nil
}

// CreateQueryRecord inserts a record and its evidence join rows. The evidence
// chunks already exist, so the association insert is suppressed and only the
// join table is written.
func (d *DocumentDAL) CreateQueryRecord(ctx context.Context, rec *models.QueryRecord) error {
	err := d.db.WithContext(ctx).
		Omit("Evidence.*").
		Create(rec).Error
	if err != nil {
		return fmt.Errorf("%w: create query record for document %s: %v", ragerr.ErrPersistenceFailed, rec.DocumentID, err)
	}
	return nil
}

// AutoMigrate creates or updates the schema for all manual QA tables.
func (d *DocumentDAL) AutoMigrate() error {
	return d.db.AutoMigrate(&models.Document{}, &models.Chunk{}, &models.QueryRecord{})
}

var _ interfaces.DocumentStore = (*DocumentDAL)(nil)
