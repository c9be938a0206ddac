package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lexforge/TermForge-Intelligence/internal/domain/document"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

const documentColumns = `id, filename, content_type, language, status, size_bytes,
	page_count, object_key, failure_reason, processed_at, stats,
	created_at, updated_at, version`

// DocumentRepository is the PostgreSQL implementation of document.Repository.
type DocumentRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewDocumentRepository constructs a ready-to-use DocumentRepository.
func NewDocumentRepository(db *sql.DB, logger logging.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

var _ document.Repository = (*DocumentRepository)(nil)

// Save persists a new document record.
func (r *DocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	r.logger.Debug("DocumentRepository.Save", logging.String("document_id", string(doc.ID)))

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.BaseEntity.Version == 0 {
		doc.BaseEntity.Version = 1
	}

	stats, err := marshalStats(doc.Stats)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (
			id, filename, content_type, language, status, size_bytes,
			page_count, object_key, failure_reason, processed_at, stats,
			created_at, updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		doc.ID, doc.Filename, doc.ContentType, doc.Language, string(doc.Status),
		doc.SizeBytes, doc.PageCount, nullString(doc.ObjectKey),
		nullString(doc.FailureReason), doc.ProcessedAt, stats,
		doc.CreatedAt, doc.UpdatedAt, doc.BaseEntity.Version,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert document")
	}
	return nil
}

// Update modifies an existing record with optimistic locking on Version.
func (r *DocumentRepository) Update(ctx context.Context, doc *document.Document) error {
	r.logger.Debug("DocumentRepository.Update",
		logging.String("document_id", string(doc.ID)),
		logging.String("status", string(doc.Status)))

	stats, err := marshalStats(doc.Stats)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE documents SET
			status = $1, page_count = $2, object_key = $3, failure_reason = $4,
			processed_at = $5, stats = $6, updated_at = $7, version = version + 1
		WHERE id = $8 AND version = $9`,
		string(doc.Status), doc.PageCount, nullString(doc.ObjectKey),
		nullString(doc.FailureReason), doc.ProcessedAt, stats,
		time.Now().UTC(), doc.ID, doc.BaseEntity.Version,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update document")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read update result")
	}
	if affected == 0 {
		return errors.New(errors.ErrCodeDocumentNotFound, "document not found or version conflict").
			WithDetail(string(doc.ID))
	}
	doc.BaseEntity.Version++
	return nil
}

// FindByID retrieves a document by its identifier.
func (r *DocumentRepository) FindByID(ctx context.Context, id common.ID) (*document.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeDocumentNotFound, "document not found").
			WithDetail(string(id))
	}
	return doc, err
}

// List returns a page of documents matching the request, newest first.
func (r *DocumentRepository) List(ctx context.Context, req dtypes.DocumentListRequest) (*dtypes.DocumentListResponse, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if req.Status != nil {
		args = append(args, string(*req.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if req.Language != nil {
		args = append(args, *req.Language)
		where = append(where, fmt.Sprintf("language = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count documents")
	}

	page := req.Pagination.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.Pagination.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE `+whereClause+
			fmt.Sprintf(` ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`,
				len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list documents")
	}
	defer rows.Close()

	items := []dtypes.DocumentDTO{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, doc.ToDTO())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate documents")
	}

	resp := common.NewPageResponse(items, total, page, pageSize)
	return &resp, nil
}

// Delete removes a document record by ID.
func (r *DocumentRepository) Delete(ctx context.Context, id common.ID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete document")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read delete result")
	}
	if affected == 0 {
		return errors.New(errors.ErrCodeDocumentNotFound, "document not found").
			WithDetail(string(id))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row mapping
// ─────────────────────────────────────────────────────────────────────────────

func marshalStats(stats *dtypes.ExtractionStats) (interface{}, error) {
	if stats == nil {
		return nil, nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to serialize extraction stats")
	}
	return data, nil
}

func scanDocument(row scanner) (*document.Document, error) {
	var (
		dto           dtypes.DocumentDTO
		status        string
		objectKey     sql.NullString
		failureReason sql.NullString
		statsJSON     []byte
	)
	err := row.Scan(
		&dto.ID, &dto.Filename, &dto.ContentType, &dto.Language, &status,
		&dto.SizeBytes, &dto.PageCount, &objectKey, &failureReason,
		&dto.ProcessedAt, &statsJSON,
		&dto.CreatedAt, &dto.UpdatedAt, &dto.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan document")
	}

	dto.Status = dtypes.DocumentStatus(status)
	dto.ObjectKey = objectKey.String
	dto.FailureReason = failureReason.String
	if len(statsJSON) > 0 {
		stats := dtypes.ExtractionStats{}
		if err := json.Unmarshal(statsJSON, &stats); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt stats column")
		}
		dto.Stats = &stats
	}

	return document.FromDTO(dto), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
