// Package repositories contains the PostgreSQL implementations of the
// platform's domain repository interfaces.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lexforge/TermForge-Intelligence/internal/domain/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// entryColumns is the canonical column list shared by every entry query.
const entryColumns = `id, term, normalized, language, frequency, pages, contexts,
	confidence, method, definitions, document_ids, created_at, updated_at, version`

// GlossaryRepository is the PostgreSQL implementation of
// glossary.EntryRepository.
type GlossaryRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewGlossaryRepository constructs a ready-to-use GlossaryRepository.
func NewGlossaryRepository(db *sql.DB, logger logging.Logger) *GlossaryRepository {
	return &GlossaryRepository{db: db, logger: logger}
}

var _ glossary.EntryRepository = (*GlossaryRepository)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Save / Update
// ─────────────────────────────────────────────────────────────────────────────

// Save persists a new entry. The (normalized, language) unique constraint
// turns concurrent duplicate inserts into a conflict the caller can retry as
// a merge.
func (r *GlossaryRepository) Save(ctx context.Context, entry *glossary.Entry) error {
	r.logger.Debug("GlossaryRepository.Save", logging.String("term", entry.Normalized))

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	if entry.BaseEntity.Version == 0 {
		entry.BaseEntity.Version = 1
	}

	pages, contexts, defs, docs, err := marshalEntryJSON(entry)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO glossary_entries (
			id, term, normalized, language, frequency, pages, contexts,
			confidence, method, definitions, document_ids,
			created_at, updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		entry.ID, entry.Term, entry.Normalized, entry.Language, entry.Frequency,
		pages, contexts, entry.Confidence, string(entry.Method), defs, docs,
		entry.CreatedAt, entry.UpdatedAt, entry.BaseEntity.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(err, errors.ErrCodeTermAlreadyExists, "glossary entry already exists").
				WithDetail(entry.Normalized + "/" + entry.Language)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert glossary entry")
	}
	return nil
}

// Update modifies an existing entry with optimistic locking on Version.
func (r *GlossaryRepository) Update(ctx context.Context, entry *glossary.Entry) error {
	r.logger.Debug("GlossaryRepository.Update", logging.String("term", entry.Normalized))

	pages, contexts, defs, docs, err := marshalEntryJSON(entry)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE glossary_entries SET
			term = $1, frequency = $2, pages = $3, contexts = $4,
			confidence = $5, method = $6, definitions = $7, document_ids = $8,
			updated_at = $9, version = version + 1
		WHERE id = $10 AND version = $11`,
		entry.Term, entry.Frequency, pages, contexts,
		entry.Confidence, string(entry.Method), defs, docs,
		time.Now().UTC(), entry.ID, entry.BaseEntity.Version,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update glossary entry")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read update result")
	}
	if affected == 0 {
		return errors.New(errors.ErrCodeTermNotFound, "glossary entry not found or version conflict").
			WithDetail(string(entry.ID))
	}
	entry.BaseEntity.Version++
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

// FindByID retrieves an entry by its identifier.
func (r *GlossaryRepository) FindByID(ctx context.Context, id common.ID) (*glossary.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM glossary_entries WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeTermNotFound, "glossary entry not found").
			WithDetail(string(id))
	}
	return entry, err
}

// FindByTerm retrieves an entry by its (normalized, language) natural key.
func (r *GlossaryRepository) FindByTerm(ctx context.Context, normalized, language string) (*glossary.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM glossary_entries WHERE normalized = $1 AND language = $2`,
		normalized, language)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeTermNotFound, "glossary entry not found").
			WithDetail(normalized + "/" + language)
	}
	return entry, err
}

// List returns a page of entries matching the request filters, ordered by
// descending frequency then normalized text for a stable pagination order.
func (r *GlossaryRepository) List(ctx context.Context, req gtypes.TermSearchRequest) (*gtypes.TermSearchResponse, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	addArg := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if req.Query != "" {
		args = append(args, req.Query)
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(term ILIKE '%%' || $%d || '%%' OR normalized ILIKE '%%' || $%d || '%%')", n, n))
	}
	if req.Language != nil {
		addArg("language = $%d", *req.Language)
	}
	if req.Method != nil {
		addArg("method = $%d", string(*req.Method))
	}
	if req.MinFrequency != nil {
		addArg("frequency >= $%d", *req.MinFrequency)
	}
	if req.MinConfidence != nil {
		addArg("confidence >= $%d", *req.MinConfidence)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM glossary_entries WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count glossary entries")
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
		`SELECT `+entryColumns+` FROM glossary_entries WHERE `+whereClause+
			fmt.Sprintf(` ORDER BY frequency DESC, normalized ASC LIMIT $%d OFFSET $%d`,
				len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list glossary entries")
	}
	defer rows.Close()

	items := []gtypes.TermDTO{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, entry.ToDTO())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate glossary entries")
	}

	resp := common.NewPageResponse(items, total, page, pageSize)
	return &resp, nil
}

// Delete removes an entry by ID.
func (r *GlossaryRepository) Delete(ctx context.Context, id common.ID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM glossary_entries WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete glossary entry")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read delete result")
	}
	if affected == 0 {
		return errors.New(errors.ErrCodeTermNotFound, "glossary entry not found").
			WithDetail(string(id))
	}
	return nil
}

// Count returns the number of entries for a language; empty counts all.
func (r *GlossaryRepository) Count(ctx context.Context, language string) (int64, error) {
	var (
		total int64
		err   error
	)
	if language == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM glossary_entries`).Scan(&total)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM glossary_entries WHERE language = $1`, language).Scan(&total)
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count glossary entries")
	}
	return total, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row mapping
// ─────────────────────────────────────────────────────────────────────────────

func marshalEntryJSON(entry *glossary.Entry) (pages, contexts, defs, docs []byte, err error) {
	if pages, err = json.Marshal(orEmptyInts(entry.Pages)); err == nil {
		if contexts, err = json.Marshal(orEmptyStrings(entry.Contexts)); err == nil {
			if defs, err = json.Marshal(orEmptyDefs(entry.Definitions)); err == nil {
				docs, err = json.Marshal(orEmptyIDs(entry.DocumentIDs))
			}
		}
	}
	if err != nil {
		return nil, nil, nil, nil,
			errors.Wrap(err, errors.ErrCodeSerialization, "failed to serialize glossary entry")
	}
	return pages, contexts, defs, docs, nil
}

func scanEntry(row scanner) (*glossary.Entry, error) {
	var (
		dto                            gtypes.TermDTO
		method                         string
		pagesJSON, contextsJSON        []byte
		definitionsJSON, documentsJSON []byte
	)
	err := row.Scan(
		&dto.ID, &dto.Term, &dto.Normalized, &dto.Language, &dto.Frequency,
		&pagesJSON, &contextsJSON, &dto.Confidence, &method,
		&definitionsJSON, &documentsJSON,
		&dto.CreatedAt, &dto.UpdatedAt, &dto.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan glossary entry")
	}

	dto.Method = gtypes.ExtractionMethod(method)
	if err := json.Unmarshal(pagesJSON, &dto.Pages); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt pages column")
	}
	if err := json.Unmarshal(contextsJSON, &dto.Contexts); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt contexts column")
	}
	if err := json.Unmarshal(definitionsJSON, &dto.Definitions); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt definitions column")
	}
	if err := json.Unmarshal(documentsJSON, &dto.DocumentIDs); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt document_ids column")
	}

	return glossary.EntryFromDTO(dto), nil
}

// isUniqueViolation detects PostgreSQL unique-constraint errors (SQLSTATE
// 23505) without binding to a driver-specific error type.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

func orEmptyInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func orEmptyStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orEmptyDefs(v []gtypes.DefinitionDTO) []gtypes.DefinitionDTO {
	if v == nil {
		return []gtypes.DefinitionDTO{}
	}
	return v
}

func orEmptyIDs(v []common.ID) []common.ID {
	if v == nil {
		return []common.ID{}
	}
	return v
}
