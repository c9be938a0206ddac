// Package document defines the persistence contract for document records.
package document

import (
	"context"

	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

// Repository defines the persistence contract for Document aggregates.
type Repository interface {
	// Save persists a new document record.
	Save(ctx context.Context, doc *Document) error

	// Update modifies an existing record (status transitions, stats).
	// Returns errors.ErrCodeDocumentNotFound when the document is missing.
	Update(ctx context.Context, doc *Document) error

	// FindByID retrieves a document by its identifier.
	// Returns errors.ErrCodeDocumentNotFound when no document matches.
	FindByID(ctx context.Context, id common.ID) (*Document, error)

	// List returns a page of documents matching the request filters, most
	// recently created first.
	List(ctx context.Context, req dtypes.DocumentListRequest) (*dtypes.DocumentListResponse, error)

	// Delete removes a document record by ID.
	// Returns errors.ErrCodeDocumentNotFound when the document is missing.
	Delete(ctx context.Context, id common.ID) error
}
