// Package glossary defines the persistence contracts for glossary entries and
// term relations.
package glossary

import (
	"context"

	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// EntryRepository defines the persistence contract for Entry aggregates.
// Implementations deduplicate on the (Normalized, Language) natural key:
// saving an entry whose key already exists is a conflict, and callers
// merging new extractions load-then-update instead.
type EntryRepository interface {
	// Save persists a new entry.
	// Returns errors.ErrCodeTermAlreadyExists when the natural key is taken.
	Save(ctx context.Context, entry *Entry) error

	// Update modifies an existing entry.
	// Returns errors.ErrCodeTermNotFound when the entry does not exist.
	Update(ctx context.Context, entry *Entry) error

	// FindByID retrieves an entry by its identifier.
	// Returns errors.ErrCodeTermNotFound when no entry matches.
	FindByID(ctx context.Context, id common.ID) (*Entry, error)

	// FindByTerm retrieves an entry by its natural key.
	// Returns errors.ErrCodeTermNotFound when no entry matches.
	FindByTerm(ctx context.Context, normalized, language string) (*Entry, error)

	// List returns a page of entries matching the request filters, ordered by
	// descending frequency then ascending normalized text.
	List(ctx context.Context, req gtypes.TermSearchRequest) (*gtypes.TermSearchResponse, error)

	// Delete removes an entry by ID.
	// Returns errors.ErrCodeTermNotFound when the entry does not exist.
	Delete(ctx context.Context, id common.ID) error

	// Count returns the number of entries for a language; empty language
	// counts all.
	Count(ctx context.Context, language string) (int64, error)
}

// RelationRepository defines the persistence contract for term relations in
// the relationship graph.
type RelationRepository interface {
	// Upsert merges a batch of relations into the language partition of the
	// graph, keeping the highest-confidence evidence per (source, target,
	// type) triple.
	Upsert(ctx context.Context, language string, relations []*Relation) error

	// Neighbors returns the nodes and edges reachable from the request term
	// within the requested depth.
	Neighbors(ctx context.Context, req gtypes.TermGraphRequest) (*gtypes.TermGraphResponse, error)

	// DeleteByTerm removes every relation touching the given normalized term.
	DeleteByTerm(ctx context.Context, normalized, language string) error
}
