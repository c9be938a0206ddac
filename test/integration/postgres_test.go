//go:build integration

// Repository tests against a real PostgreSQL instance.  Requires Docker and
// the "integration" build tag.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	domaindoc "github.com/lexforge/TermForge-Intelligence/internal/domain/document"
	domainglossary "github.com/lexforge/TermForge-Intelligence/internal/domain/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/postgres"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// startPostgres launches a PostgreSQL 16 container, applies the embedded
// migrations, and returns a connected handle.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "termforge_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/termforge_test?sslmode=disable", host, port.Port())
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = postgres.Migrate(db)
	require.NoError(t, err)
	return db
}

func TestDocumentRepository_RoundTrip(t *testing.T) {
	db := startPostgres(t)
	repo := repositories.NewDocumentRepository(db, logging.NewNopLogger())
	ctx := context.Background()

	doc, err := domaindoc.NewDocument("reactor-manual.pdf", "application/pdf", "en", 2048)
	require.NoError(t, err)
	doc.ObjectKey = "documents/" + string(doc.ID) + "/reactor-manual.pdf"
	require.NoError(t, repo.Save(ctx, doc))

	loaded, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "reactor-manual.pdf", loaded.Filename)
	assert.Equal(t, dtypes.StatusUploaded, loaded.Status)
	assert.Equal(t, doc.ObjectKey, loaded.ObjectKey)

	require.NoError(t, loaded.MarkProcessing())
	require.NoError(t, repo.Update(ctx, loaded))

	reloaded, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, dtypes.StatusProcessing, reloaded.Status)

	status := dtypes.StatusProcessing
	page, err := repo.List(ctx, dtypes.DocumentListRequest{
		Status:     &status,
		Pagination: common.Pagination{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, doc.ID, page.Items[0].ID)

	require.NoError(t, repo.Delete(ctx, doc.ID))
	_, err = repo.FindByID(ctx, doc.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDocumentNotFound))
}

func TestGlossaryRepository_MergeAcrossDocuments(t *testing.T) {
	db := startPostgres(t)
	repo := repositories.NewGlossaryRepository(db, logging.NewNopLogger())
	ctx := context.Background()

	entry, err := domainglossary.NewEntry("Rushton Turbine", "en", gtypes.MethodPattern, 0.8)
	require.NoError(t, err)
	require.NoError(t, entry.MergeExtraction(domainglossary.Extraction{
		DocumentID: common.NewID(),
		Frequency:  3,
		Pages:      []int{1, 4},
		Confidence: 0.8,
		Method:     gtypes.MethodPattern,
	}))
	require.NoError(t, repo.Save(ctx, entry))

	// A second document contributes the same term with higher confidence.
	loaded, err := repo.FindByTerm(ctx, entry.Normalized, "en")
	require.NoError(t, err)
	require.NoError(t, loaded.MergeExtraction(domainglossary.Extraction{
		DocumentID: common.NewID(),
		Frequency:  2,
		Pages:      []int{7},
		Confidence: 0.95,
		Method:     gtypes.MethodLinguistic,
	}))
	require.NoError(t, repo.Update(ctx, loaded))

	merged, err := repo.FindByTerm(ctx, entry.Normalized, "en")
	require.NoError(t, err)
	assert.Equal(t, 5, merged.Frequency)
	assert.Equal(t, []int{1, 4, 7}, merged.Pages)
	assert.InDelta(t, 0.95, merged.Confidence, 1e-9)
	assert.Equal(t, gtypes.MethodLinguistic, merged.Method)
	assert.Len(t, merged.DocumentIDs, 2)
}

func TestGlossaryRepository_ListFilters(t *testing.T) {
	db := startPostgres(t)
	repo := repositories.NewGlossaryRepository(db, logging.NewNopLogger())
	ctx := context.Background()

	seed := []struct {
		term string
		freq int
	}{
		{"gas holdup", 14},
		{"mixing time", 6},
		{"baffle", 2},
	}
	for _, s := range seed {
		entry, err := domainglossary.NewEntry(s.term, "en", gtypes.MethodLinguistic, 0.7)
		require.NoError(t, err)
		require.NoError(t, entry.MergeExtraction(domainglossary.Extraction{
			DocumentID: common.NewID(),
			Frequency:  s.freq,
			Pages:      []int{1},
			Confidence: 0.7,
			Method:     gtypes.MethodLinguistic,
		}))
		require.NoError(t, repo.Save(ctx, entry))
	}

	minFreq := 5
	page, err := repo.List(ctx, gtypes.TermSearchRequest{
		MinFrequency: &minFreq,
		Pagination:   common.Pagination{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	// Ordered by descending frequency.
	assert.Equal(t, "gas holdup", page.Items[0].Term)
	assert.Equal(t, "mixing time", page.Items[1].Term)
}
