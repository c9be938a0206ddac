package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lexforge/TermForge-Intelligence/internal/domain/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

type GlossaryRepoTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo *GlossaryRepository
}

func (s *GlossaryRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)
	s.repo = NewGlossaryRepository(s.db, logging.NewNopLogger())
}

func (s *GlossaryRepoTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *GlossaryRepoTestSuite) newEntry() *glossary.Entry {
	entry, err := glossary.NewEntry("pressure sensor", "en", gtypes.MethodLinguistic, 0.8)
	require.NoError(s.T(), err)
	entry.Events() // drain creation event
	return entry
}

func (s *GlossaryRepoTestSuite) TestSave_Success() {
	entry := s.newEntry()

	s.mock.ExpectExec("INSERT INTO glossary_entries").
		WithArgs(
			entry.ID, entry.Term, entry.Normalized, entry.Language, entry.Frequency,
			sqlmock.AnyArg(), sqlmock.AnyArg(), entry.Confidence, string(entry.Method),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), 1,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.repo.Save(context.Background(), entry)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 1, entry.BaseEntity.Version)
}

func (s *GlossaryRepoTestSuite) TestSave_DuplicateMapsToConflict() {
	entry := s.newEntry()

	s.mock.ExpectExec("INSERT INTO glossary_entries").
		WillReturnError(&mockPgError{msg: `duplicate key value violates unique constraint (SQLSTATE 23505)`})

	err := s.repo.Save(context.Background(), entry)
	require.Error(s.T(), err)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeTermAlreadyExists))
}

func (s *GlossaryRepoTestSuite) TestUpdate_Success() {
	entry := s.newEntry()
	entry.BaseEntity.Version = 3

	s.mock.ExpectExec("UPDATE glossary_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.repo.Update(context.Background(), entry)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 4, entry.BaseEntity.Version)
}

func (s *GlossaryRepoTestSuite) TestUpdate_VersionConflict() {
	entry := s.newEntry()
	entry.BaseEntity.Version = 3

	s.mock.ExpectExec("UPDATE glossary_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.repo.Update(context.Background(), entry)
	require.Error(s.T(), err)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeTermNotFound))
	assert.Equal(s.T(), 3, entry.BaseEntity.Version)
}

func (s *GlossaryRepoTestSuite) TestFindByTerm_Found() {
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "term", "normalized", "language", "frequency", "pages", "contexts",
		"confidence", "method", "definitions", "document_ids",
		"created_at", "updated_at", "version",
	}).AddRow(
		"term-1", "Pressure Sensor", "pressure sensor", "en", 7,
		[]byte(`[2,5]`), []byte(`["the pressure sensor reports"]`),
		0.9, "linguistic", []byte(`[]`), []byte(`["doc-1"]`),
		now, now, 2,
	)

	s.mock.ExpectQuery("SELECT .* FROM glossary_entries WHERE normalized =").
		WithArgs("pressure sensor", "en").
		WillReturnRows(rows)

	entry, err := s.repo.FindByTerm(context.Background(), "pressure sensor", "en")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), common.ID("term-1"), entry.ID)
	assert.Equal(s.T(), "Pressure Sensor", entry.Term)
	assert.Equal(s.T(), 7, entry.Frequency)
	assert.Equal(s.T(), []int{2, 5}, entry.Pages)
	assert.Equal(s.T(), gtypes.MethodLinguistic, entry.Method)
	assert.Equal(s.T(), []common.ID{"doc-1"}, entry.DocumentIDs)
}

func (s *GlossaryRepoTestSuite) TestFindByTerm_NotFound() {
	s.mock.ExpectQuery("SELECT .* FROM glossary_entries WHERE normalized =").
		WithArgs("missing", "en").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.repo.FindByTerm(context.Background(), "missing", "en")
	require.Error(s.T(), err)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeTermNotFound))
}

func (s *GlossaryRepoTestSuite) TestFindByID_NotFound() {
	s.mock.ExpectQuery("SELECT .* FROM glossary_entries WHERE id =").
		WithArgs(common.ID("nope")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.repo.FindByID(context.Background(), "nope")
	require.Error(s.T(), err)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeTermNotFound))
}

func (s *GlossaryRepoTestSuite) TestList_FiltersAndPaginates() {
	lang := "en"
	minFreq := 3
	req := gtypes.TermSearchRequest{
		Query:        "sensor",
		Language:     &lang,
		MinFrequency: &minFreq,
		Pagination:   common.Pagination{Page: 2, PageSize: 10},
	}

	s.mock.ExpectQuery("SELECT COUNT").
		WithArgs("sensor", "en", 3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	now := time.Now().UTC()
	s.mock.ExpectQuery("SELECT .* FROM glossary_entries WHERE .* ORDER BY frequency DESC").
		WithArgs("sensor", "en", 3, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "term", "normalized", "language", "frequency", "pages", "contexts",
			"confidence", "method", "definitions", "document_ids",
			"created_at", "updated_at", "version",
		}).AddRow(
			"term-2", "flow sensor", "flow sensor", "en", 4,
			[]byte(`[1]`), []byte(`[]`), 0.7, "pattern", []byte(`[]`), []byte(`[]`),
			now, now, 1,
		))

	resp, err := s.repo.List(context.Background(), req)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(11), resp.Total)
	assert.Equal(s.T(), 2, resp.Page)
	require.Len(s.T(), resp.Items, 1)
	assert.Equal(s.T(), "flow sensor", resp.Items[0].Normalized)
}

func (s *GlossaryRepoTestSuite) TestDelete_NotFound() {
	s.mock.ExpectExec("DELETE FROM glossary_entries").
		WithArgs(common.ID("nope")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.repo.Delete(context.Background(), "nope")
	require.Error(s.T(), err)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeTermNotFound))
}

func (s *GlossaryRepoTestSuite) TestCount_ByLanguage() {
	s.mock.ExpectQuery("SELECT COUNT").
		WithArgs("de").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	total, err := s.repo.Count(context.Background(), "de")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(42), total)
}

func TestGlossaryRepoTestSuite(t *testing.T) {
	suite.Run(t, new(GlossaryRepoTestSuite))
}

// mockPgError mimics the text of a driver-level unique violation.
type mockPgError struct{ msg string }

func (e *mockPgError) Error() string { return e.msg }
