package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/bursary-matcher/internal/bursary"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	s := NewPostgres(db)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return s, mock
}

func TestPostgresProfile(t *testing.T) {
	s, mock := newMockPostgres(t)

	rows := sqlmock.NewRows([]string{
		"id", "institution", "major", "graduation_year", "interests", "skills", "languages",
		"achievements", "financial_background", "career_goals", "bio", "location_preferences",
	}).AddRow(
		"s1", "UCT", "Computer Science", 2028, "{robotics}", "{Go,Python}", "{English,isiXhosa}",
		"{}", "Low income", "Build software", "", "{\"Western Cape\"}",
	)
	mock.ExpectQuery(`SELECT id, institution, major, graduation_year, .* FROM students WHERE id = \$1`).
		WithArgs("s1").
		WillReturnRows(rows)

	p, err := s.Profile(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2028, p.GraduationYear)
	assert.Equal(t, []string{"Go", "Python"}, p.Skills)
	assert.Equal(t, []string{"English", "isiXhosa"}, p.Languages)
	assert.Equal(t, []string{"Western Cape"}, p.LocationPreferences)
	assert.Empty(t, p.Achievements)
}

func TestPostgresProfileNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`FROM students WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Profile(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresListings(t *testing.T) {
	s, mock := newMockPostgres(t)

	deadline := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "title", "organization", "description", "eligibility_criteria", "award_amount",
		"field_of_study", "academic_level", "financial_need_level", "ai_tags", "ai_categorization",
		"deadline", "required_documents",
	}).
		AddRow("b1", "Tech Futures", "Acme", "", "", 25000.0, "{\"Computer Science\"}", "{Any}", "high", "{coding}", "{STEM}", deadline, "{Transcript}").
		AddRow("b2", "Rolling", "", "", "", 0.0, "{}", "{}", "", "{}", "{}", nil, "{}")
	mock.ExpectQuery(`SELECT id, title, .* FROM bursaries ORDER BY seq`).WillReturnRows(rows)

	listings, err := s.Listings(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"b1", "b2"}, listings.IDs())

	first := listings.Items[0]
	assert.Equal(t, []string{"Computer Science"}, first.FieldOfStudy)
	assert.Equal(t, bursary.NeedHigh, first.NeedLevel())
	assert.Equal(t, deadline, first.Deadline)
	assert.Equal(t, []string{"Transcript"}, first.RequiredDocuments)

	assert.False(t, listings.Items[1].HasDeadline())
	assert.Equal(t, bursary.NeedMedium, listings.Items[1].NeedLevel())
}

func TestPostgresSaveListing(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO bursaries .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("b1", "Tech", "", "", "", 1000.0,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "high", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.SaveListing(context.Background(), &bursary.Listing{
		ID: "b1", Title: "Tech", AwardAmount: 1000, FinancialNeedLevel: bursary.NeedHigh,
	})
	require.NoError(t, err)
}

func TestPostgresSaveProfileWrapsErrors(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO students`).WillReturnError(errors.New("connection reset"))

	err := s.SaveProfile(context.Background(), &bursary.StudentProfile{ID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `save student "s1"`)
}

func TestPostgresEnsureSchema(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS students`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS bursaries`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
}
