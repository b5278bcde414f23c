package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/spigell/bursary-matcher/internal/bursary"
)

type PostgresStore struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgres(db), nil
}

// NewPostgres wraps an already opened connection pool.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  institution TEXT NOT NULL DEFAULT '',
  major TEXT NOT NULL DEFAULT '',
  graduation_year INTEGER NOT NULL DEFAULT 0,
  interests TEXT[] NOT NULL DEFAULT '{}',
  skills TEXT[] NOT NULL DEFAULT '{}',
  languages TEXT[] NOT NULL DEFAULT '{}',
  achievements TEXT[] NOT NULL DEFAULT '{}',
  financial_background TEXT NOT NULL DEFAULT '',
  career_goals TEXT NOT NULL DEFAULT '',
  bio TEXT NOT NULL DEFAULT '',
  location_preferences TEXT[] NOT NULL DEFAULT '{}'
)`,
		`CREATE TABLE IF NOT EXISTS bursaries (
  seq BIGSERIAL,
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  organization TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  eligibility_criteria TEXT NOT NULL DEFAULT '',
  award_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
  field_of_study TEXT[] NOT NULL DEFAULT '{}',
  academic_level TEXT[] NOT NULL DEFAULT '{}',
  financial_need_level TEXT NOT NULL DEFAULT '',
  ai_tags TEXT[] NOT NULL DEFAULT '{}',
  ai_categorization TEXT[] NOT NULL DEFAULT '{}',
  deadline TIMESTAMPTZ,
  required_documents TEXT[] NOT NULL DEFAULT '{}'
)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure postgres schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *bursary.StudentProfile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO students
(id, institution, major, graduation_year, interests, skills, languages, achievements,
 financial_background, career_goals, bio, location_preferences)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
 institution = EXCLUDED.institution, major = EXCLUDED.major, graduation_year = EXCLUDED.graduation_year,
 interests = EXCLUDED.interests, skills = EXCLUDED.skills, languages = EXCLUDED.languages,
 achievements = EXCLUDED.achievements, financial_background = EXCLUDED.financial_background,
 career_goals = EXCLUDED.career_goals, bio = EXCLUDED.bio, location_preferences = EXCLUDED.location_preferences`,
		p.ID, p.Institution, p.Major, p.GraduationYear,
		pq.Array(nonNil(p.Interests)), pq.Array(nonNil(p.Skills)), pq.Array(nonNil(p.Languages)), pq.Array(nonNil(p.Achievements)),
		p.FinancialBackground, p.CareerGoals, p.Bio, pq.Array(nonNil(p.LocationPreferences)),
	)
	if err != nil {
		return fmt.Errorf("save student %q: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) SaveListing(ctx context.Context, l *bursary.Listing) error {
	var deadline sql.NullTime
	if l.HasDeadline() {
		deadline = sql.NullTime{Time: l.Deadline, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO bursaries
(id, title, organization, description, eligibility_criteria, award_amount, field_of_study,
 academic_level, financial_need_level, ai_tags, ai_categorization, deadline, required_documents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
 title = EXCLUDED.title, organization = EXCLUDED.organization, description = EXCLUDED.description,
 eligibility_criteria = EXCLUDED.eligibility_criteria, award_amount = EXCLUDED.award_amount,
 field_of_study = EXCLUDED.field_of_study, academic_level = EXCLUDED.academic_level,
 financial_need_level = EXCLUDED.financial_need_level, ai_tags = EXCLUDED.ai_tags,
 ai_categorization = EXCLUDED.ai_categorization, deadline = EXCLUDED.deadline,
 required_documents = EXCLUDED.required_documents`,
		l.ID, l.Title, l.Organization, l.Description, l.EligibilityCriteria, l.AwardAmount,
		pq.Array(nonNil(l.FieldOfStudy)), pq.Array(nonNil(l.AcademicLevel)), string(l.FinancialNeedLevel),
		pq.Array(nonNil(l.AITags)), pq.Array(nonNil(l.AICategorization)), deadline, pq.Array(nonNil(l.RequiredDocuments)),
	)
	if err != nil {
		return fmt.Errorf("save bursary %q: %w", l.ID, err)
	}
	return nil
}

func (s *PostgresStore) Profile(ctx context.Context, id string) (*bursary.StudentProfile, error) {
	var p bursary.StudentProfile

	err := s.db.QueryRowContext(ctx, `SELECT id, institution, major, graduation_year, interests, skills, languages, achievements, financial_background, career_goals, bio, location_preferences FROM students WHERE id = $1`, id).Scan(
		&p.ID, &p.Institution, &p.Major, &p.GraduationYear,
		pq.Array(&p.Interests), pq.Array(&p.Skills), pq.Array(&p.Languages), pq.Array(&p.Achievements),
		&p.FinancialBackground, &p.CareerGoals, &p.Bio, pq.Array(&p.LocationPreferences),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load student %q: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) Listings(ctx context.Context) (*bursary.Listings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, organization, description, eligibility_criteria, award_amount, field_of_study, academic_level, financial_need_level, ai_tags, ai_categorization, deadline, required_documents FROM bursaries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load bursaries: %w", err)
	}
	defer rows.Close()

	out := &bursary.Listings{}
	for rows.Next() {
		var (
			l        bursary.Listing
			need     string
			deadline sql.NullTime
		)
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Organization, &l.Description, &l.EligibilityCriteria, &l.AwardAmount,
			pq.Array(&l.FieldOfStudy), pq.Array(&l.AcademicLevel), &need,
			pq.Array(&l.AITags), pq.Array(&l.AICategorization), &deadline, pq.Array(&l.RequiredDocuments),
		); err != nil {
			return nil, fmt.Errorf("load bursaries: %w", err)
		}

		l.FinancialNeedLevel = bursary.NeedLevel(need)
		if deadline.Valid {
			l.Deadline = deadline.Time
		}
		out.Items = append(out.Items, &l)
	}

	return out, rows.Err()
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
