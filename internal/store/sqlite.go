package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/bursary-matcher/internal/bursary"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  institution TEXT NOT NULL DEFAULT '',
  major TEXT NOT NULL DEFAULT '',
  graduation_year INTEGER NOT NULL DEFAULT 0,
  interests_json TEXT NOT NULL DEFAULT '[]',
  skills_json TEXT NOT NULL DEFAULT '[]',
  languages_json TEXT NOT NULL DEFAULT '[]',
  achievements_json TEXT NOT NULL DEFAULT '[]',
  financial_background TEXT NOT NULL DEFAULT '',
  career_goals TEXT NOT NULL DEFAULT '',
  bio TEXT NOT NULL DEFAULT '',
  location_preferences_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS bursaries (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  organization TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  eligibility_criteria TEXT NOT NULL DEFAULT '',
  award_amount REAL NOT NULL DEFAULT 0,
  field_of_study_json TEXT NOT NULL DEFAULT '[]',
  academic_level_json TEXT NOT NULL DEFAULT '[]',
  financial_need_level TEXT NOT NULL DEFAULT '',
  ai_tags_json TEXT NOT NULL DEFAULT '[]',
  ai_categorization_json TEXT NOT NULL DEFAULT '[]',
  deadline TEXT NOT NULL DEFAULT '',
  required_documents_json TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_bursaries_deadline ON bursaries(deadline);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p *bursary.StudentProfile) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO students
(id, institution, major, graduation_year, interests_json, skills_json, languages_json, achievements_json,
 financial_background, career_goals, bio, location_preferences_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  institution = excluded.institution,
  major = excluded.major,
  graduation_year = excluded.graduation_year,
  interests_json = excluded.interests_json,
  skills_json = excluded.skills_json,
  languages_json = excluded.languages_json,
  achievements_json = excluded.achievements_json,
  financial_background = excluded.financial_background,
  career_goals = excluded.career_goals,
  bio = excluded.bio,
  location_preferences_json = excluded.location_preferences_json
`,
		p.ID, p.Institution, p.Major, p.GraduationYear,
		jsonList(p.Interests), jsonList(p.Skills), jsonList(p.Languages), jsonList(p.Achievements),
		p.FinancialBackground, p.CareerGoals, p.Bio, jsonList(p.LocationPreferences),
	)
	if err != nil {
		return fmt.Errorf("save student %q: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) SaveListing(ctx context.Context, l *bursary.Listing) error {
	deadline := ""
	if l.HasDeadline() {
		deadline = l.Deadline.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO bursaries
(id, title, organization, description, eligibility_criteria, award_amount, field_of_study_json,
 academic_level_json, financial_need_level, ai_tags_json, ai_categorization_json, deadline, required_documents_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  title = excluded.title,
  organization = excluded.organization,
  description = excluded.description,
  eligibility_criteria = excluded.eligibility_criteria,
  award_amount = excluded.award_amount,
  field_of_study_json = excluded.field_of_study_json,
  academic_level_json = excluded.academic_level_json,
  financial_need_level = excluded.financial_need_level,
  ai_tags_json = excluded.ai_tags_json,
  ai_categorization_json = excluded.ai_categorization_json,
  deadline = excluded.deadline,
  required_documents_json = excluded.required_documents_json
`,
		l.ID, l.Title, l.Organization, l.Description, l.EligibilityCriteria, l.AwardAmount,
		jsonList(l.FieldOfStudy), jsonList(l.AcademicLevel), string(l.FinancialNeedLevel),
		jsonList(l.AITags), jsonList(l.AICategorization), deadline, jsonList(l.RequiredDocuments),
	)
	if err != nil {
		return fmt.Errorf("save bursary %q: %w", l.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Profile(ctx context.Context, id string) (*bursary.StudentProfile, error) {
	var (
		p                                                   bursary.StudentProfile
		interests, skills, languages, achievements, locPref string
	)

	err := s.db.QueryRowContext(ctx, `
SELECT id, institution, major, graduation_year, interests_json, skills_json, languages_json, achievements_json,
       financial_background, career_goals, bio, location_preferences_json
FROM students WHERE id = ?
`, id).Scan(
		&p.ID, &p.Institution, &p.Major, &p.GraduationYear,
		&interests, &skills, &languages, &achievements,
		&p.FinancialBackground, &p.CareerGoals, &p.Bio, &locPref,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load student %q: %w", id, err)
	}

	for _, col := range []struct {
		raw string
		dst *[]string
	}{
		{interests, &p.Interests},
		{skills, &p.Skills},
		{languages, &p.Languages},
		{achievements, &p.Achievements},
		{locPref, &p.LocationPreferences},
	} {
		if *col.dst, err = decodeList(col.raw); err != nil {
			return nil, fmt.Errorf("load student %q: %w", id, err)
		}
	}

	return &p, nil
}

func (s *SQLiteStore) Listings(ctx context.Context) (*bursary.Listings, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, organization, description, eligibility_criteria, award_amount, field_of_study_json,
       academic_level_json, financial_need_level, ai_tags_json, ai_categorization_json, deadline, required_documents_json
FROM bursaries ORDER BY rowid
`)
	if err != nil {
		return nil, fmt.Errorf("load bursaries: %w", err)
	}
	defer rows.Close()

	out := &bursary.Listings{}
	for rows.Next() {
		var (
			l                                          bursary.Listing
			need, deadline                             string
			fields, levels, tags, categories, required string
		)
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Organization, &l.Description, &l.EligibilityCriteria, &l.AwardAmount,
			&fields, &levels, &need, &tags, &categories, &deadline, &required,
		); err != nil {
			return nil, fmt.Errorf("load bursaries: %w", err)
		}

		l.FinancialNeedLevel = bursary.NeedLevel(need)
		if l.Deadline, err = parseTime(deadline); err != nil {
			return nil, fmt.Errorf("bursary %q: %w", l.ID, err)
		}

		for _, col := range []struct {
			raw string
			dst *[]string
		}{
			{fields, &l.FieldOfStudy},
			{levels, &l.AcademicLevel},
			{tags, &l.AITags},
			{categories, &l.AICategorization},
			{required, &l.RequiredDocuments},
		} {
			if *col.dst, err = decodeList(col.raw); err != nil {
				return nil, fmt.Errorf("bursary %q: %w", l.ID, err)
			}
		}

		out.Items = append(out.Items, &l)
	}

	return out, rows.Err()
}

func jsonList(items []string) string {
	if items == nil {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func decodeList(raw string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
