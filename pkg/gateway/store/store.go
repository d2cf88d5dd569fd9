// Package store persists jobs, resumes, interviews and their scored results
// in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the database facade the API handlers and the flush pipeline use.
type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// ---- jobs ----

func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO jobs (title, company, description_text, requirements,
			skills_required, experience_level, location, salary_range, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		job.Title, job.Company, job.DescriptionText, job.Requirements,
		job.SkillsRequired, job.ExperienceLevel, job.Location, job.SalaryRange, true)
	if err := row.Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("store: create job: %w", err)
	}
	job.Active = true
	return nil
}

func scanJob(row pgx.Row, job *Job) error {
	return row.Scan(&job.ID, &job.Title, &job.Company, &job.DescriptionText,
		&job.Requirements, &job.SkillsRequired, &job.ExperienceLevel,
		&job.Location, &job.SalaryRange, &job.Active, &job.CreatedAt, &job.UpdatedAt)
}

const jobColumns = `id, title, company, description_text, requirements,
	skills_required, experience_level, location, salary_range, active,
	created_at, updated_at`

func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	var job Job
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if err := scanJob(row, &job); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get job: %w", err)
	}
	return &job, nil
}

func (s *Store) ListJobs(ctx context.Context, activeOnly bool) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	if activeOnly {
		query = `SELECT ` + jobColumns + ` FROM jobs WHERE active ORDER BY created_at DESC`
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := scanJob(rows, &job); err != nil {
			return nil, fmt.Errorf("store: list jobs: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) DeactivateJob(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: deactivate job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- resumes ----

const resumeColumns = `id, candidate_name, email, phone, resume_text, skills,
	experience_years, education, linkedin_url, portfolio_url, active,
	created_at, updated_at`

func scanResume(row pgx.Row, r *Resume) error {
	return row.Scan(&r.ID, &r.CandidateName, &r.Email, &r.Phone, &r.ResumeText,
		&r.Skills, &r.ExperienceYears, &r.Education, &r.LinkedInURL,
		&r.PortfolioURL, &r.Active, &r.CreatedAt, &r.UpdatedAt)
}

func (s *Store) CreateResume(ctx context.Context, r *Resume) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO resumes (candidate_name, email, phone, resume_text, skills,
			experience_years, education, linkedin_url, portfolio_url, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		r.CandidateName, r.Email, r.Phone, r.ResumeText, r.Skills,
		r.ExperienceYears, r.Education, r.LinkedInURL, r.PortfolioURL, true)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return fmt.Errorf("store: create resume: %w", err)
	}
	r.Active = true
	return nil
}

func (s *Store) GetResume(ctx context.Context, id int64) (*Resume, error) {
	var r Resume
	row := s.pool.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id)
	if err := scanResume(row, &r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get resume: %w", err)
	}
	return &r, nil
}

func (s *Store) ListResumes(ctx context.Context, activeOnly bool) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes ORDER BY created_at DESC`
	if activeOnly {
		query = `SELECT ` + resumeColumns + ` FROM resumes WHERE active ORDER BY created_at DESC`
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []Resume
	for rows.Next() {
		var r Resume
		if err := scanResume(rows, &r); err != nil {
			return nil, fmt.Errorf("store: list resumes: %w", err)
		}
		resumes = append(resumes, r)
	}
	return resumes, rows.Err()
}

// SearchResumes matches candidate name, email or skills, case-insensitively.
func (s *Store) SearchResumes(ctx context.Context, term string) ([]Resume, error) {
	pattern := "%" + strings.TrimSpace(term) + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+resumeColumns+` FROM resumes
		WHERE active AND (candidate_name ILIKE $1 OR email ILIKE $1
			OR EXISTS (SELECT 1 FROM unnest(skills) sk WHERE sk ILIKE $1))
		ORDER BY created_at DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("store: search resumes: %w", err)
	}
	defer rows.Close()

	var resumes []Resume
	for rows.Next() {
		var r Resume
		if err := scanResume(rows, &r); err != nil {
			return nil, fmt.Errorf("store: search resumes: %w", err)
		}
		resumes = append(resumes, r)
	}
	return resumes, rows.Err()
}

// ---- interviews ----

const interviewColumns = `id, session_id, job_id, resume_id, status,
	scheduled_at, started_at, ended_at, duration_minutes, created_at, updated_at`

func scanInterview(row pgx.Row, iv *Interview) error {
	return row.Scan(&iv.ID, &iv.SessionID, &iv.JobID, &iv.ResumeID, &iv.Status,
		&iv.ScheduledAt, &iv.StartedAt, &iv.EndedAt, &iv.DurationMinutes,
		&iv.CreatedAt, &iv.UpdatedAt)
}

func (s *Store) CreateInterview(ctx context.Context, iv *Interview) error {
	if iv.Status == "" {
		iv.Status = InterviewStatusScheduled
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO interviews (session_id, job_id, resume_id, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		iv.SessionID, iv.JobID, iv.ResumeID, iv.Status, iv.ScheduledAt)
	if err := row.Scan(&iv.ID, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		return fmt.Errorf("store: create interview: %w", err)
	}
	return nil
}

func (s *Store) GetInterview(ctx context.Context, id int64) (*Interview, error) {
	var iv Interview
	row := s.pool.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id)
	if err := scanInterview(row, &iv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get interview: %w", err)
	}
	return &iv, nil
}

func (s *Store) GetInterviewBySession(ctx context.Context, sessionID string) (*Interview, error) {
	var iv Interview
	row := s.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE session_id = $1`, sessionID)
	if err := scanInterview(row, &iv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get interview by session: %w", err)
	}
	return &iv, nil
}

func (s *Store) ListInterviews(ctx context.Context, status string) ([]Interview, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if strings.TrimSpace(status) == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+interviewColumns+` FROM interviews ORDER BY created_at DESC`)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+interviewColumns+` FROM interviews WHERE status = $1 ORDER BY created_at DESC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []Interview
	for rows.Next() {
		var iv Interview
		if err := scanInterview(rows, &iv); err != nil {
			return nil, fmt.Errorf("store: list interviews: %w", err)
		}
		interviews = append(interviews, iv)
	}
	return interviews, rows.Err()
}

// UpdateInterviewStatus moves an interview through its lifecycle, stamping
// start and end times as appropriate.
func (s *Store) UpdateInterviewStatus(ctx context.Context, sessionID, status string) error {
	now := time.Now().UTC()
	var tag string
	args := []any{status, now, sessionID}
	switch status {
	case InterviewStatusInProgress:
		tag = `UPDATE interviews SET status = $1, started_at = $2, updated_at = $2 WHERE session_id = $3`
	case InterviewStatusCompleted, InterviewStatusCancelled:
		tag = `UPDATE interviews
			SET status = $1, ended_at = $2, updated_at = $2,
				duration_minutes = COALESCE(GREATEST(CEIL(EXTRACT(EPOCH FROM ($2 - started_at)) / 60), 0), 0)
			WHERE session_id = $3`
	default:
		tag = `UPDATE interviews SET status = $1, updated_at = $2 WHERE session_id = $3`
	}

	res, err := s.pool.Exec(ctx, tag, args...)
	if err != nil {
		return fmt.Errorf("store: update interview status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- results ----

func (s *Store) CreateResult(ctx context.Context, r *Result) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO interview_results (interview_id, report, technical_skills,
			problem_solving, communication, cultural_fit, overall_impression,
			resume_match, interview_performance, final_score, recommendation,
			scoring_model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		r.InterviewID, r.Report, r.TechnicalSkills, r.ProblemSolving,
		r.Communication, r.CulturalFit, r.OverallImpression, r.ResumeMatch,
		r.InterviewPerformance, r.FinalScore, r.Recommendation, r.ScoringModel)
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return fmt.Errorf("store: create result: %w", err)
	}
	return nil
}

func (s *Store) GetResultByInterview(ctx context.Context, interviewID int64) (*Result, error) {
	var r Result
	row := s.pool.QueryRow(ctx, `
		SELECT id, interview_id, report, technical_skills, problem_solving,
			communication, cultural_fit, overall_impression, resume_match,
			interview_performance, final_score, recommendation, scoring_model,
			created_at
		FROM interview_results WHERE interview_id = $1
		ORDER BY created_at DESC LIMIT 1`, interviewID)
	err := row.Scan(&r.ID, &r.InterviewID, &r.Report, &r.TechnicalSkills,
		&r.ProblemSolving, &r.Communication, &r.CulturalFit,
		&r.OverallImpression, &r.ResumeMatch, &r.InterviewPerformance,
		&r.FinalScore, &r.Recommendation, &r.ScoringModel, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get result: %w", err)
	}
	return &r, nil
}

// ---- analytics ----

func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM jobs WHERE active),
			(SELECT count(*) FROM resumes WHERE active),
			(SELECT count(*) FROM interviews),
			(SELECT count(*) FROM interviews WHERE status = 'completed'),
			(SELECT count(DISTINCT interview_id) FROM interview_results),
			(SELECT avg(final_score) FROM interview_results WHERE final_score IS NOT NULL)`)
	if err := row.Scan(&st.Jobs, &st.Resumes, &st.Interviews,
		&st.CompletedInterviews, &st.ScoredInterviews, &st.AverageFinalScore); err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	return &st, nil
}
