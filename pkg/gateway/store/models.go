package store

import "time"

// Job is an open position candidates interview for.
type Job struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	DescriptionText string    `json:"descriptionText"`
	Requirements    string    `json:"requirements,omitempty"`
	SkillsRequired  []string  `json:"skillsRequired,omitempty"`
	ExperienceLevel string    `json:"experienceLevel,omitempty"`
	Location        string    `json:"location,omitempty"`
	SalaryRange     string    `json:"salaryRange,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Resume is one candidate profile.
type Resume struct {
	ID              int64     `json:"id"`
	CandidateName   string    `json:"candidateName"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	ResumeText      string    `json:"resumeText"`
	Skills          []string  `json:"skills,omitempty"`
	ExperienceYears int       `json:"experienceYears,omitempty"`
	Education       string    `json:"education,omitempty"`
	LinkedInURL     string    `json:"linkedinUrl,omitempty"`
	PortfolioURL    string    `json:"portfolioUrl,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Interview statuses follow the lifecycle of a live session.
const (
	InterviewStatusScheduled  = "scheduled"
	InterviewStatusInProgress = "in_progress"
	InterviewStatusCompleted  = "completed"
	InterviewStatusCancelled  = "cancelled"
)

// Interview ties a session to a job and a resume.
type Interview struct {
	ID              int64      `json:"id"`
	SessionID       string     `json:"sessionId"`
	JobID           int64      `json:"jobId"`
	ResumeID        int64      `json:"resumeId"`
	Status          string     `json:"status"`
	ScheduledAt     *time.Time `json:"scheduledAt,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Result is the scored outcome of a completed interview. Nil score fields
// mean the evaluation did not mention that criterion.
type Result struct {
	ID                   int64     `json:"id"`
	InterviewID          int64     `json:"interviewId"`
	Report               string    `json:"report"`
	TechnicalSkills      *float64  `json:"technicalSkills,omitempty"`
	ProblemSolving       *float64  `json:"problemSolving,omitempty"`
	Communication        *float64  `json:"communication,omitempty"`
	CulturalFit          *float64  `json:"culturalFit,omitempty"`
	OverallImpression    *float64  `json:"overallImpression,omitempty"`
	ResumeMatch          *float64  `json:"resumeMatch,omitempty"`
	InterviewPerformance *float64  `json:"interviewPerformance,omitempty"`
	FinalScore           *float64  `json:"finalScore,omitempty"`
	Recommendation       string    `json:"recommendation"`
	ScoringModel         string    `json:"scoringModel"`
	CreatedAt            time.Time `json:"createdAt"`
}

// Stats is an aggregate snapshot for the analytics endpoint.
type Stats struct {
	Jobs                int64    `json:"jobs"`
	Resumes             int64    `json:"resumes"`
	Interviews          int64    `json:"interviews"`
	CompletedInterviews int64    `json:"completedInterviews"`
	ScoredInterviews    int64    `json:"scoredInterviews"`
	AverageFinalScore   *float64 `json:"averageFinalScore,omitempty"`
}
