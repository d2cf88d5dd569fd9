// Package scoring evaluates a completed interview with the Gemini API and
// extracts structured scores from the free-form evaluation text.
package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

// Request bundles the material the evaluation is based on.
type Request struct {
	Transcript     string
	ResumeText     string
	JobDescription string
}

// Scorer produces a free-form evaluation report for an interview.
type Scorer interface {
	Score(ctx context.Context, req Request) (string, error)
}

const rubricPrompt = `Score the candidate based on the following criteria:
1. Technical Skills: Evaluate the candidate's proficiency in relevant technical skills and knowledge.
2. Problem-Solving Ability: Assess the candidate's ability to analyze and solve problems effectively.
3. Communication Skills: Rate the candidate's ability to communicate ideas clearly and effectively.
4. Cultural Fit: Determine how well the candidate aligns with the company's values and culture.
5. Overall Impression: Provide an overall score based on the candidate's performance during the interview.

Give reasonings and key takeaways for each criteria. Provide a final score out of 10.
Give scores for resume match and interview performance separately and then take an average of both to give final score out of 10.

Format your response with clear sections and numerical scores out of 10 for each criteria.`

// GeminiScorer evaluates interviews with a non-live Gemini model.
type GeminiScorer struct {
	client *genai.Client
	model  string
}

func NewGeminiScorer(client *genai.Client, model string) *GeminiScorer {
	return &GeminiScorer{client: client, model: model}
}

func (s *GeminiScorer) Score(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return "", fmt.Errorf("scoring: empty transcript")
	}

	parts := []*genai.Part{{Text: "Interview transcript:\n\n" + req.Transcript}}
	if strings.TrimSpace(req.ResumeText) != "" {
		parts = append(parts, &genai.Part{Text: "Candidate resume:\n\n" + req.ResumeText})
	}
	if strings.TrimSpace(req.JobDescription) != "" {
		parts = append(parts, &genai.Part{Text: "Job description:\n\n" + req.JobDescription})
	}
	parts = append(parts, &genai.Part{Text: rubricPrompt})

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("scoring: generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("scoring: model returned no text")
	}
	return text, nil
}

// Scores is the structured extraction from an evaluation report. Nil fields
// mean the report did not mention that criterion.
type Scores struct {
	TechnicalSkills      *float64
	ProblemSolving       *float64
	Communication        *float64
	CulturalFit          *float64
	OverallImpression    *float64
	ResumeMatch          *float64
	InterviewPerformance *float64
	Final                *float64
	Recommendation       string
}

var scorePatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"technical_skills", regexp.MustCompile(`(?is)technical.*?(\d+(?:\.\d+)?)/10`)},
	{"problem_solving", regexp.MustCompile(`(?is)problem[\s\-]*solving.*?(\d+(?:\.\d+)?)/10`)},
	{"communication", regexp.MustCompile(`(?is)communication.*?(\d+(?:\.\d+)?)/10`)},
	{"cultural_fit", regexp.MustCompile(`(?is)cultural.*?fit.*?(\d+(?:\.\d+)?)/10`)},
	{"overall", regexp.MustCompile(`(?is)overall.*?(\d+(?:\.\d+)?)/10`)},
	{"resume_match", regexp.MustCompile(`(?is)resume.*?match.*?(\d+(?:\.\d+)?)/10`)},
	{"interview_performance", regexp.MustCompile(`(?is)interview.*?performance.*?(\d+(?:\.\d+)?)/10`)},
}

var finalScorePattern = regexp.MustCompile(`(?is)final.*?score.*?(\d+(?:\.\d+)?)/10`)

// ParseScores extracts numeric scores and a recommendation from a free-form
// evaluation. It never fails: when the report names no explicit final score,
// the mean of the criterion scores found stands in for it.
func ParseScores(report string) Scores {
	lower := strings.ToLower(report)
	var out Scores

	assign := func(name string, v float64) {
		value := v
		switch name {
		case "technical_skills":
			out.TechnicalSkills = &value
		case "problem_solving":
			out.ProblemSolving = &value
		case "communication":
			out.Communication = &value
		case "cultural_fit":
			out.CulturalFit = &value
		case "overall":
			out.OverallImpression = &value
		case "resume_match":
			out.ResumeMatch = &value
		case "interview_performance":
			out.InterviewPerformance = &value
		}
	}

	for _, sp := range scorePatterns {
		m := sp.pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		assign(sp.name, v)
	}

	if m := finalScorePattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.Final = &v
		}
	}
	if out.Final == nil {
		var sum float64
		var n int
		for _, v := range []*float64{
			out.TechnicalSkills, out.ProblemSolving, out.Communication,
			out.CulturalFit, out.OverallImpression, out.ResumeMatch,
			out.InterviewPerformance,
		} {
			if v != nil {
				sum += *v
				n++
			}
		}
		if n > 0 {
			mean := sum / float64(n)
			out.Final = &mean
		}
	}

	out.Recommendation = parseRecommendation(lower)
	return out
}

func parseRecommendation(lower string) string {
	positive := containsAny(lower, "recommend", "hire", "accept")
	negative := containsAny(lower, "reject", "not recommend", "decline")
	switch {
	case positive && negative:
		return "reject"
	case positive:
		return "hire"
	case containsAny(lower, "maybe", "second interview", "further"):
		return "second_interview"
	default:
		return "pending"
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
