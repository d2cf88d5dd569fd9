package scoring

import "testing"

const sampleReport = `
CANDIDATE EVALUATION

1. Technical Skills: 8/10
Strong grasp of distributed systems.

2. Problem-Solving Ability: 7.5/10
Methodical, asked clarifying questions.

3. Communication Skills: 9/10

4. Cultural Fit: 8/10

5. Overall Impression: 8/10

Resume Match: 7/10
Interview Performance: 8/10

Final Score: 7.5/10

Recommendation: hire. We recommend moving forward.
`

func TestParseScores_ExtractsAllCriteria(t *testing.T) {
	scores := ParseScores(sampleReport)

	checks := []struct {
		name string
		got  *float64
		want float64
	}{
		{"technical", scores.TechnicalSkills, 8},
		{"problem solving", scores.ProblemSolving, 7.5},
		{"communication", scores.Communication, 9},
		{"cultural fit", scores.CulturalFit, 8},
		{"resume match", scores.ResumeMatch, 7},
		{"interview performance", scores.InterviewPerformance, 8},
		{"final", scores.Final, 7.5},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Fatalf("%s score missing", c.name)
		}
		if *c.got != c.want {
			t.Fatalf("%s score=%v, want %v", c.name, *c.got, c.want)
		}
	}
	if scores.Recommendation != "hire" {
		t.Fatalf("recommendation=%q, want hire", scores.Recommendation)
	}
}

func TestParseScores_FinalFallsBackToMean(t *testing.T) {
	scores := ParseScores("Technical: 6/10\nCommunication: 8/10")
	if scores.Final == nil {
		t.Fatalf("expected fallback final score")
	}
	if *scores.Final != 7 {
		t.Fatalf("final=%v, want mean 7", *scores.Final)
	}
}

func TestParseScores_EmptyReport(t *testing.T) {
	scores := ParseScores("no numbers here")
	if scores.Final != nil {
		t.Fatalf("final=%v, want nil", *scores.Final)
	}
	if scores.Recommendation != "pending" {
		t.Fatalf("recommendation=%q, want pending", scores.Recommendation)
	}
}

func TestParseRecommendation(t *testing.T) {
	tests := []struct {
		report string
		want   string
	}{
		{"we recommend hiring this candidate", "hire"},
		{"we do not recommend; reject", "reject"},
		{"strong candidate but we recommend a second interview first", "hire"},
		{"maybe worth a second interview", "second_interview"},
		{"needs further evaluation", "second_interview"},
		{"inconclusive", "pending"},
	}
	for _, tc := range tests {
		if got := parseRecommendation(tc.report); got != tc.want {
			t.Fatalf("parseRecommendation(%q)=%q, want %q", tc.report, got, tc.want)
		}
	}
}
