package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hireloop/hireloop/pkg/gateway/live/media"
	"github.com/hireloop/hireloop/pkg/gateway/live/protocol"
	"github.com/hireloop/hireloop/pkg/gateway/live/transcript"
	"github.com/hireloop/hireloop/pkg/gateway/scoring"
	"github.com/hireloop/hireloop/pkg/gateway/store"
)

// ResultStore is the slice of the database the flush pipeline needs.
type ResultStore interface {
	GetInterviewBySession(ctx context.Context, sessionID string) (*store.Interview, error)
	UpdateInterviewStatus(ctx context.Context, sessionID, status string) error
	CreateResult(ctx context.Context, r *store.Result) error
}

// Pipeline turns the buffered media and transcripts of a finished session
// into durable artifacts: WAV files, transcript files, an evaluation report
// and a database row. Every step is best-effort; a failed step is logged
// and the rest still run.
type Pipeline struct {
	Logger            *slog.Logger
	SessionID         string
	RecordingsDir     string
	SendSampleRate    int
	ReceiveSampleRate int
	Media             *media.Buffer
	Transcripts       *transcript.Recorder
	Scorer            scoring.Scorer
	ScoringModel      string
	Store             ResultStore
}

func (p *Pipeline) Flush(ctx context.Context, reason string, info ContextInfo) protocol.ServerRecordings {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := protocol.ServerRecordings{SessionID: p.SessionID}

	if err := os.MkdirAll(p.RecordingsDir, 0o755); err != nil {
		logger.Error("recordings dir unavailable", "session_id", p.SessionID, "error", err)
		return rec
	}

	assistantPCM := p.Media.SnapshotAndClear(media.DirAssistant)
	candidatePCM := p.Media.SnapshotAndClear(media.DirCandidate)

	assistantPath := p.artifactPath("assistant.wav")
	candidatePath := p.artifactPath("candidate.wav")

	var wg sync.WaitGroup
	var assistantErr, candidateErr error
	if len(assistantPCM) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assistantErr = media.WriteWAV(assistantPath, assistantPCM, p.ReceiveSampleRate)
		}()
	}
	if len(candidatePCM) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			candidateErr = media.WriteWAV(candidatePath, candidatePCM, p.SendSampleRate)
		}()
	}
	wg.Wait()

	haveAssistant := len(assistantPCM) > 0 && assistantErr == nil
	haveCandidate := len(candidatePCM) > 0 && candidateErr == nil
	if assistantErr != nil {
		logger.Error("assistant wav write failed", "session_id", p.SessionID, "error", assistantErr)
	}
	if candidateErr != nil {
		logger.Error("candidate wav write failed", "session_id", p.SessionID, "error", candidateErr)
	}
	if haveAssistant {
		rec.AssistantPath = assistantPath
	}
	if haveCandidate {
		rec.CandidatePath = candidatePath
	}

	if haveAssistant && haveCandidate {
		mixPath := p.artifactPath("mix.wav")
		if err := media.MixWAV(assistantPath, candidatePath, mixPath); err != nil {
			logger.Error("mix wav failed", "session_id", p.SessionID, "error", err)
		} else {
			rec.MixPath = mixPath
		}
	}

	entries := p.Transcripts.Drain()
	formatted := transcript.Format(entries)
	if len(entries) > 0 {
		jsonlPath := p.artifactPath("transcripts.jsonl")
		if err := writeJSONL(jsonlPath, entries); err != nil {
			logger.Error("transcripts jsonl write failed", "session_id", p.SessionID, "error", err)
		} else {
			rec.TranscriptsPath = jsonlPath
		}

		if strings.TrimSpace(formatted) != "" {
			formattedPath := p.artifactPath("formatted_transcript.txt")
			if err := os.WriteFile(formattedPath, []byte(formatted+"\n"), 0o644); err != nil {
				logger.Error("formatted transcript write failed", "session_id", p.SessionID, "error", err)
			} else {
				rec.FormattedPath = formattedPath
			}
		}
	}

	logger.Info("session artifacts flushed",
		"session_id", p.SessionID,
		"reason", reason,
		"assistant_bytes", len(assistantPCM),
		"candidate_bytes", len(candidatePCM),
		"transcript_entries", len(entries))

	if p.Scorer != nil && strings.TrimSpace(formatted) != "" {
		if scorePath := p.score(ctx, logger, formatted, info); scorePath != "" {
			rec.ScorePath = scorePath
		}
	}

	if p.Store != nil {
		if err := p.Store.UpdateInterviewStatus(ctx, p.SessionID, store.InterviewStatusCompleted); err != nil {
			logger.Warn("interview status update failed", "session_id", p.SessionID, "error", err)
		}
	}

	return rec
}

func (p *Pipeline) score(ctx context.Context, logger *slog.Logger, formatted string, info ContextInfo) string {
	report, err := p.Scorer.Score(ctx, scoring.Request{
		Transcript:     formatted,
		ResumeText:     info.ResumeText,
		JobDescription: info.JobDescriptionText,
	})
	if err != nil {
		logger.Warn("candidate scoring failed", "session_id", p.SessionID, "error", err)
		return ""
	}

	scorePath := p.artifactPath("score.txt")
	if err := os.WriteFile(scorePath, []byte(report), 0o644); err != nil {
		logger.Error("score write failed", "session_id", p.SessionID, "error", err)
		scorePath = ""
	}

	if p.Store != nil {
		p.persistResult(ctx, logger, report)
	}
	return scorePath
}

func (p *Pipeline) persistResult(ctx context.Context, logger *slog.Logger, report string) {
	interview, err := p.Store.GetInterviewBySession(ctx, p.SessionID)
	if err != nil {
		logger.Warn("no interview row for session, skipping result persistence",
			"session_id", p.SessionID, "error", err)
		return
	}

	scores := scoring.ParseScores(report)
	result := &store.Result{
		InterviewID:          interview.ID,
		Report:               report,
		TechnicalSkills:      scores.TechnicalSkills,
		ProblemSolving:       scores.ProblemSolving,
		Communication:        scores.Communication,
		CulturalFit:          scores.CulturalFit,
		OverallImpression:    scores.OverallImpression,
		ResumeMatch:          scores.ResumeMatch,
		InterviewPerformance: scores.InterviewPerformance,
		FinalScore:           scores.Final,
		Recommendation:       scores.Recommendation,
		ScoringModel:         p.ScoringModel,
	}
	if err := p.Store.CreateResult(ctx, result); err != nil {
		logger.Warn("result persistence failed", "session_id", p.SessionID, "error", err)
	}
}

func (p *Pipeline) artifactPath(suffix string) string {
	return filepath.Join(p.RecordingsDir, fmt.Sprintf("%s_%s", p.SessionID, suffix))
}

func writeJSONL(path string, entries []transcript.Entry) error {
	var sb strings.Builder
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// NewSessionID mints the timestamped identifier used for artifact names.
func NewSessionID(now time.Time) string {
	return "session_" + now.UTC().Format("20060102_150405")
}
