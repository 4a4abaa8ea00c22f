package interview

import (
	"fmt"
	"math"
	"strings"
	"time"

	"estate_crm/internal/entities"
)

// DefaultPassScore is the minimum total score that approves a broker
const DefaultPassScore = 75.0

// Machine drives an InterviewSession through the phases of a Script.
// It holds no per-session state; the session value is the whole state.
type Machine struct {
	script    *Script
	passScore float64
}

func NewMachine(script *Script, passScore float64) *Machine {
	if passScore <= 0 {
		passScore = DefaultPassScore
	}
	return &Machine{script: script, passScore: passScore}
}

func (m *Machine) PassScore() float64 { return m.passScore }

func (m *Machine) Script() *Script { return m.script }

// Begin resets s to the first question of phase 1
func (m *Machine) Begin(s *entities.InterviewSession, now time.Time) {
	s.CurrentPhase = 1
	s.PhaseQuestionIndex = 0
	s.PhaseScores = [entities.InterviewPhases]float64{}
	s.TotalScore = 0
	s.IsComplete = false
	s.Passed = false
	s.Transcript = []entities.InterviewAnswer{}
	s.StartedAt = now
	s.UpdatedAt = now
	s.CompletedAt = nil
}

// Current returns the question s is waiting on, or nil once complete
func (m *Machine) Current(s *entities.InterviewSession) (*entities.InterviewQuestion, error) {
	if s.IsComplete {
		return nil, nil
	}
	p, ok := m.script.Phase(s.CurrentPhase)
	if !ok {
		return nil, fmt.Errorf("%w: session phase %d out of range", entities.ErrInvalidInput, s.CurrentPhase)
	}
	if s.PhaseQuestionIndex < 0 || s.PhaseQuestionIndex >= len(p.Questions) {
		return nil, fmt.Errorf("%w: question index %d out of range for phase %d", entities.ErrInvalidInput, s.PhaseQuestionIndex, p.Number)
	}
	return &entities.InterviewQuestion{
		Phase:         p.Number,
		PhaseName:     p.Name,
		QuestionIndex: s.PhaseQuestionIndex,
		Text:          p.Questions[s.PhaseQuestionIndex].Text,
	}, nil
}

// CurrentQuestion returns the script question (with keywords) s is waiting on
func (m *Machine) CurrentQuestion(s *entities.InterviewSession) (Question, error) {
	if s.IsComplete {
		return Question{}, entities.ErrInterviewComplete
	}
	p, ok := m.script.Phase(s.CurrentPhase)
	if !ok || s.PhaseQuestionIndex < 0 || s.PhaseQuestionIndex >= len(p.Questions) {
		return Question{}, fmt.Errorf("%w: session position %d/%d out of range", entities.ErrInvalidInput, s.CurrentPhase, s.PhaseQuestionIndex)
	}
	return p.Questions[s.PhaseQuestionIndex], nil
}

// Record stores a scored answer to the current question and advances s.
// Finishing a phase fixes its score; finishing phase 6 completes s.
func (m *Machine) Record(s *entities.InterviewSession, answer string, score Score, now time.Time) error {
	if s.IsComplete {
		return entities.ErrInterviewComplete
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return entities.ErrEmptyAnswer
	}
	q, err := m.Current(s)
	if err != nil {
		return err
	}

	s.Transcript = append(s.Transcript, entities.InterviewAnswer{
		Phase:         q.Phase,
		QuestionIndex: q.QuestionIndex,
		Question:      q.Text,
		Answer:        answer,
		Score:         clamp(score.Value, 0, MaxAnswerScore),
		Feedback:      score.Feedback,
		AnsweredAt:    now,
	})
	s.UpdatedAt = now

	p, _ := m.script.Phase(s.CurrentPhase)
	s.PhaseQuestionIndex++
	if s.PhaseQuestionIndex < len(p.Questions) {
		return nil
	}

	s.PhaseScores[p.Number-1] = phaseScore(s.Transcript, p.Number)
	if s.CurrentPhase < entities.InterviewPhases {
		s.CurrentPhase++
		s.PhaseQuestionIndex = 0
		return nil
	}

	m.complete(s, now)
	return nil
}

func (m *Machine) complete(s *entities.InterviewSession, now time.Time) {
	var weighted, weights float64
	for i, p := range m.script.Phases {
		weighted += p.Weight * s.PhaseScores[i]
		weights += p.Weight
	}
	total := 0.0
	if weights > 0 {
		total = weighted / weights
	}
	s.TotalScore = round2(total)
	s.Passed = s.TotalScore >= m.passScore
	s.IsComplete = true
	// Index stays on the last question of phase 6
	s.PhaseQuestionIndex = len(m.script.Phases[entities.InterviewPhases-1].Questions) - 1
	s.CompletedAt = &now
}

// Progress is answered / total questions, 0..1
func (m *Machine) Progress(s *entities.InterviewSession) float64 {
	total := m.script.TotalQuestions()
	if total == 0 {
		return 0
	}
	return float64(len(s.Transcript)) / float64(total)
}

// phaseScore is the mean answer score of a phase scaled to 0..100
func phaseScore(transcript []entities.InterviewAnswer, phase int) float64 {
	var sum float64
	var n int
	for _, a := range transcript {
		if a.Phase == phase {
			sum += a.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n) * 100 / MaxAnswerScore)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
