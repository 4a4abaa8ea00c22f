package interview

import (
	"context"
	"strings"
	"unicode"
)

// MaxAnswerScore is the top of the per-answer scale
const MaxAnswerScore = 10.0

// Score is a single answer's grade
type Score struct {
	Value    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Scorer grades one answer to one question
type Scorer interface {
	Score(ctx context.Context, phase Phase, q Question, answer string) (Score, error)
}

// HeuristicScorer grades offline: half the scale for answer depth
// (word count up to fullLengthWords), half for keyword coverage.
type HeuristicScorer struct {
	fullLengthWords int
}

func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{fullLengthWords: 40}
}

func (h *HeuristicScorer) Score(_ context.Context, _ Phase, q Question, answer string) (Score, error) {
	words := tokenize(answer)
	if len(words) == 0 {
		return Score{Value: 0, Feedback: "No answer given."}, nil
	}

	depth := float64(len(words)) / float64(h.fullLengthWords)
	if depth > 1 {
		depth = 1
	}

	coverage := depth
	if len(q.Keywords) > 0 {
		seen := make(map[string]bool, len(words))
		for _, w := range words {
			seen[w] = true
		}
		hit := 0
		for _, k := range q.Keywords {
			if seen[strings.ToLower(k)] {
				hit++
			}
		}
		// Covering half the keywords earns the full coverage share
		coverage = float64(hit) / (float64(len(q.Keywords)) / 2)
		if coverage > 1 {
			coverage = 1
		}
	}

	value := round2(MaxAnswerScore/2*depth + MaxAnswerScore/2*coverage)
	feedback := "Good, detailed answer."
	switch {
	case depth < 0.5:
		feedback = "Answer is short; more detail would help."
	case coverage < 0.5:
		feedback = "Answer misses key points expected for this question."
	}
	return Score{Value: value, Feedback: feedback}, nil
}

// FallbackScorer tries primary and uses secondary when it fails
type FallbackScorer struct {
	Primary   Scorer
	Secondary Scorer
	OnError   func(error)
}

func (f FallbackScorer) Score(ctx context.Context, phase Phase, q Question, answer string) (Score, error) {
	if f.Primary != nil {
		s, err := f.Primary.Score(ctx, phase, q, answer)
		if err == nil {
			return s, nil
		}
		if f.OnError != nil {
			f.OnError(err)
		}
	}
	return f.Secondary.Score(ctx, phase, q, answer)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
