package entities

import "time"

// InterviewPhases is the number of scripted phases in a broker interview
const InterviewPhases = 6

// InterviewAnswer is one scored turn of the interview transcript
type InterviewAnswer struct {
	Phase         int       `json:"phase"`
	QuestionIndex int       `json:"question_index"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Score         float64   `json:"score"` // 0-10
	Feedback      string    `json:"feedback,omitempty"`
	AnsweredAt    time.Time `json:"answered_at"`
}

// InterviewSession is the persisted state of a broker interview
type InterviewSession struct {
	ID                 string                   `json:"id"`
	ApplicationID      int                      `json:"application_id"`
	UserID             int                      `json:"user_id"`
	CurrentPhase       int                      `json:"current_phase"` // 1-6
	PhaseQuestionIndex int                      `json:"phase_question_index"`
	PhaseScores        [InterviewPhases]float64 `json:"phase_scores"` // 0-100 each
	TotalScore         float64                  `json:"total_score"`
	IsComplete         bool                     `json:"is_complete"`
	Passed             bool                     `json:"passed"`
	Transcript         []InterviewAnswer        `json:"transcript"`
	StartedAt          time.Time                `json:"started_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
	CompletedAt        *time.Time               `json:"completed_at,omitempty"`
}

// InterviewQuestion is what the broker is asked next
type InterviewQuestion struct {
	Phase         int    `json:"phase"`
	PhaseName     string `json:"phase_name"`
	QuestionIndex int    `json:"question_index"`
	Text          string `json:"text"`
}

// InterviewView is the API shape of a session and its next step
type InterviewView struct {
	Session      *InterviewSession  `json:"session"`
	NextQuestion *InterviewQuestion `json:"next_question,omitempty"`
	LastFeedback string             `json:"last_feedback,omitempty"`
	PassScore    float64            `json:"pass_score"`
}
