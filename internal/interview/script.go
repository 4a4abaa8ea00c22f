package interview

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"estate_crm/internal/entities"

	"gopkg.in/yaml.v3"
)

//go:embed default_script.yaml
var defaultScript []byte

type Question struct {
	Text     string   `yaml:"text"`
	Keywords []string `yaml:"keywords"`
}

type Phase struct {
	Number    int        `yaml:"number"`
	Name      string     `yaml:"name"`
	Weight    float64    `yaml:"weight"`
	Questions []Question `yaml:"questions"`
}

// Script is the ordered list of interview phases
type Script struct {
	Phases []Phase `yaml:"phases"`
}

// DefaultScript returns the script compiled into the binary
func DefaultScript() (*Script, error) {
	return ParseScript(defaultScript)
}

// LoadScript reads a YAML script from path, or the default one when path is empty
func LoadScript(path string) (*Script, error) {
	if path == "" {
		return DefaultScript()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interview script: %w", err)
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse interview script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks there are exactly six phases numbered 1..6 in order,
// each with a positive weight and at least one question.
func (s *Script) Validate() error {
	if len(s.Phases) != entities.InterviewPhases {
		return fmt.Errorf("%w: script must have %d phases, got %d", entities.ErrInvalidInput, entities.InterviewPhases, len(s.Phases))
	}
	for i, p := range s.Phases {
		if p.Number != i+1 {
			return fmt.Errorf("%w: phase at position %d is numbered %d", entities.ErrInvalidInput, i+1, p.Number)
		}
		if p.Weight <= 0 {
			return fmt.Errorf("%w: phase %d weight must be positive", entities.ErrInvalidInput, p.Number)
		}
		if len(p.Questions) == 0 {
			return fmt.Errorf("%w: phase %d has no questions", entities.ErrInvalidInput, p.Number)
		}
		for j, q := range p.Questions {
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("%w: phase %d question %d is empty", entities.ErrInvalidInput, p.Number, j)
			}
		}
	}
	return nil
}

// Phase returns phase n (1-based)
func (s *Script) Phase(n int) (Phase, bool) {
	if n < 1 || n > len(s.Phases) {
		return Phase{}, false
	}
	return s.Phases[n-1], true
}

// TotalQuestions is the length of a full interview
func (s *Script) TotalQuestions() int {
	n := 0
	for _, p := range s.Phases {
		n += len(p.Questions)
	}
	return n
}
