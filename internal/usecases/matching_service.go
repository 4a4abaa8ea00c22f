package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"estate_crm/internal/entities"
	"estate_crm/internal/repository"

	"github.com/rs/zerolog/log"
)

// DefaultMinSimilarity is the lowest cosine similarity accepted as a match
const DefaultMinSimilarity = 0.75

// MatchingService resolves free text to areas and unit types: first by
// name containment, then by embedding similarity
type MatchingService struct {
	areas         AreaStore
	unitTypes     UnitTypeStore
	embeddings    EmbeddingStore
	embedder      Embedder // nil disables the vector stage
	minSimilarity float64
}

func NewMatchingService(areas AreaStore, unitTypes UnitTypeStore, embeddings EmbeddingStore, embedder Embedder, minSimilarity float64) *MatchingService {
	if minSimilarity <= 0 || minSimilarity > 1 {
		minSimilarity = DefaultMinSimilarity
	}
	return &MatchingService{
		areas:         areas,
		unitTypes:     unitTypes,
		embeddings:    embeddings,
		embedder:      embedder,
		minSimilarity: minSimilarity,
	}
}

func (s *MatchingService) VectorsEnabled() bool {
	return s.embedder != nil
}

// IsArabic reports whether most letters of text are Arabic script
func IsArabic(text string) bool {
	var arabic, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	return letters > 0 && arabic*2 > letters
}

func columnFor(text string) repository.EmbeddingColumn {
	if IsArabic(text) {
		return repository.ColumnArabic
	}
	return repository.ColumnEnglish
}

// MatchArea returns the area text refers to, or nil when nothing is close enough
func (s *MatchingService) MatchArea(ctx context.Context, text string) (*entities.Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	area, err := s.areas.FindMentioned(ctx, text)
	if err == nil {
		return &entities.Match{ID: area.ID, Name: area.Name, NameAr: area.NameAr, Score: 1}, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	if s.embedder == nil {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed area query: %w", err)
	}
	matches, err := s.embeddings.NearestAreas(ctx, vec, columnFor(text), 1)
	if err != nil {
		return nil, err
	}
	return s.best(matches), nil
}

// MatchUnitType returns the unit type text refers to, or nil
func (s *MatchingService) MatchUnitType(ctx context.Context, text string) (*entities.Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	t, err := s.unitTypes.FindMentioned(ctx, text)
	if err == nil {
		return &entities.Match{ID: t.ID, Name: t.Name, NameAr: t.NameAr, Score: 1}, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	if s.embedder == nil {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed unit type query: %w", err)
	}
	matches, err := s.embeddings.NearestUnitTypes(ctx, vec, columnFor(text), 1)
	if err != nil {
		return nil, err
	}
	return s.best(matches), nil
}

func (s *MatchingService) best(matches []entities.Match) *entities.Match {
	if len(matches) == 0 || matches[0].Score < s.minSimilarity {
		return nil
	}
	return &matches[0]
}

// SearchAreas ranks area candidates for q with their similarity scores
func (s *MatchingService) SearchAreas(ctx context.Context, q string, limit int) ([]entities.Match, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", entities.ErrInvalidInput)
	}
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	if s.embedder == nil {
		m, err := s.MatchArea(ctx, q)
		if err != nil || m == nil {
			return []entities.Match{}, err
		}
		return []entities.Match{*m}, nil
	}
	vec, err := s.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embed area query: %w", err)
	}
	return s.embeddings.NearestAreas(ctx, vec, columnFor(q), limit)
}

// SimilarConversations finds stored chatbot messages close to q
func (s *MatchingService) SimilarConversations(ctx context.Context, q, phone string, limit int) ([]entities.ConversationMatch, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", entities.ErrInvalidInput)
	}
	if s.embedder == nil {
		return []entities.ConversationMatch{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	vec, err := s.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embed conversation query: %w", err)
	}
	return s.embeddings.SimilarConversations(ctx, vec, phone, limit)
}

// embedNames returns the combined, English and Arabic vectors of a name pair
func (s *MatchingService) embedNames(ctx context.Context, name, nameAr string) (combined, en, ar []float32, err error) {
	combined, err = s.embedder.Embed(ctx, strings.TrimSpace(name+" "+nameAr))
	if err != nil {
		return nil, nil, nil, err
	}
	if en, err = s.embedder.Embed(ctx, name); err != nil {
		return nil, nil, nil, err
	}
	if nameAr != "" {
		if ar, err = s.embedder.Embed(ctx, nameAr); err != nil {
			return nil, nil, nil, err
		}
	}
	return combined, en, ar, nil
}

func (s *MatchingService) IndexArea(ctx context.Context, a entities.Area) error {
	if s.embedder == nil {
		return nil
	}
	combined, en, ar, err := s.embedNames(ctx, a.Name, a.NameAr)
	if err != nil {
		return fmt.Errorf("embed area %d: %w", a.ID, err)
	}
	return s.embeddings.UpsertArea(ctx, &entities.AreaEmbedding{
		AreaID: a.ID, Name: a.Name, NameAr: a.NameAr,
		Embedding: combined, EmbeddingEn: en, EmbeddingAr: ar,
	})
}

func (s *MatchingService) IndexUnitType(ctx context.Context, t entities.UnitType) error {
	if s.embedder == nil {
		return nil
	}
	combined, en, ar, err := s.embedNames(ctx, t.Name, t.NameAr)
	if err != nil {
		return fmt.Errorf("embed unit type %d: %w", t.ID, err)
	}
	return s.embeddings.UpsertUnitType(ctx, &entities.UnitTypeEmbedding{
		UnitTypeID: t.ID, Name: t.Name, NameAr: t.NameAr,
		Embedding: combined, EmbeddingEn: en, EmbeddingAr: ar,
	})
}

// IndexAll recomputes the vectors of every area and unit type
func (s *MatchingService) IndexAll(ctx context.Context) (int, int, error) {
	if s.embedder == nil {
		return 0, 0, fmt.Errorf("%w: no embedder configured", entities.ErrInvalidInput)
	}
	areas, err := s.areas.List(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	for _, a := range areas {
		if err := s.IndexArea(ctx, a); err != nil {
			return 0, 0, err
		}
	}
	types, err := s.unitTypes.List(ctx)
	if err != nil {
		return len(areas), 0, err
	}
	for _, t := range types {
		if err := s.IndexUnitType(ctx, t); err != nil {
			return len(areas), 0, err
		}
	}
	log.Info().Int("areas", len(areas)).Int("unit_types", len(types)).Msg("embeddings indexed")
	return len(areas), len(types), nil
}

// StoreMessage keeps a chatbot message for similarity search. Without an
// embedder the message is stored with no vector.
func (s *MatchingService) StoreMessage(ctx context.Context, phone, direction, text string, metadata map[string]string) error {
	var vec []float32
	if s.embedder != nil {
		var err error
		if vec, err = s.embedder.Embed(ctx, text); err != nil {
			return fmt.Errorf("embed message: %w", err)
		}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return s.embeddings.InsertConversation(ctx, &entities.ConversationEmbedding{
		PhoneNumber: phone,
		MessageType: direction,
		MessageText: text,
		Embedding:   vec,
		Metadata:    meta,
	})
}
