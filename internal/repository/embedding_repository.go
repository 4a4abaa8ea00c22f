package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingColumn selects which stored vector a similarity query compares against
type EmbeddingColumn string

const (
	ColumnCombined EmbeddingColumn = "embedding"
	ColumnEnglish  EmbeddingColumn = "embedding_en"
	ColumnArabic   EmbeddingColumn = "embedding_ar"
)

// expr falls back to the combined vector where the language vector is missing
func (c EmbeddingColumn) expr(alias string) string {
	switch c {
	case ColumnEnglish, ColumnArabic:
		return fmt.Sprintf("COALESCE(%s.%s, %s.embedding)", alias, c, alias)
	default:
		return alias + ".embedding"
	}
}

type EmbeddingRepository struct {
	db *pgxpool.Pool
}

func NewEmbeddingRepository(db *pgxpool.Pool) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// toVector validates the dimension; an empty input is stored as NULL
func toVector(v []float32) (*pgvector.Vector, error) {
	if len(v) == 0 {
		return nil, nil
	}
	if len(v) != entities.EmbeddingDimension {
		return nil, fmt.Errorf("%w: got %d, want %d", entities.ErrDimensionMismatch, len(v), entities.EmbeddingDimension)
	}
	vec := pgvector.NewVector(v)
	return &vec, nil
}

func toVectors(vs ...[]float32) ([]*pgvector.Vector, error) {
	out := make([]*pgvector.Vector, len(vs))
	for i, v := range vs {
		vec, err := toVector(v)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (r *EmbeddingRepository) UpsertArea(ctx context.Context, e *entities.AreaEmbedding) error {
	vecs, err := toVectors(e.Embedding, e.EmbeddingEn, e.EmbeddingAr)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO area_embeddings (area_id, name, name_ar, embedding, embedding_en, embedding_ar)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (area_id) DO UPDATE SET
			name = EXCLUDED.name, name_ar = EXCLUDED.name_ar,
			embedding = EXCLUDED.embedding, embedding_en = EXCLUDED.embedding_en,
			embedding_ar = EXCLUDED.embedding_ar, updated_at = NOW()`,
		e.AreaID, e.Name, e.NameAr, vecs[0], vecs[1], vecs[2])
	return mapError(err)
}

func (r *EmbeddingRepository) UpsertUnitType(ctx context.Context, e *entities.UnitTypeEmbedding) error {
	vecs, err := toVectors(e.Embedding, e.EmbeddingEn, e.EmbeddingAr)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO unit_type_embeddings (unit_type_id, name, name_ar, embedding, embedding_en, embedding_ar)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (unit_type_id) DO UPDATE SET
			name = EXCLUDED.name, name_ar = EXCLUDED.name_ar,
			embedding = EXCLUDED.embedding, embedding_en = EXCLUDED.embedding_en,
			embedding_ar = EXCLUDED.embedding_ar`,
		e.UnitTypeID, e.Name, e.NameAr, vecs[0], vecs[1], vecs[2])
	return mapError(err)
}

func (r *EmbeddingRepository) InsertConversation(ctx context.Context, e *entities.ConversationEmbedding) error {
	vec, err := toVector(e.Embedding)
	if err != nil {
		return err
	}
	metadata := e.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO conversation_embeddings (phone_number, message_type, message_text, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		e.PhoneNumber, e.MessageType, e.MessageText, vec, []byte(metadata),
	).Scan(&e.ID, &e.CreatedAt)
	return mapError(err)
}

// NearestAreas ranks active areas by cosine similarity to query
func (r *EmbeddingRepository) NearestAreas(ctx context.Context, query []float32, column EmbeddingColumn, limit int) ([]entities.Match, error) {
	vec, err := toVector(query)
	if err != nil || vec == nil {
		return nil, err
	}
	expr := column.expr("ae")
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT ae.area_id, ae.name, ae.name_ar, 1 - (%[1]s <=> $1) AS score
		FROM area_embeddings ae
		JOIN areas a ON a.id = ae.area_id
		WHERE a.is_active AND %[1]s IS NOT NULL
		ORDER BY %[1]s <=> $1
		LIMIT $2`, expr), vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

// NearestUnitTypes ranks unit types by cosine similarity to query
func (r *EmbeddingRepository) NearestUnitTypes(ctx context.Context, query []float32, column EmbeddingColumn, limit int) ([]entities.Match, error) {
	vec, err := toVector(query)
	if err != nil || vec == nil {
		return nil, err
	}
	expr := column.expr("ue")
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT ue.unit_type_id, ue.name, ue.name_ar, 1 - (%[1]s <=> $1) AS score
		FROM unit_type_embeddings ue
		WHERE %[1]s IS NOT NULL
		ORDER BY %[1]s <=> $1
		LIMIT $2`, expr), vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

type matchRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMatches(rows matchRows) ([]entities.Match, error) {
	out := []entities.Match{}
	for rows.Next() {
		var m entities.Match
		if err := rows.Scan(&m.ID, &m.Name, &m.NameAr, &m.Score); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SimilarConversations returns stored messages nearest to query, optionally
// restricted to one phone number
func (r *EmbeddingRepository) SimilarConversations(ctx context.Context, query []float32, phone string, limit int) ([]entities.ConversationMatch, error) {
	vec, err := toVector(query)
	if err != nil || vec == nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, phone_number, message_type, message_text, metadata, created_at, 1 - (embedding <=> $1) AS score
		FROM conversation_embeddings
		WHERE embedding IS NOT NULL AND ($2 = '' OR phone_number = $2)
		ORDER BY embedding <=> $1
		LIMIT $3`, vec, phone, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.ConversationMatch{}
	for rows.Next() {
		var m entities.ConversationMatch
		var metadata []byte
		if err := rows.Scan(&m.ID, &m.PhoneNumber, &m.MessageType, &m.MessageText, &metadata, &m.CreatedAt, &m.Score); err != nil {
			return nil, err
		}
		m.Metadata = metadata
		out = append(out, m)
	}
	return out, rows.Err()
}

// MessageCounts returns inbound and outbound message totals per day for the last days
func (r *EmbeddingRepository) MessageCounts(ctx context.Context, days int) ([]entities.DailyMessages, error) {
	rows, err := r.db.Query(ctx, `
		SELECT to_char(created_at::date, 'YYYY-MM-DD'),
			COUNT(*) FILTER (WHERE message_type = $1),
			COUNT(*) FILTER (WHERE message_type = $2)
		FROM conversation_embeddings
		WHERE created_at >= CURRENT_DATE - ($3 - 1) * INTERVAL '1 day'
		GROUP BY created_at::date
		ORDER BY created_at::date`, entities.MessageInbound, entities.MessageOutbound, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.DailyMessages{}
	for rows.Next() {
		var d entities.DailyMessages
		if err := rows.Scan(&d.Date, &d.Inbound, &d.Outbound); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
