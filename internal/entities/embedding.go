package entities

import (
	"encoding/json"
	"time"
)

// EmbeddingDimension is the fixed length of every stored vector
const EmbeddingDimension = 1024

type AreaEmbedding struct {
	AreaID      int       `json:"area_id"`
	Name        string    `json:"name"`
	NameAr      string    `json:"name_ar"`
	Embedding   []float32 `json:"-"` // name + name_ar
	EmbeddingEn []float32 `json:"-"`
	EmbeddingAr []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UnitTypeEmbedding struct {
	UnitTypeID  int       `json:"unit_type_id"`
	Name        string    `json:"name"`
	NameAr      string    `json:"name_ar"`
	Embedding   []float32 `json:"-"`
	EmbeddingEn []float32 `json:"-"`
	EmbeddingAr []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type ConversationEmbedding struct {
	ID          int             `json:"id"`
	PhoneNumber string          `json:"phone_number"`
	MessageType string          `json:"message_type"`
	MessageText string          `json:"message_text"`
	Embedding   []float32       `json:"-"`
	Metadata    json.RawMessage `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Match is one similarity hit; Score is 1 - cosine distance
type Match struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	NameAr string  `json:"name_ar"`
	Score  float64 `json:"score"`
}

type ConversationMatch struct {
	ConversationEmbedding
	Score float64 `json:"score"`
}
