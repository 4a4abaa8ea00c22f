package infrastructure

import (
	"context"
	"fmt"

	"estate_crm/internal/entities"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultEmbeddingModel = "text-embedding-3-small"

	// maxEmbeddingTokens is the input limit of the OpenAI embedding models
	maxEmbeddingTokens = 8191
)

// Embedder turns text into fixed-length vectors through the OpenAI embeddings API
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	encoding  *tiktoken.Tiktoken
}

func NewEmbedder(apiKey, model string, dimension int) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if dimension <= 0 {
		dimension = entities.EmbeddingDimension
	}
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &Embedder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		dimension: dimension,
		encoding:  encoding,
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed embeds up to 100 texts in one call
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	if len(texts) > 100 {
		return nil, fmt.Errorf("batch size exceeds maximum of 100")
	}

	ctx, span := StartSpan(ctx, "openai.embeddings")
	defer span.End()

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = e.truncate(t)
	}

	params := openai.EmbeddingNewParams{
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dimension)),
	}
	if len(inputs) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(inputs[0])}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs}
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		SpanError(ctx, err)
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: got %d, want %d", entities.ErrDimensionMismatch, len(data.Embedding), e.dimension)
		}
		v := make([]float32, len(data.Embedding))
		for i, f := range data.Embedding {
			v[i] = float32(f)
		}
		vectors[data.Index] = v
	}
	return vectors, nil
}

// truncate cuts text to the model's token limit
func (e *Embedder) truncate(text string) string {
	tokens := e.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxEmbeddingTokens {
		return text
	}
	return e.encoding.Decode(tokens[:maxEmbeddingTokens])
}
