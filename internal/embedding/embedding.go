package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/mkarjala/curio/internal/llm"
)

const embeddingModel = "gemini-embedding-001"

// Embedder can produce an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder produces embeddings via Google's Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
}

// NewGeminiEmbedder creates a Gemini-backed embedder.
// It uses the GEMINI_API_KEY environment variable for authentication.
func NewGeminiEmbedder(ctx context.Context) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client}, nil
}

// Embed implements the Embedder interface.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, embeddingModel, []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embeddings[0].Values, nil
}

// Result holds the embeddings generated for one item.
type Result struct {
	ImageEmbedding    []float32
	MetadataEmbedding []float32
}

// Generate produces embeddings for an image and its metadata. The two
// requests are independent, side-effect-free calls issued concurrently and
// awaited jointly; neither depends on the other's result.
func Generate(ctx context.Context, embedder Embedder, img llm.ImageBlob, metadata string) (*Result, error) {
	var result Result
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := embedder.Embed(ctx, img.DataURI())
		if err != nil {
			log.Error().Err(err).Msg("failed to embed image")
			return err
		}
		result.ImageEmbedding = v
		return nil
	})
	g.Go(func() error {
		v, err := embedder.Embed(ctx, metadata)
		if err != nil {
			log.Error().Err(err).Msg("failed to embed metadata")
			return err
		}
		result.MetadataEmbedding = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindSimilar searches the inventory for items similar to the given
// embeddings, excluding the item itself.
//
// TODO: implement a real nearest-neighbor search over stored embeddings; for
// now this returns no matches.
func FindSimilar(ctx context.Context, imageEmbedding, metadataEmbedding []float32, excludeID string) []string {
	log.Debug().
		Int("imageDims", len(imageEmbedding)).
		Int("metadataDims", len(metadataEmbedding)).
		Str("excludeID", excludeID).
		Msg("similarity search not implemented")
	return nil
}
