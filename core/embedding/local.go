package embedding

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/fusekb/fusekb/helper"
)

// LocalDimension is the vector length of the default local model,
// sentence-transformers/all-MiniLM-L6-v2.
const LocalDimension = 384

// LocalProvider embeds text with a local sentence transformer model running
// on the hugot Go backend. No network calls after the model download.
type LocalProvider struct {
	session   *hugot.Session
	pipeline  *pipelines.FeatureExtractionPipeline
	dimension int
}

// NewLocalProvider downloads the model if needed and initializes the
// extraction pipeline. Call Close when done to release the session.
func NewLocalProvider(modelName string) (*LocalProvider, error) {
	if modelName == "" {
		modelName = "sentence-transformers/all-MiniLM-L6-v2"
	}

	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, helper.NewError("prepare model", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, helper.NewError("create hugot session", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedding-pipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, helper.NewError("create extraction pipeline", fmt.Errorf("%w (cleanup error: %v)", err, destroyErr))
		}
		return nil, helper.NewError("create extraction pipeline", err)
	}

	return &LocalProvider{
		session:   session,
		pipeline:  pipeline,
		dimension: LocalDimension,
	}, nil
}

// Embed runs the pipeline on a single text.
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch runs the pipeline on all texts in one pass.
func (p *LocalProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for _, text := range texts {
		if text == "" {
			return nil, helper.NewError("embed batch", fmt.Errorf("text is empty"))
		}
	}

	result, err := p.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, helper.NewError("run extraction pipeline", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, helper.NewError("run extraction pipeline", fmt.Errorf("expected %v embeddings, got %v", len(texts), len(result.Embeddings)))
	}

	return result.Embeddings, nil
}

// Dimension returns the vector length of the local model.
func (p *LocalProvider) Dimension() int {
	return p.dimension
}

// Close releases the hugot session.
func (p *LocalProvider) Close() error {
	return p.session.Destroy()
}
