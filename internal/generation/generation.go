// Package generation adapts Genkit model generation to the pipeline's
// Generator port: a verbatim pass-through to the configured language
// model with no local retry, caching, or answer validation.
package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// answerPrompt instructs the model to answer from the retrieved context.
// The context already ends with "Question: <question>"; the question is
// passed once, inside the assembled context.
const answerPrompt = `You are a knowledge-base assistant. Answer the question using only the provided context. If the context does not contain the answer, say so.

%s`

// Generator implements knowledge.Generator via genkit.Generate.
type Generator struct {
	genkit    *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// New creates a generator bound to the given model. An empty modelName
// defers to Genkit's default model. A nil logger falls back to
// slog.Default().
func New(g *genkit.Genkit, modelName string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{genkit: g, modelName: modelName, logger: logger}
}

// Generate produces the final answer from the assembled context. The
// question is already embedded in contextText by the assembler; it is
// accepted separately to honor the port contract and for logging.
func (gen *Generator) Generate(ctx context.Context, contextText, question string) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithPrompt(answerPrompt, contextText),
	}
	if gen.modelName != "" {
		opts = append(opts, ai.WithModelName(gen.modelName))
	}

	resp, err := genkit.Generate(ctx, gen.genkit, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", knowledge.ErrGeneration, err)
	}

	text := resp.Text()
	gen.logger.Debug("generated answer",
		"question_length", len(question),
		"context_length", len(contextText),
		"answer_length", len(text))
	return text, nil
}
