package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"groundnote/internal/model"
)

const (
	groundedDirective = "You are a study assistant. Answer the user's question using ONLY the " +
		"numbered context passages from their notes. Cite passages by their number, like [1]. " +
		"If the context does not contain the answer, say so explicitly. Do not make up facts."

	fallbackDirective = "You are a study assistant. The user's notes did not contain material " +
		"relevant to this question. Answer from general knowledge, and begin by noting that " +
		"the answer was not found in their notes."

	apologyText = "Sorry, I could not generate an answer right now. Please try again."

	prefixFromContext = "[From your notes]"
	prefixFromGeneral = "[General knowledge]"
)

// Orchestrator produces the final labeled, cited answer, degrading gracefully
// on any upstream failure. Every query-time failure still yields a valid
// answer object.
type Orchestrator struct {
	generator Generator
	logger    *slog.Logger
}

func NewOrchestrator(generator Generator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{generator: generator, logger: logger}
}

// Answer builds the directive for the grounded or fallback path, calls the
// generator once, and assembles the labeled answer. retrievalErr carries an
// upstream retrieval failure; it selects the fallback path rather than
// surfacing to the caller.
func (o *Orchestrator) Answer(ctx context.Context, query string, result *RetrievalResult, retrievalErr error) *GenerationAnswer {
	start := time.Now()

	if retrievalErr != nil {
		o.logger.Warn("retrieval failed, answering ungrounded", "error", retrievalErr)
	}
	grounded := retrievalErr == nil && result != nil && result.GroundedInContext

	var directive, userMessage string
	var citations []Citation
	if grounded {
		directive = groundedDirective
		userMessage = groundedUserMessage(query, result.Chunks)
		citations = make([]Citation, len(result.Chunks))
		for i, sc := range result.Chunks {
			citations[i] = Citation{
				ChunkID:     sc.Chunk.Chunk.ID,
				DisplayName: displayName(sc.Chunk),
				Score:       sc.Score,
			}
		}
	} else {
		directive = fallbackDirective
		userMessage = query
	}

	output, err := o.generator.Complete(ctx, directive, userMessage)
	if err != nil {
		// Recorded, not retried; the caller gets a fixed apology.
		o.logger.Error("generator call failed", "error", fmt.Errorf("%w: %v", ErrGeneration, err))
		return &GenerationAnswer{
			Text:      prefixFromGeneral + "\n\n" + apologyText,
			Label:     LabelFromGeneral,
			Citations: []Citation{},
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}

	label := LabelFromGeneral
	prefix := prefixFromGeneral
	if grounded {
		label = LabelFromContext
		prefix = prefixFromContext
	}
	if citations == nil {
		citations = []Citation{}
	}

	return &GenerationAnswer{
		Text:      prefix + "\n\n" + strings.TrimSpace(output),
		Label:     label,
		Citations: citations,
		LatencyMS: time.Since(start).Milliseconds(),
	}
}

// groundedUserMessage enumerates the retained chunks; the enumeration index
// doubles as the citation index the directive asks the model to use.
func groundedUserMessage(query string, chunks []ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Context passages:\n")
	for i, sc := range chunks {
		fmt.Fprintf(&sb, "\n[%d] %s\n%s\n", i+1, displayName(sc.Chunk), sc.Chunk.Chunk.Content)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

func displayName(c model.CandidateChunk) string {
	return fmt.Sprintf("%s#%d", c.DocumentName, c.Chunk.Index)
}
