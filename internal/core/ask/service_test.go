package ask

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/conflux/internal/core/search"
)

type stubEmbedder struct {
	vector []float32
	called bool
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.called = true
	return e.vector, nil
}

type stubSearchRepo struct {
	results []*search.SearchResult
	err     error
	called  bool
}

func (r *stubSearchRepo) SearchSimilar(ctx context.Context, vector []float32, limit int, filter search.SearchFilter) ([]*search.SearchResult, error) {
	r.called = true
	if r.err != nil {
		return nil, r.err
	}
	return r.results, nil
}

type stubLLM struct {
	answer     string
	err        error
	lastPrompt string
	calls      int
}

func (l *stubLLM) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	l.calls++
	l.lastPrompt = prompt
	if l.err != nil {
		return "", l.err
	}
	return l.answer, nil
}

func newTestAskService(repo search.Repository, embedder search.Embedder, llm LLMClient) *AskService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	searchSvc := search.NewSearchService(repo, embedder,
		search.WithSearchLogger(logger),
		search.WithScoreThreshold(0.5),
	)
	return NewAskService(searchSvc, llm, WithAskLogger(logger))
}

func TestAsk_EmptyQuestionIsTerminal(t *testing.T) {
	repo := &stubSearchRepo{}
	embedder := &stubEmbedder{vector: []float32{1}}
	llm := &stubLLM{answer: "should not be called"}
	svc := newTestAskService(repo, embedder, llm)

	for _, question := range []string{"", "   \n"} {
		result, err := svc.Ask(context.Background(), AskParams{Question: question})
		require.NoError(t, err)
		assert.Equal(t, AnswerNoQuestion, result.Answer)
		assert.Zero(t, result.RetrievedChunks)
	}

	assert.False(t, embedder.called, "no embedding for an empty question")
	assert.False(t, repo.called, "no search for an empty question")
	assert.Zero(t, llm.calls, "no generation for an empty question")
}

func TestAsk_EmptyEmbeddingIsTerminal(t *testing.T) {
	repo := &stubSearchRepo{}
	llm := &stubLLM{}
	svc := newTestAskService(repo, &stubEmbedder{vector: nil}, llm)

	result, err := svc.Ask(context.Background(), AskParams{Question: "hello"})
	require.NoError(t, err)
	assert.Equal(t, AnswerEmbeddingFailed, result.Answer)
	assert.Zero(t, result.RetrievedChunks)
	assert.False(t, repo.called)
	assert.Zero(t, llm.calls)
}

func TestAsk_EmptyStoreAnswersIDontKnow(t *testing.T) {
	repo := &stubSearchRepo{results: nil}
	llm := &stubLLM{}
	svc := newTestAskService(repo, &stubEmbedder{vector: []float32{1}}, llm)

	result, err := svc.Ask(context.Background(), AskParams{Question: "anything indexed?"})
	require.NoError(t, err)
	assert.Equal(t, AnswerNotFound, result.Answer)
	assert.Zero(t, result.RetrievedChunks)
	assert.Zero(t, llm.calls, "generation never runs without grounding")
}

func TestAsk_BlankTextResultsAreSkipped(t *testing.T) {
	repo := &stubSearchRepo{results: []*search.SearchResult{
		{Text: "first chunk", Source: "doc1", Score: 0.9},
		{Text: "   ", Source: "doc1", Score: 0.8}, // 本文なし、使われない
		{Text: "second chunk", Source: "doc2", Score: 0.7},
	}}
	llm := &stubLLM{answer: "grounded answer"}
	svc := newTestAskService(repo, &stubEmbedder{vector: []float32{1}}, llm)

	result, err := svc.Ask(context.Background(), AskParams{Question: "what is indexed?"})
	require.NoError(t, err)

	assert.Equal(t, "grounded answer", result.Answer)
	assert.Equal(t, 2, result.RetrievedChunks, "count reflects chunks actually used, not fetched")
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "doc1", result.Sources[0].Source)
	assert.Equal(t, "doc2", result.Sources[1].Source)
}

func TestAsk_PromptContainsContextAndQuestion(t *testing.T) {
	repo := &stubSearchRepo{results: []*search.SearchResult{
		{Text: "alpha passage", Source: "doc1", Score: 0.9},
		{Text: "beta passage", Source: "doc1", Score: 0.8},
	}}
	llm := &stubLLM{answer: "ok"}
	svc := newTestAskService(repo, &stubEmbedder{vector: []float32{1}}, llm)

	_, err := svc.Ask(context.Background(), AskParams{Question: "what about alpha?"})
	require.NoError(t, err)

	assert.Contains(t, llm.lastPrompt, "alpha passage\n\nbeta passage", "context joined in ranking order")
	assert.Contains(t, llm.lastPrompt, "what about alpha?")
	assert.Contains(t, llm.lastPrompt, "ONLY using the provided context")
	assert.Contains(t, llm.lastPrompt, "I don't know")
}

func TestAsk_StoreFailurePropagates(t *testing.T) {
	repo := &stubSearchRepo{err: fmt.Errorf("connection refused")}
	llm := &stubLLM{}
	svc := newTestAskService(repo, &stubEmbedder{vector: []float32{1}}, llm)

	_, err := svc.Ask(context.Background(), AskParams{Question: "hello"})
	require.Error(t, err, "infrastructure failure must be distinguishable from a grounded miss")
	assert.True(t, strings.Contains(err.Error(), "retrieval failed"))
	assert.Zero(t, llm.calls)
}

func TestAsk_GenerationFailurePropagates(t *testing.T) {
	repo := &stubSearchRepo{results: []*search.SearchResult{{Text: "chunk", Source: "doc1", Score: 0.9}}}
	llm := &stubLLM{err: fmt.Errorf("llm timed out")}
	svc := newTestAskService(repo, &stubEmbedder{vector: []float32{1}}, llm)

	_, err := svc.Ask(context.Background(), AskParams{Question: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate answer")
}
