package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

type scriptedReply struct {
	content string
	err     error
}

// scriptedLLM returns canned replies in order and records every request.
type scriptedLLM struct {
	provider string
	model    string
	strict   bool
	replies  []scriptedReply
	requests []interfaces.ChatRequest
}

func (s *scriptedLLM) Provider() string           { return s.provider }
func (s *scriptedLLM) Model() string              { return s.model }
func (s *scriptedLLM) SupportsStrictSchema() bool { return s.strict }

func (s *scriptedLLM) Chat(ctx context.Context, req *interfaces.ChatRequest) (*interfaces.ChatResponse, error) {
	idx := len(s.requests)
	s.requests = append(s.requests, *req)
	if idx >= len(s.replies) {
		return nil, errors.New("no scripted reply left")
	}
	reply := s.replies[idx]
	if reply.err != nil {
		return nil, reply.err
	}
	return &interfaces.ChatResponse{Content: reply.content, Model: s.model}, nil
}

func openAIStub(replies ...scriptedReply) *scriptedLLM {
	return &scriptedLLM{provider: "openai", model: "gpt-4o-mini", strict: true, replies: replies}
}

func newTestExtractor(llm interfaces.LLMService) interfaces.ExtractionService {
	return NewService(common.NewDefaultConfig(), llm, arbor.NewLogger())
}

func TestExtractHappyPath(t *testing.T) {
	llm := openAIStub(scriptedReply{content: validAlbaranJSON})
	svc := newTestExtractor(llm)

	report, err := svc.Extract(context.Background(), docTypeConfig(t, "deliverynote"),
		"Numero: ALB-001\nFecha: 2025-01-15\nEmpresa: Acme\nBase: 100.00\nTotal: 121.00")
	require.NoError(t, err)
	assert.Equal(t, "ALB-001", report["numero_albaran"])
	assert.Equal(t, 100.0, report["base_imponible"])
	assert.Equal(t, 121.0, report["total_albaran"])

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	assert.Equal(t, "AlbaranReport", req.SchemaName)
	assert.NotNil(t, req.Schema)
	assert.False(t, req.JSONMode)
	require.NotNil(t, req.Seed)
	assert.Equal(t, 7, *req.Seed)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "Numero: ALB-001")
	assert.NotContains(t, req.Messages[1].Content, "{text}")
}

func TestExtractRetryThenSucceed(t *testing.T) {
	llm := openAIStub(
		scriptedReply{content: "this is not json"},
		scriptedReply{content: validAlbaranJSON},
	)
	svc := newTestExtractor(llm)

	report, err := svc.Extract(context.Background(), docTypeConfig(t, "deliverynote"), "text")
	require.NoError(t, err)
	assert.Equal(t, "ALB-001", report["numero_albaran"])
	assert.Len(t, llm.requests, 2)
}

func TestExtractExhaustsRetries(t *testing.T) {
	llm := openAIStub(
		scriptedReply{content: "garbage one"},
		scriptedReply{content: "garbage two"},
		scriptedReply{content: "garbage three"},
	)
	svc := newTestExtractor(llm)

	_, err := svc.Extract(context.Background(), docTypeConfig(t, "deliverynote"), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed after 3 attempts")
	assert.Contains(t, err.Error(), "garbage three")
	assert.True(t, models.IsKind(err, models.ErrorKindParse))
	assert.Len(t, llm.requests, 3)
}

func TestExtractStrictRejectedFallsBackSameAttempt(t *testing.T) {
	llm := openAIStub(
		scriptedReply{err: models.NewBackendError("response_format not supported", models.ErrStrictSchemaRejected)},
		scriptedReply{content: validAlbaranJSON},
	)
	svc := newTestExtractor(llm)

	report, err := svc.Extract(context.Background(), docTypeConfig(t, "deliverynote"), "text")
	require.NoError(t, err)
	assert.Equal(t, "ALB-001", report["numero_albaran"])

	require.Len(t, llm.requests, 2)
	assert.NotNil(t, llm.requests[0].Schema)
	assert.False(t, llm.requests[0].JSONMode)
	assert.Nil(t, llm.requests[1].Schema)
	assert.True(t, llm.requests[1].JSONMode)
}

func TestExtractBackendErrorRetries(t *testing.T) {
	llm := openAIStub(
		scriptedReply{err: models.NewBackendError("rate limited", nil)},
		scriptedReply{content: validAlbaranJSON},
	)
	svc := newTestExtractor(llm)

	report, err := svc.Extract(context.Background(), docTypeConfig(t, "deliverynote"), "text")
	require.NoError(t, err)
	assert.Equal(t, "ALB-001", report["numero_albaran"])
	assert.Len(t, llm.requests, 2)
}

func TestExtractEmptyResponseRetries(t *testing.T) {
	llm := openAIStub(
		scriptedReply{content: ""},
		scriptedReply{content: validAlbaranJSON},
	)
	svc := newTestExtractor(llm)

	report, err := svc.Extract(context.Background(), docTypeConfig(t, "deliverynote"), "text")
	require.NoError(t, err)
	assert.Equal(t, "ALB-001", report["numero_albaran"])
	assert.Len(t, llm.requests, 2)
}

func TestExtractLocalBackendUsesJSONMode(t *testing.T) {
	llm := &scriptedLLM{
		provider: "local",
		model:    "ollama/llama3.1:8b",
		strict:   false,
		replies:  []scriptedReply{{content: validAlbaranJSON}},
	}
	svc := newTestExtractor(llm)

	_, err := svc.Extract(context.Background(), docTypeConfig(t, "deliverynote"), "text")
	require.NoError(t, err)

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	assert.Nil(t, req.Schema)
	assert.True(t, req.JSONMode)
	assert.Nil(t, req.Seed)
}

func TestExtractAppliesTextLimit(t *testing.T) {
	llm := openAIStub(scriptedReply{content: `{"banco": "Test", "lineas": []}`})
	svc := newTestExtractor(llm)

	long := strings.Repeat("x", 50000)
	_, err := svc.Extract(context.Background(), docTypeConfig(t, "bank"), long)
	require.NoError(t, err)

	require.Len(t, llm.requests, 1)
	userMsg := llm.requests[0].Messages[1].Content
	assert.Less(t, len(userMsg), 41000)
	assert.Contains(t, userMsg, "xxx")
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := openAIStub()
	svc := newTestExtractor(llm)

	_, err := svc.Extract(ctx, docTypeConfig(t, "deliverynote"), "text")
	require.Error(t, err)
	assert.Empty(t, llm.requests)
}
