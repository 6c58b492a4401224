package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM は事前に用意した応答を順に返すLLMClientのスタブ。
// 受け取ったリクエストを記録し、テストから検査できるようにする。
type scriptedLLM struct {
	responses []ModelResponse
	err       error

	requests []CompletionRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req CompletionRequest) (ModelResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return ModelResponse{}, s.err
	}
	if len(s.requests) > len(s.responses) {
		return ModelResponse{}, fmt.Errorf("unexpected call %d", len(s.requests))
	}
	return s.responses[len(s.requests)-1], nil
}

// fixedTrimmer は固定文字数で切り詰めるTrimmerのスタブ
type fixedTrimmer struct {
	limit int
}

func (f *fixedTrimmer) Trim(text string, _ int) string {
	if len(text) <= f.limit {
		return text
	}
	return text[:f.limit]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "テスト用ツール",
		Run: func(_ context.Context, query string) (string, error) {
			return "result for " + query, nil
		},
	}
}

func TestNewExecutor_Validation(t *testing.T) {
	_, err := NewExecutor(nil, "prompt")
	assert.Error(t, err)

	_, err = NewExecutor(&scriptedLLM{}, "")
	assert.Error(t, err)
}

func TestExecute_DirectAnswerWithoutTools(t *testing.T) {
	llm := &scriptedLLM{
		responses: []ModelResponse{
			{Content: "4です"},
		},
	}

	executor, err := NewExecutor(llm, "system", WithTools(echoTool("retriever")), WithExecutorLogger(testLogger()))
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), nil, "2+2は?")
	require.NoError(t, err)

	assert.Equal(t, "4です", result.Answer)
	assert.Empty(t, result.Steps)

	// モデル呼び出しは1回のみ
	require.Len(t, llm.requests, 1)
	assert.Equal(t, "system", llm.requests[0].System)

	// ツール仕様は提示されている
	require.Len(t, llm.requests[0].Tools, 1)
	assert.Equal(t, "retriever", llm.requests[0].Tools[0].Name)
}

func TestExecute_ToolCallThenFinalAnswer(t *testing.T) {
	llm := &scriptedLLM{
		responses: []ModelResponse{
			{ToolCalls: []ToolCall{{ID: "call-1", Name: "retriever", Arguments: `{"query":"首都"}`}}},
			{Content: "リバーマウスです"},
		},
	}

	executor, err := NewExecutor(llm, "system", WithTools(echoTool("retriever")), WithExecutorLogger(testLogger()))
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), nil, "首都はどこ?")
	require.NoError(t, err)

	assert.Equal(t, "リバーマウスです", result.Answer)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, ToolStep{Tool: "retriever", Query: "首都"}, result.Steps[0])

	// 2回目のモデル呼び出しにはツール結果が含まれている
	require.Len(t, llm.requests, 2)
	second := llm.requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, RoleTool, last.Role)
	assert.Equal(t, "call-1", last.ToolCallID)
	assert.Equal(t, "result for 首都", last.Content)
}

func TestExecute_MultipleToolCallsInOrder(t *testing.T) {
	llm := &scriptedLLM{
		responses: []ModelResponse{
			{ToolCalls: []ToolCall{
				{ID: "call-1", Name: "corpus", Arguments: `{"query":"背景"}`},
				{ID: "call-2", Name: "upload", Arguments: `{"query":"添付"}`},
			}},
			{Content: "まとめました"},
		},
	}

	executor, err := NewExecutor(llm, "system",
		WithTools(echoTool("corpus"), echoTool("upload")),
		WithExecutorLogger(testLogger()),
	)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), nil, "両方調べて")
	require.NoError(t, err)

	// 要求された順に記録される
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "corpus", result.Steps[0].Tool)
	assert.Equal(t, "upload", result.Steps[1].Tool)
}

func TestExecute_UnknownToolFeedsErrorBackToModel(t *testing.T) {
	llm := &scriptedLLM{
		responses: []ModelResponse{
			{ToolCalls: []ToolCall{{ID: "call-1", Name: "nonexistent", Arguments: `{"query":"x"}`}}},
			{Content: "答え"},
		},
	}

	executor, err := NewExecutor(llm, "system", WithTools(echoTool("retriever")), WithExecutorLogger(testLogger()))
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), nil, "質問")
	require.NoError(t, err)
	assert.Equal(t, "答え", result.Answer)

	// 存在しないツールはステップとして記録されない
	assert.Empty(t, result.Steps)

	// モデルには訂正を促すツールメッセージが返される
	second := llm.requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, RoleTool, last.Role)
	assert.Contains(t, last.Content, "unknown tool: nonexistent")
}

func TestExecute_IterationLimit(t *testing.T) {
	// 常にツール呼び出しを要求し続けるモデル
	loop := ModelResponse{ToolCalls: []ToolCall{{ID: "call", Name: "retriever", Arguments: `{"query":"x"}`}}}
	llm := &scriptedLLM{
		responses: []ModelResponse{loop, loop, loop},
	}

	executor, err := NewExecutor(llm, "system",
		WithTools(echoTool("retriever")),
		WithMaxIterations(3),
		WithExecutorLogger(testLogger()),
	)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), nil, "質問")
	assert.ErrorIs(t, err, ErrIterationLimit)
	assert.Len(t, llm.requests, 3)
}

func TestExecute_ModelFailureAborts(t *testing.T) {
	modelErr := fmt.Errorf("%w: status 500", ErrModelUnavailable)
	llm := &scriptedLLM{err: modelErr}

	executor, err := NewExecutor(llm, "system", WithExecutorLogger(testLogger()))
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), nil, "質問")
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestExecute_ToolFailureAborts(t *testing.T) {
	toolErr := errors.New("embedding provider down")
	failing := Tool{
		Name:        "retriever",
		Description: "テスト用ツール",
		Run: func(_ context.Context, _ string) (string, error) {
			return "", toolErr
		},
	}

	llm := &scriptedLLM{
		responses: []ModelResponse{
			{ToolCalls: []ToolCall{{ID: "call-1", Name: "retriever", Arguments: `{"query":"x"}`}}},
		},
	}

	executor, err := NewExecutor(llm, "system", WithTools(failing), WithExecutorLogger(testLogger()))
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), nil, "質問")
	assert.ErrorIs(t, err, toolErr)
}

func TestExecute_TrimsToolOutput(t *testing.T) {
	big := Tool{
		Name:        "retriever",
		Description: "テスト用ツール",
		Run: func(_ context.Context, _ string) (string, error) {
			return strings.Repeat("a", 100), nil
		},
	}

	llm := &scriptedLLM{
		responses: []ModelResponse{
			{ToolCalls: []ToolCall{{ID: "call-1", Name: "retriever", Arguments: `{"query":"x"}`}}},
			{Content: "答え"},
		},
	}

	executor, err := NewExecutor(llm, "system",
		WithTools(big),
		WithTrimmer(&fixedTrimmer{limit: 10}),
		WithExecutorLogger(testLogger()),
	)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), nil, "質問")
	require.NoError(t, err)

	second := llm.requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, strings.Repeat("a", 10), last.Content)
}

func TestExecute_DoesNotMutateHistory(t *testing.T) {
	llm := &scriptedLLM{
		responses: []ModelResponse{{Content: "答え"}},
	}

	executor, err := NewExecutor(llm, "system", WithExecutorLogger(testLogger()))
	require.NoError(t, err)

	history := []Message{
		{Role: RoleUser, Content: "前の質問"},
		{Role: RoleAssistant, Content: "前の回答"},
	}

	_, err = executor.Execute(context.Background(), history, "新しい質問")
	require.NoError(t, err)

	// 呼び出し元の履歴スライスは変更されない
	require.Len(t, history, 2)

	// モデルには履歴+新しいユーザーターンが渡される
	msgs := llm.requests[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "新しい質問", msgs[2].Content)
}

func TestParseQueryArgument(t *testing.T) {
	assert.Equal(t, "首都", parseQueryArgument(`{"query":"首都"}`))
	assert.Equal(t, "plain text", parseQueryArgument("plain text"))
	assert.Equal(t, `{"other":"x"}`, parseQueryArgument(`{"other":"x"}`))
	assert.Equal(t, "", parseQueryArgument(""))
}
