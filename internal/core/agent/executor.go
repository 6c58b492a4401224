package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

const (
	// DefaultMaxIterations はモデル呼び出しの上限回数。
	// ツール呼び出しが収束しない場合の無限ループを防ぐ。
	DefaultMaxIterations = 6

	// DefaultToolResultTokens はツール出力1件あたりのトークン上限
	DefaultToolResultTokens = 2000
)

// Executor はモデルの推論に基づいてツールを実行し、
// 最終回答が得られるまでループする決定コア。
// 1回のExecuteは同期的で、呼び出し元のgoroutineをブロックする。
type Executor struct {
	llm              LLMClient
	systemPrompt     string
	tools            []Tool
	maxIterations    int
	trimmer          Trimmer
	toolResultTokens int
	logger           *slog.Logger
}

// ExecutorOption はExecutor構築時のオプション
type ExecutorOption func(*Executor)

// WithTools は利用可能なツールの初期セットを設定する
func WithTools(tools ...Tool) ExecutorOption {
	return func(e *Executor) {
		e.tools = tools
	}
}

// WithMaxIterations はモデル呼び出しの上限回数を設定する
func WithMaxIterations(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxIterations = n
	}
}

// WithTrimmer はツール出力のトリマーを設定する
func WithTrimmer(trimmer Trimmer) ExecutorOption {
	return func(e *Executor) {
		e.trimmer = trimmer
	}
}

// WithExecutorLogger はExecutorにロガーを設定する
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor は新しいExecutorを作成する。
// systemPromptは不透明な設定値として扱い、非空であること以外は検証しない。
func NewExecutor(llm LLMClient, systemPrompt string, opts ...ExecutorOption) (*Executor, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if systemPrompt == "" {
		return nil, fmt.Errorf("system prompt must not be empty")
	}

	e := &Executor{
		llm:              llm,
		systemPrompt:     systemPrompt,
		maxIterations:    DefaultMaxIterations,
		toolResultTokens: DefaultToolResultTokens,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.maxIterations <= 0 {
		e.maxIterations = DefaultMaxIterations
	}

	return e, nil
}

// SetTools は利用可能なツールのセットを丸ごと置き換える。
// セッションへのファイル添付時に呼ばれる。実行中のExecuteとの
// 競合は呼び出し側（セッション単位のロック）で防ぐこと。
func (e *Executor) SetTools(tools []Tool) {
	e.tools = tools
}

// Execute は1ユーザーメッセージを解決する。
// モデルが最終回答を返すまでツール実行を繰り返し、上限回数に達した
// 場合はErrIterationLimitを返す。ツールやモデルの復旧不能な失敗も
// エラーとして返し、部分的な回答は決して返さない。
func (e *Executor) Execute(ctx context.Context, history []Message, input string) (*Result, error) {
	msgs := append(slices.Clone(history), Message{Role: RoleUser, Content: input})

	specs := make([]ToolSpec, len(e.tools))
	for i, t := range e.tools {
		specs[i] = ToolSpec{Name: t.Name, Description: t.Description}
	}

	var steps []ToolStep

	for iteration := 0; iteration < e.maxIterations; iteration++ {
		resp, err := e.llm.Complete(ctx, CompletionRequest{
			System:   e.systemPrompt,
			Messages: msgs,
			Tools:    specs,
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		// ツール要求がなければ最終回答
		if len(resp.ToolCalls) == 0 {
			e.logger.Info("agent finished",
				"iterations", iteration+1,
				"toolSteps", len(steps),
			)
			return &Result{Answer: resp.Content, Steps: steps}, nil
		}

		msgs = append(msgs, Message{
			Role:      RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// 要求された順に逐次実行し、結果を同じ順で作業コンテキストへ戻す
		for _, call := range resp.ToolCalls {
			query := parseQueryArgument(call.Arguments)

			e.logger.Info("agent requested tool",
				"tool", call.Name,
				"query", query,
			)

			tool, ok := e.findTool(call.Name)
			if !ok {
				// 存在しないツール名はモデル自身に訂正させる
				msgs = append(msgs, Message{
					Role:       RoleTool,
					Content:    fmt.Sprintf("unknown tool: %s", call.Name),
					ToolCallID: call.ID,
				})
				continue
			}

			output, err := tool.Run(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("tool %q failed: %w", call.Name, err)
			}

			if e.trimmer != nil {
				output = e.trimmer.Trim(output, e.toolResultTokens)
			}

			steps = append(steps, ToolStep{Tool: call.Name, Query: query})
			msgs = append(msgs, Message{
				Role:       RoleTool,
				Content:    output,
				ToolCallID: call.ID,
			})

			e.logger.Debug("tool executed",
				"tool", call.Name,
				"outputLength", len(output),
			)
		}
	}

	return nil, fmt.Errorf("%w: no final answer after %d iterations", ErrIterationLimit, e.maxIterations)
}

func (e *Executor) findTool(name string) (Tool, bool) {
	for _, t := range e.tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// parseQueryArgument はツール呼び出し引数から検索クエリを取り出す。
// {"query": "..."} 形式を想定し、解釈できない場合は引数全体を
// クエリとして扱う。
func parseQueryArgument(arguments string) string {
	var parsed struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &parsed); err == nil && parsed.Query != "" {
		return parsed.Query
	}
	return strings.TrimSpace(arguments)
}
