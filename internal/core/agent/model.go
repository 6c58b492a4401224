package agent

import "context"

// Role は会話メッセージの役割を表す
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message は会話の1ターンを表す。
// セッション履歴にはuser/assistantのテキストターンのみが残り、
// ツール呼び出しのやり取りは1回のExecute内の作業コンテキストに閉じる。
type Message struct {
	Role    Role
	Content string

	// ToolCalls はassistantメッセージが要求したツール呼び出し
	ToolCalls []ToolCall

	// ToolCallID はtoolメッセージが応答するツール呼び出しのID
	ToolCallID string
}

// ToolCall はモデルが要求した1つのツール呼び出しを表す
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON文字列
}

// ToolSpec はモデルへ提示するツールの機械可読な記述。
// Descriptionはモデルがツールを選ぶ唯一の手掛かりであり、
// 実行時のポリシーではない。
type ToolSpec struct {
	Name        string
	Description string
}

// CompletionRequest は言語モデルへの1回のリクエストを表す
type CompletionRequest struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// ModelResponse は言語モデルの応答を表す。
// ToolCallsが空であれば最終回答、そうでなければツール実行要求。
type ModelResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// LLMClient は言語モデルとの通信インターフェース
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (ModelResponse, error)
}

// Tool は名前と説明を持つ呼び出し可能な検索能力。
// Executorは名前による単一ディスパッチのみを行い、
// 選択はモデル自身の推論に委ねる。
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, query string) (string, error)
}

// ToolStep は1回のExecute内で実行されたツール呼び出しの記録
type ToolStep struct {
	Tool  string `json:"tool"`
	Query string `json:"query"`
}

// Result はExecutorの実行結果を表す
type Result struct {
	Answer string
	Steps  []ToolStep
}

// Trimmer はツール出力をトークン数の上限内に収めるインターフェース
type Trimmer interface {
	Trim(text string, maxTokens int) string
}
