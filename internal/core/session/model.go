package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/chatdoc/internal/core/agent"
	"github.com/jinford/chatdoc/internal/core/search"
)

// Attachment は1ターンに添付されたアップロードファイルを表す
type Attachment struct {
	Name string
	Data []byte
}

// RejectedAttachment は受け付けられなかった添付ファイルの報告。
// セッションを落とす致命的エラーではなく、利用者が修正可能な
// 入力エラーとして返す。
type RejectedAttachment struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Reply は1ターンの処理結果を表す
type Reply struct {
	Answer   string
	Steps    []agent.ToolStep
	Rejected []RejectedAttachment
}

// Session は1つの会話を表す。会話履歴・決定コア・
// アップロードインデックスを所有し、セッション終了とともに破棄される。
type Session struct {
	ID uuid.UUID

	// mu は1ターンの処理とインデックス再構築を直列化する。
	// 同一セッションへの並行リクエストは順番に処理される。
	mu       sync.Mutex
	history  []agent.Message
	executor *agent.Executor

	// upload はこのセッションのアップロードファイル検索。
	// 添付のたびにマージではなく丸ごと置き換える。
	upload mo.Option[*search.Service]
}

// History は会話履歴のコピーを返す（デバッグ・検査用）
func (s *Session) History() []agent.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]agent.Message, len(s.history))
	copy(out, s.history)
	return out
}
