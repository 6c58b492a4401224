package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/chatdoc/internal/core/agent"
	"github.com/jinford/chatdoc/internal/core/embedding"
	"github.com/jinford/chatdoc/internal/core/ingestion"
	"github.com/jinford/chatdoc/internal/core/search"
)

// ErrSessionNotFound は存在しないセッションIDが指定された場合のエラー
var ErrSessionNotFound = errors.New("session not found")

// DefaultHistoryWindow はモデルへ渡す履歴の最大ターン数
const DefaultHistoryWindow = 40

// Service はセッションのライフサイクルと1ターンの処理を提供する。
// 各セッションは独立しており、共有するのは読み取り専用の
// プリロードコーパスのみ。
type Service struct {
	builder      *ingestion.Builder
	embedder     embedding.Embedder
	corpusTool   agent.Tool
	llm          agent.LLMClient
	systemPrompt string
	trimmer      agent.Trimmer
	logger       *slog.Logger

	historyWindow int

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// ServiceOption はService構築時のオプション
type ServiceOption func(*Service)

// WithSessionLogger はServiceにロガーを設定する
func WithSessionLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTrimmer はツール出力のトリマーを設定する
func WithTrimmer(trimmer agent.Trimmer) ServiceOption {
	return func(s *Service) {
		s.trimmer = trimmer
	}
}

// WithHistoryWindow はモデルへ渡す履歴の最大ターン数を設定する
func WithHistoryWindow(n int) ServiceOption {
	return func(s *Service) {
		s.historyWindow = n
	}
}

// NewService は新しいServiceを作成する。
// corpusはプロセス起動時に一度だけ構築されたプリロードコーパスの
// 検索サービスで、以後読み取り専用として全セッションへ渡される。
func NewService(
	builder *ingestion.Builder,
	corpus *search.Service,
	embedder embedding.Embedder,
	llm agent.LLMClient,
	systemPrompt string,
	opts ...ServiceOption,
) (*Service, error) {
	if systemPrompt == "" {
		return nil, fmt.Errorf("system prompt must not be empty")
	}

	svc := &Service{
		builder:       builder,
		embedder:      embedder,
		corpusTool:    search.NewRetrievalTool(search.PreloadedToolName, search.PreloadedToolDescription, corpus),
		llm:           llm,
		systemPrompt:  systemPrompt,
		logger:        slog.Default(),
		historyWindow: DefaultHistoryWindow,
		sessions:      make(map[uuid.UUID]*Session),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc, nil
}

// Create は新しいセッションを作成してIDを返す。
// 作成直後はプリロードコーパスのツールのみが利用可能。
func (s *Service) Create() (uuid.UUID, error) {
	executor, err := agent.NewExecutor(s.llm, s.systemPrompt,
		agent.WithTools(s.corpusTool),
		agent.WithTrimmer(s.trimmer),
		agent.WithExecutorLogger(s.logger),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create executor: %w", err)
	}

	sess := &Session{
		ID:       uuid.New(),
		executor: executor,
		upload:   mo.None[*search.Service](),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session created", "sessionID", sess.ID)

	return sess.ID, nil
}

// Delete はセッションを破棄する。会話履歴とアップロード
// インデックスはここで失われ、プロセス再起動をまたいで永続しない。
func (s *Service) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)

	s.logger.Info("session deleted", "sessionID", id)

	return nil
}

// Submit は1ユーザーメッセージを処理して回答を返す。
// 添付ファイルがあればアップロードインデックスを丸ごと再構築してから
// 決定コアを実行する。成功時はユーザーターンとアシスタントターンを
// ちょうど1つずつ履歴へ追加する。失敗時（ABORTED）はユーザーターン
// のみ残し、部分的な回答は返さない。
func (s *Service) Submit(ctx context.Context, id uuid.UUID, text string, attachments []Attachment) (*Reply, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	if text == "" {
		return nil, fmt.Errorf("message is required")
	}

	// ターンの処理とインデックス再構築をセッション単位で直列化する
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var rejected []RejectedAttachment
	if len(attachments) > 0 {
		units, rej := s.loadAttachments(attachments)
		rejected = rej

		if len(units) > 0 {
			if err := s.rebuildUploadIndex(ctx, sess, units); err != nil {
				// 構築途中のEmbedding失敗もABORTED扱い。
				// 利用者の質問は履歴に残す。
				sess.history = append(sess.history, agent.Message{Role: agent.RoleUser, Content: text})
				s.logger.Error("upload index build failed",
					"sessionID", sess.ID,
					"error", err,
				)
				return nil, err
			}
		}
	}

	sess.executor.SetTools(s.sessionTools(sess))

	result, err := sess.executor.Execute(ctx, s.historyTail(sess), text)
	if err != nil {
		sess.history = append(sess.history, agent.Message{Role: agent.RoleUser, Content: text})
		s.logger.Error("turn aborted",
			"sessionID", sess.ID,
			"error", err,
		)
		return nil, err
	}

	sess.history = append(sess.history,
		agent.Message{Role: agent.RoleUser, Content: text},
		agent.Message{Role: agent.RoleAssistant, Content: result.Answer},
	)

	s.logger.Info("turn completed",
		"sessionID", sess.ID,
		"toolSteps", len(result.Steps),
		"rejectedAttachments", len(rejected),
	)

	return &Reply{
		Answer:   result.Answer,
		Steps:    result.Steps,
		Rejected: rejected,
	}, nil
}

// loadAttachments は添付ファイルを1件ずつTextUnitへ変換する。
// 失敗したファイルは拒否リストに積み、残りの処理は続行する
// （形式エラーは決定コアのループへ入れない）。
func (s *Service) loadAttachments(attachments []Attachment) ([]ingestion.TextUnit, []RejectedAttachment) {
	var units []ingestion.TextUnit
	var rejected []RejectedAttachment

	for _, att := range attachments {
		sourceType, ok := ingestion.DetectSourceType(att.Name)
		if !ok {
			rejected = append(rejected, RejectedAttachment{
				Name:   att.Name,
				Reason: "対応していないファイル形式です",
			})
			continue
		}

		doc := ingestion.Document{
			ID:   uuid.New(),
			Name: att.Name,
			Type: sourceType,
			Data: att.Data,
		}

		docUnits, err := s.builder.Load(doc)
		if err != nil {
			s.logger.Warn("attachment rejected",
				"name", att.Name,
				"error", err,
			)
			rejected = append(rejected, RejectedAttachment{
				Name:   att.Name,
				Reason: rejectionReason(err),
			})
			continue
		}

		units = append(units, docUnits...)
	}

	return units, rejected
}

// rebuildUploadIndex はセッションのアップロードインデックスを丸ごと置き換える。
// ツールセット自体はSubmitがsess.uploadから毎ターン導出する。
func (s *Service) rebuildUploadIndex(ctx context.Context, sess *Session, units []ingestion.TextUnit) error {
	index, err := s.builder.BuildIndex(ctx, units)
	if err != nil {
		return err
	}

	sess.upload = mo.Some(search.NewService(index, s.embedder, search.WithServiceLogger(s.logger)))

	s.logger.Info("upload index rebuilt",
		"sessionID", sess.ID,
		"units", len(units),
		"chunks", index.Len(),
	)

	return nil
}

// sessionTools はセッションの現在のツールセットを導出する。
// アップロードインデックスの有無はsess.uploadが唯一の真実とする。
func (s *Service) sessionTools(sess *Session) []agent.Tool {
	tools := []agent.Tool{s.corpusTool}
	if uploadSvc, ok := sess.upload.Get(); ok {
		tools = append(tools, search.NewRetrievalTool(search.UploadedToolName, search.UploadedToolDescription, uploadSvc))
	}
	return tools
}

// historyTail はモデルへ渡す直近の履歴を返す
func (s *Service) historyTail(sess *Session) []agent.Message {
	if s.historyWindow <= 0 || len(sess.history) <= s.historyWindow {
		return sess.history
	}
	return sess.history[len(sess.history)-s.historyWindow:]
}

// rejectionReason は読み込みエラーを利用者向けの短い説明へ変換する。
// 生のエラー内容は利用者には見せない（ログにのみ残す）。
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ingestion.ErrUnsupportedFormat):
		return "対応していないファイル形式です"
	case errors.Is(err, ingestion.ErrLoadFailure):
		return "ファイルを読み込めませんでした"
	default:
		return "ファイルの処理に失敗しました"
	}
}
