package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jinford/chatdoc/internal/core/session"
)

// defaultMaxRequestBytes はマルチパートリクエスト全体のサイズ上限。
// 個々のファイルのサイズ検査はLoaderRegistry側で行う。
const defaultMaxRequestBytes = 64 << 20

// Server はフロントエンド境界のHTTP APIを提供する
type Server struct {
	sessions        *session.Service
	logger          *slog.Logger
	maxRequestBytes int64
}

// ServerOption はServer構築時のオプション
type ServerOption func(*Server)

// WithServerLogger はServerにロガーを設定する
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxRequestBytes はリクエスト全体のサイズ上限を設定する
func WithMaxRequestBytes(n int64) ServerOption {
	return func(s *Server) {
		s.maxRequestBytes = n
	}
}

// NewServer は新しいServerを作成します
func NewServer(sessions *session.Service, opts ...ServerOption) *Server {
	s := &Server{
		sessions:        sessions,
		logger:          slog.Default(),
		maxRequestBytes: defaultMaxRequestBytes,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/sessions", s.handleCreateSession)
		r.Post("/sessions/{sessionID}/messages", s.handleSubmitMessage)
		r.Delete("/sessions/{sessionID}", s.handleDeleteSession)
	})

	return r
}
