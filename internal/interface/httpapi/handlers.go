package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jinford/chatdoc/internal/core/agent"
	"github.com/jinford/chatdoc/internal/core/session"
)

// genericFailureMessage はABORTED時に利用者へ返す定型メッセージ。
// プロバイダの生のエラー内容は決して利用者に見せない（ログにのみ残す）。
const genericFailureMessage = "申し訳ありません。リクエストの処理中にエラーが発生しました。時間をおいて再度お試しください。"

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type submitMessageResponse struct {
	Reply    string                       `json:"reply"`
	Steps    []agent.ToolStep             `json:"steps,omitempty"`
	Rejected []session.RejectedAttachment `json:"rejected,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.Create()
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: genericFailureMessage})
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id.String()})
}

func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session id"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart request"})
		return
	}

	message := r.FormValue("message")
	if message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	var attachments []session.Attachment
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			file, err := header.Open()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read uploaded file"})
				return
			}

			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read uploaded file"})
				return
			}

			attachments = append(attachments, session.Attachment{
				Name: header.Filename,
				Data: data,
			})
		}
	}

	reply, err := s.sessions.Submit(r.Context(), sessionID, message, attachments)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}

		// ABORTED: 詳細はログへ、利用者には定型メッセージのみ
		s.logger.Error("message processing aborted",
			"sessionID", sessionID,
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: genericFailureMessage})
		return
	}

	writeJSON(w, http.StatusOK, submitMessageResponse{
		Reply:    reply.Answer,
		Steps:    reply.Steps,
		Rejected: reply.Rejected,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session id"})
		return
	}

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}
		s.logger.Error("failed to delete session", "sessionID", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: genericFailureMessage})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
