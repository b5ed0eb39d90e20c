package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rushteam/shoprec/core"
)

// envelope 是所有接口的统一响应格式。
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError 按 DomainError 的 Code 映射 HTTP 状态码，内部错误不向调用方暴露细节。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
		msg = http.StatusText(status)
	}
	if de := core.GetDomainError(err); de != nil && status == http.StatusBadRequest {
		msg = de.Message
	}
	fail(w, status, msg)
}

func statusOf(err error) int {
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsDependency(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
