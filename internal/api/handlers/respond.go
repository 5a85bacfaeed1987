// respond.go — рендеринг ответов API.
// Контракт границы: успех — JSON-тело результата; ошибка — плоский
// объект {"error": message} со статусом по виду ошибки (400 ClientError,
// 404 NotFoundError, 500 ServerError и всё нераспознанное).
// Диагностика Raw уходит только в лог, никогда в ответ.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/shopsim/internal/apperr"
)

// errorBody — тело ответа с ошибкой.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON записывает успешный JSON-ответ.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError записывает ответ с ошибкой и логирует диагностику.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusCode(err)

	message := err.Error()
	if !apperr.IsAppError(err) {
		// Ошибка вне таксономии: сообщение не доверено, наружу — обобщённое
		message = "Unexpected server error"
	}

	if raw := apperr.RawOf(err); raw != "" {
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "Ошибка хранилища",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("raw", raw),
		)
	} else if status >= 500 {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "Внутренняя ошибка",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}
