// Пакет apperr — закрытая таксономия ошибок приложения.
// Три вида: ClientError (4xx, некорректный ввод или нарушение ограничений),
// ServerError (5xx, неожиданный внутренний сбой), NotFoundError (404).
// Каждая ошибка несёт безопасное для клиента сообщение Message и
// необязательную диагностику Raw (исходный текст ошибки движка БД) —
// Raw попадает только в логи, никогда в HTTP-ответ.
package apperr

import (
	"errors"
	"net/http"
)

// ClientError — ошибка, вызванная входными данными клиента
// или нарушением ограничения БД. Рендерится как 400.
type ClientError struct {
	Message string
	Raw     string
}

func (e *ClientError) Error() string {
	return e.Message
}

// NewClient создаёт ClientError без диагностики.
func NewClient(message string) *ClientError {
	return &ClientError{Message: message}
}

// NewClientRaw создаёт ClientError с диагностикой движка БД.
func NewClientRaw(message, raw string) *ClientError {
	return &ClientError{Message: message, Raw: raw}
}

// ServerError — неожиданный внутренний сбой. Рендерится как 500.
// Message намеренно обобщённый, детали только в Raw.
type ServerError struct {
	Message string
	Raw     string
}

func (e *ServerError) Error() string {
	return e.Message
}

// NewServer создаёт ServerError с диагностикой.
func NewServer(message, raw string) *ServerError {
	return &ServerError{Message: message, Raw: raw}
}

// NotFoundError — ресурс не найден. Рендерится как 404.
// Сейчас слой данных сигнализирует «не найдено» через nil или ClientError,
// тип сохранён для полноты таксономии на границе HTTP.
type NotFoundError struct {
	Message string
	Raw     string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NewNotFound создаёт NotFoundError.
func NewNotFound(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

// IsAppError сообщает, принадлежит ли err закрытому набору видов.
// Ошибки вне набора считаются неожиданным внутренним сбоем.
func IsAppError(err error) bool {
	var ce *ClientError
	var se *ServerError
	var nf *NotFoundError
	return errors.As(err, &ce) || errors.As(err, &se) || errors.As(err, &nf)
}

// StatusCode возвращает HTTP-статус для вида ошибки:
// 400 для ClientError, 404 для NotFoundError, 500 для ServerError
// и для любой ошибки вне таксономии.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return http.StatusBadRequest
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// RawOf возвращает диагностику Raw ошибки, если она есть.
func RawOf(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Raw
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Raw
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Raw
	}
	return ""
}
