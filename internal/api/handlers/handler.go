// Пакет handlers — тонкие контроллеры ресурсов поверх слоя store.
// Контроллер только разбирает запрос, выбирает имя таблицы
// (доверенный литерал, не пользовательский ввод) и пробрасывает
// вызов в store; проверка формы payload — забота внешнего слоя.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/shopsim/internal/apperr"
	"github.com/bigkaa/shopsim/internal/sqlbuilder"
	"github.com/bigkaa/shopsim/internal/store"
)

// Resource — описание ресурса: маршрут, таблица и необязательная
// boolean-колонка для переключателя.
type Resource struct {
	Name         string
	Table        string
	ToggleColumn string
}

// Resources возвращает ресурсы с обобщёнными CRUD-маршрутами.
// purchases регистрируется отдельно: создание и чтение у него составные.
func Resources() []Resource {
	return []Resource{
		{Name: "users", Table: "users", ToggleColumn: "active"},
		{Name: "products", Table: "products", ToggleColumn: "available"},
		{Name: "categories", Table: "categories"},
	}
}

// Handler — HTTP-контроллеры Shopsim.
type Handler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewHandler создаёт контроллеры поверх слоя store.
func NewHandler(st *store.Store, logger *slog.Logger) *Handler {
	return &Handler{store: st, logger: logger}
}

// searchRequest — тело POST /{resource}/search.
type searchRequest struct {
	Columns []string            `json:"columns"`
	Filters []sqlbuilder.Filter `json:"filters"`
	Limit   int                 `json:"limit"`
}

// parseID извлекает числовой id из пути.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.NewClient("Invalid id")
	}
	return id, nil
}

// parseLimit извлекает limit из query-параметров.
// Нечисловые и неположительные значения просто игнорируются.
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0
	}
	return limit
}

// List — GET /{resource}: все строки таблицы, limit из query.
func (h *Handler) List(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := h.store.FetchMany(r.Context(), res.Table, nil, nil, parseLimit(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if rows == nil {
			rows = []store.Row{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// Search — POST /{resource}/search: выборка по фильтрам из тела запроса.
func (h *Handler) Search(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, apperr.NewClient("Invalid request body"))
			return
		}

		rows, err := h.store.FetchMany(r.Context(), res.Table, req.Columns, req.Filters, req.Limit)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if rows == nil {
			rows = []store.Row{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// Get — GET /{resource}/{id}: одна строка или 404.
func (h *Handler) Get(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		row, err := h.store.FetchByID(r.Context(), res.Table, id, nil)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if row == nil {
			h.writeError(w, r, apperr.NewNotFound("Element not found"))
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

// Create — POST /{resource}: вставка, в ответе полная строка.
func (h *Handler) Create(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			h.writeError(w, r, apperr.NewClient("Invalid request body"))
			return
		}

		row, err := h.store.Insert(r.Context(), res.Table, data)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, row)
	}
}

// Update — PUT /{resource}/{id}: обновление, в ответе обновлённая строка.
func (h *Handler) Update(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			h.writeError(w, r, apperr.NewClient("Invalid request body"))
			return
		}

		row, err := h.store.Update(r.Context(), res.Table, id, patch)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

// Toggle — PATCH /{resource}/{id}/<column>: переключение boolean-колонки.
func (h *Handler) Toggle(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		row, err := h.store.ToggleBoolean(r.Context(), res.Table, id, res.ToggleColumn)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

// Delete — DELETE /{resource}/{id}: удаление, в ответе подтверждение {id}.
func (h *Handler) Delete(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		row, err := h.store.DeleteByID(r.Context(), res.Table, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}
