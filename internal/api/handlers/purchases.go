// purchases.go — контроллеры покупок. Создание и чтение — составные
// операции (покупка + позиции + товар + категория), остальное —
// обобщённые операции над таблицей purchases.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bigkaa/shopsim/internal/apperr"
	"github.com/bigkaa/shopsim/internal/store"
)

// purchasesResource — описание для обобщённых маршрутов покупок.
var purchasesResource = Resource{Name: "purchases", Table: "purchases"}

// PurchasesResource возвращает описание ресурса покупок.
func PurchasesResource() Resource {
	return purchasesResource
}

// CreatePurchase — POST /purchases: составное создание покупки.
// Цена позиции фиксируется по текущей цене товара, total считается
// на сервере; в ответе — составное представление покупки.
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var input store.PurchaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, r, apperr.NewClient("Invalid request body"))
		return
	}

	row, err := h.store.CreatePurchaseWithItems(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// GetPurchase — GET /purchases/{id}: заголовок покупки с позициями или 404.
func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	row, err := h.store.FetchPurchaseWithItems(r.Context(), id, nil)
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
