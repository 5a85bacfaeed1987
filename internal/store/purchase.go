// purchase.go — составные операции над покупками: создание покупки
// с позициями и чтение покупки вместе с позициями, товарами и категориями.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/bigkaa/shopsim/internal/simtx"
	"github.com/bigkaa/shopsim/internal/sqlbuilder"
	"github.com/bigkaa/shopsim/internal/sqlerr"
)

// PurchaseItemInput — запрошенная позиция покупки.
type PurchaseItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// PurchaseInput — входные данные составной операции создания покупки.
type PurchaseInput struct {
	BuyerID  int64               `json:"buyer_id"`
	Products []PurchaseItemInput `json:"products"`
}

// purchaseItemsView — JOIN позиций покупки с товаром и категорией.
// Единственное место, где слой выходит за рамки однотабличных сборщиков.
const purchaseItemsView = `
SELECT pi.id, pi.product_id, pi.quantity, pi.price_at_time,
       p.name AS product_name, c.name AS category_name
FROM "purchase_items" pi
JOIN "products" p ON p.id = pi.product_id
JOIN "categories" c ON c.id = p.category_id
WHERE pi.purchase_id = ?`

// CreatePurchaseWithItems создаёт покупку с позициями в одной
// симулируемой транзакции: читает товары, фиксирует price_at_time
// по текущей цене товара (снимок на момент покупки, позже не
// перечитывается), считает total с округлением до 2 знаков,
// вставляет заголовок, пакетно вставляет позиции и перечитывает
// составное представление покупки.
//
// product_id, не найденный среди прочитанных товаров, приводит
// к необработанной ошибке (ServerError), а не к чистому ClientError —
// известный пробел, поведение сохранено.
func (s *Store) CreatePurchaseWithItems(ctx context.Context, input PurchaseInput) (Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) (Row, error) {
		prices, err := fetchProductPrices(ctx, tx, input.Products)
		if err != nil {
			return nil, err
		}

		items := make([]map[string]any, 0, len(input.Products))
		total := 0.0
		for _, p := range input.Products {
			price, ok := prices[p.ProductID]
			if !ok {
				return nil, fmt.Errorf("product %d not found", p.ProductID)
			}
			items = append(items, map[string]any{
				"product_id":    p.ProductID,
				"quantity":      p.Quantity,
				"price_at_time": price,
			})
			total += price * float64(p.Quantity)
		}
		total = round2(total)

		purchaseID, err := execInsert(ctx, tx, "purchases", map[string]any{
			"buyer_id": input.BuyerID,
			"total":    total,
		})
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			item["purchase_id"] = purchaseID
		}
		if err := execBulkInsert(ctx, tx, "purchase_items", items); err != nil {
			return nil, err
		}

		return readPurchaseWithItems(ctx, tx, purchaseID, nil)
	})
}

// FetchPurchaseWithItems читает заголовок покупки и присоединяет
// позиции с товарами и категориями. Отсутствующая покупка — nil,
// не ошибка.
func (s *Store) FetchPurchaseWithItems(ctx context.Context, id int64, columns []string) (Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) (Row, error) {
		return readPurchaseWithItems(ctx, tx, id, columns)
	})
}

// readPurchaseWithItems — чтение составного представления внутри
// открытой транзакции.
func readPurchaseWithItems(ctx context.Context, tx *sql.Tx, id int64, columns []string) (Row, error) {
	purchase, err := queryByID(ctx, tx, "purchases", id, columns)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, nil
	}

	items, err := rawSelect(ctx, tx, purchaseItemsView, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Row{}
	}
	purchase["items"] = items
	return purchase, nil
}

// fetchProductPrices читает цены всех товаров из входа одним
// IN-запросом и возвращает product_id → price.
func fetchProductPrices(ctx context.Context, tx *sql.Tx, products []PurchaseItemInput) (map[int64]float64, error) {
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ProductID
	}

	rows, err := queryRows(ctx, tx, "products", []string{"id", "price"},
		[]sqlbuilder.Filter{{Column: "id", Operator: "IN", Value: ids}}, 0)
	if err != nil {
		return nil, err
	}

	prices := make(map[int64]float64, len(rows))
	for _, r := range rows {
		id, idOK := r["id"].(int64)
		price, priceOK := toFloat(r["price"])
		if !idOK || !priceOK {
			return nil, fmt.Errorf("unexpected product row shape: %v", r)
		}
		prices[id] = price
	}
	return prices, nil
}

// execBulkInsert выполняет пакетную вставку внутри транзакции.
func execBulkInsert(ctx context.Context, tx *sql.Tx, table string, records []map[string]any) error {
	q, err := sqlbuilder.BuildBulkInsert(table, records)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, q.SQL, q.Args...); err != nil {
		return sqlerr.Classify(err)
	}
	return nil
}

// round2 округляет до 2 десятичных знаков.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// toFloat приводит численное значение SQLite (REAL или INTEGER) к float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
