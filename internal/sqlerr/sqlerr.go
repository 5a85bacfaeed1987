// Пакет sqlerr — классификатор ошибок SQLite.
// Сопоставляет текст ошибки движка с упорядоченным набором шаблонов
// и возвращает apperr.ClientError с безопасным для клиента сообщением.
// Исходный текст движка всегда сохраняется в Raw для логов.
//
// Порядок шаблонов значим: первое совпадение выигрывает, и сообщение
// о нарушении уникальности никогда не должно проваливаться
// в общий fallback. Не переупорядочивать.
package sqlerr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bigkaa/shopsim/internal/apperr"
)

var (
	reUnique   = regexp.MustCompile(`UNIQUE constraint failed: ([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)`)
	reNotNull  = regexp.MustCompile(`NOT NULL constraint failed: ([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)`)
	reNoColumn = regexp.MustCompile(`no such column: ([A-Za-z0-9_.]+)`)
	reCheck    = regexp.MustCompile(`CHECK constraint failed: ([A-Za-z0-9_.]+)`)
	reNoTable  = regexp.MustCompile(`no such table: ([A-Za-z0-9_.]+)`)
)

// Classify превращает ошибку движка в ClientError.
// Текущее поведение намеренно относит ВСЕ сбои хранилища к ошибкам
// клиента (статус 400), включая, например, «no such table».
func Classify(engineErr error) *apperr.ClientError {
	raw := engineErr.Error()

	if m := reUnique.FindStringSubmatch(raw); m != nil {
		return apperr.NewClientRaw(
			fmt.Sprintf("value for column '%s' in table '%s' already exists and must be unique.", m[2], m[1]),
			raw,
		)
	}

	if m := reNotNull.FindStringSubmatch(raw); m != nil {
		return apperr.NewClientRaw(
			fmt.Sprintf("column '%s' in table '%s' is required and cannot be null.", m[2], m[1]),
			raw,
		)
	}

	if m := reNoColumn.FindStringSubmatch(raw); m != nil {
		return apperr.NewClientRaw(
			fmt.Sprintf("column '%s' does not exist in the table.", m[1]),
			raw,
		)
	}

	if strings.Contains(raw, "datatype mismatch") {
		return apperr.NewClientRaw("value has an invalid data type for the column.", raw)
	}

	if m := reCheck.FindStringSubmatch(raw); m != nil {
		return apperr.NewClientRaw(
			fmt.Sprintf("column '%s' does not satisfy the validation constraint.", m[1]),
			raw,
		)
	}

	if strings.Contains(raw, "FOREIGN KEY constraint failed") {
		return apperr.NewClientRaw("the operation violates a referential integrity constraint.", raw)
	}

	if m := reNoTable.FindStringSubmatch(raw); m != nil {
		return apperr.NewClientRaw(
			fmt.Sprintf("table '%s' does not exist in the database.", m[1]),
			raw,
		)
	}

	return apperr.NewClientRaw("Error with database", raw)
}
