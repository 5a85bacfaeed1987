// Пакет sqlbuilder — динамическая сборка параметризованного SQL
// для одной таблицы: SELECT с фильтрами, одиночная и пакетная вставка,
// обновление по id, переключение boolean-колонки и удаление по id.
// Идентификаторы (таблицы, колонки) проходят через Sanitize,
// значения всегда привязываются как параметры.
package sqlbuilder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bigkaa/shopsim/internal/apperr"
)

// Filter — тройка колонка/оператор/значение для WHERE-условия.
// Для оператора IN значение должно быть срезом; остальные операторы
// привязывают одно скалярное значение.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Query — собранный SQL и значения для привязки.
type Query struct {
	SQL  string
	Args []any
}

// allowedOperators — белый список операторов сравнения.
// Единственная защита от SQL-инъекции через оператор:
// проверка обязана выполняться до любой конкатенации в текст запроса.
var allowedOperators = map[string]struct{}{
	"=":    {},
	"!=":   {},
	"<":    {},
	"<=":   {},
	">":    {},
	">=":   {},
	"LIKE": {},
	"IN":   {},
}

// Sanitize экранирует фрагмент идентификатора для безопасной
// интерполяции: удаляет одинарные, двойные кавычки и backtick,
// затем оборачивает результат в двойные кавычки.
// Литерал «*» возвращается без изменений.
// Существование идентификатора в схеме не проверяется — такая ошибка
// всплывёт позже через классификатор ошибок движка.
func Sanitize(name string) string {
	if name == "*" {
		return name
	}
	cleaned := strings.NewReplacer(`'`, "", `"`, "", "`", "").Replace(name)
	return `"` + cleaned + `"`
}

// BuildSelect собирает SELECT по таблице с колонками, фильтрами и лимитом.
// Пустой список колонок означает «*». Фильтры соединяются через AND
// (OR не поддерживается — осознанное ограничение).
// limit применяется только когда он положительный.
func BuildSelect(table string, columns []string, filters []Filter, limit int) (Query, error) {
	if table == "" {
		return Query{}, apperr.NewClient("Invalid table name")
	}

	if len(columns) == 0 {
		columns = []string{"*"}
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = Sanitize(c)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(cols, ", "), Sanitize(table))

	where, args, err := buildWhere(filters)
	if err != nil {
		return Query{}, err
	}
	sb.WriteString(where)

	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}

	return Query{SQL: sb.String(), Args: args}, nil
}

// buildWhere собирает WHERE-часть из фильтров. Оператор проверяется
// по белому списку до попадания в текст запроса; IN разворачивается
// в один placeholder на элемент среза.
func buildWhere(filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	conditions := make([]string, 0, len(filters))
	var args []any

	for _, f := range filters {
		if _, ok := allowedOperators[f.Operator]; !ok {
			return "", nil, apperr.NewClient(fmt.Sprintf("Invalid operator '%s' in filter.", f.Operator))
		}

		if f.Operator == "IN" {
			values, ok := toSlice(f.Value)
			if !ok || len(values) == 0 {
				return "", nil, apperr.NewClient(fmt.Sprintf("Invalid value for IN filter on column '%s'.", f.Column))
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			conditions = append(conditions, fmt.Sprintf("%s IN (%s)", Sanitize(f.Column), placeholders))
			args = append(args, values...)
			continue
		}

		conditions = append(conditions, fmt.Sprintf("%s %s ?", Sanitize(f.Column), f.Operator))
		args = append(args, f.Value)
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// toSlice приводит значение IN-фильтра к срезу.
// Покрывает типичные формы: []any (после JSON-декодирования)
// и однородные срезы базовых типов.
func toSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	case []int64:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}

// sortedFields возвращает имена полей записи в детерминированном порядке.
// Go не гарантирует порядок обхода map, а тесты и пакетная вставка
// требуют стабильного списка колонок.
func sortedFields(record map[string]any) []string {
	fields := make([]string, 0, len(record))
	for k := range record {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// BuildInsert собирает INSERT одной записи.
// Запись без полей — ошибка клиента.
func BuildInsert(table string, record map[string]any) (Query, error) {
	if table == "" {
		return Query{}, apperr.NewClient("Invalid table name")
	}
	if len(record) == 0 {
		return Query{}, apperr.NewClient("No fields to insert")
	}

	fields := sortedFields(record)
	cols := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = Sanitize(f)
		placeholders[i] = "?"
		args[i] = record[f]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Sanitize(table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return Query{SQL: sql, Args: args}, nil
}

// BuildBulkInsert собирает INSERT нескольких записей одним запросом.
// Пустой срез или первая запись без полей — ошибка клиента.
// Набор колонок берётся из первой записи; совпадение наборов полей
// у остальных записей не проверяется — отсутствующее поле
// привязывается как NULL, лишнее молча отбрасывается.
func BuildBulkInsert(table string, records []map[string]any) (Query, error) {
	if table == "" {
		return Query{}, apperr.NewClient("Invalid table name")
	}
	if len(records) == 0 {
		return Query{}, apperr.NewClient("No records to insert")
	}
	if len(records[0]) == 0 {
		return Query{}, apperr.NewClient("No fields to insert")
	}

	fields := sortedFields(records[0])
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = Sanitize(f)
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ") + ")"
	rows := make([]string, len(records))
	args := make([]any, 0, len(fields)*len(records))
	for i, rec := range records {
		rows[i] = rowPlaceholder
		for _, f := range fields {
			args = append(args, rec[f])
		}
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		Sanitize(table), strings.Join(cols, ", "), strings.Join(rows, ", "))
	return Query{SQL: sql, Args: args}, nil
}

// BuildUpdate собирает UPDATE по id. Пустой patch — ошибка клиента.
func BuildUpdate(table string, id any, patch map[string]any) (Query, error) {
	if table == "" {
		return Query{}, apperr.NewClient("Invalid table name")
	}
	if len(patch) == 0 {
		return Query{}, apperr.NewClient("No fields to update")
	}

	fields := sortedFields(patch)
	sets := make([]string, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		sets[i] = Sanitize(f) + " = ?"
		args = append(args, patch[f])
	}
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		Sanitize(table), strings.Join(sets, ", "), Sanitize("id"))
	return Query{SQL: sql, Args: args}, nil
}

// BuildToggle собирает UPDATE, переключающий boolean-колонку 1↔0
// через CASE-выражение.
func BuildToggle(table string, id any, column string) (Query, error) {
	if table == "" {
		return Query{}, apperr.NewClient("Invalid table name")
	}

	col := Sanitize(column)
	sql := fmt.Sprintf("UPDATE %s SET %s = CASE WHEN %s = 1 THEN 0 ELSE 1 END WHERE %s = ?",
		Sanitize(table), col, col, Sanitize("id"))
	return Query{SQL: sql, Args: []any{id}}, nil
}

// BuildDelete собирает DELETE по id.
func BuildDelete(table string, id any) (Query, error) {
	if table == "" {
		return Query{}, apperr.NewClient("Invalid table name")
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", Sanitize(table), Sanitize("id"))
	return Query{SQL: sql, Args: []any{id}}, nil
}
