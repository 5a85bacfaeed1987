// Пакет store — обобщённые операции над ресурсами поверх
// sqlbuilder/sqlerr/simtx. Каждая операция выполняется в одной
// симулируемой транзакции: заметного снаружи результата вызов
// не оставляет, но внутри транзакции возвращает полноценные строки.
package store

import (
	"context"
	"database/sql"

	"github.com/bigkaa/shopsim/internal/apperr"
	"github.com/bigkaa/shopsim/internal/simtx"
	"github.com/bigkaa/shopsim/internal/sqlbuilder"
	"github.com/bigkaa/shopsim/internal/sqlerr"
)

// Row — строка результата: колонка → значение.
// Форма определяется запрошенными колонками, статической типизации нет.
type Row map[string]any

// Store — слой доступа к данным. Один экземпляр на процесс,
// соединение и транзакция выделяются на каждый вызов.
type Store struct {
	db *sql.DB
}

// New создаёт Store поверх открытого соединения с БД.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// FetchMany возвращает строки таблицы по фильтрам.
// Пустой columns означает все колонки; limit применяется только
// когда положителен. Порядок строк — естественный порядок движка.
func (s *Store) FetchMany(ctx context.Context, table string, columns []string, filters []sqlbuilder.Filter, limit int) ([]Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) ([]Row, error) {
		return queryRows(ctx, tx, table, columns, filters, limit)
	})
}

// FetchByID возвращает строку по id или nil, если её нет.
// Отсутствие строки при чтении — не ошибка.
func (s *Store) FetchByID(ctx context.Context, table string, id int64, columns []string) (Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) (Row, error) {
		return queryByID(ctx, tx, table, id, columns)
	})
}

// Insert вставляет запись и перечитывает её по сгенерированному id.
// Возвращается полная строка (не только id): симулируемая вставка
// всё равно отдаёт вызывающему видимую запись, хотя к моменту
// возврата она уже откачена.
func (s *Store) Insert(ctx context.Context, table string, data map[string]any) (Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) (Row, error) {
		id, err := execInsert(ctx, tx, table, data)
		if err != nil {
			return nil, err
		}
		return queryByID(ctx, tx, table, id, nil)
	})
}

// Update обновляет запись по id и возвращает обновлённую строку.
// Ноль затронутых строк — семантическая ошибка, а не успех:
// перечитывание при этом не выполняется.
func (s *Store) Update(ctx context.Context, table string, id int64, patch map[string]any) (Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) (Row, error) {
		q, err := sqlbuilder.BuildUpdate(table, id, patch)
		if err != nil {
			return nil, err
		}
		if err := execChanging(ctx, tx, q); err != nil {
			return nil, err
		}
		return queryByID(ctx, tx, table, id, nil)
	})
}

// ToggleBoolean переключает boolean-колонку записи 1↔0.
// Политика нулевого изменения та же, что у Update.
func (s *Store) ToggleBoolean(ctx context.Context, table string, id int64, column string) (Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) (Row, error) {
		q, err := sqlbuilder.BuildToggle(table, id, column)
		if err != nil {
			return nil, err
		}
		if err := execChanging(ctx, tx, q); err != nil {
			return nil, err
		}
		return queryByID(ctx, tx, table, id, nil)
	})
}

// DeleteByID удаляет запись по id. Возвращает подтверждение {id},
// а не удалённую строку. Политика нулевого изменения та же, что у Update.
func (s *Store) DeleteByID(ctx context.Context, table string, id int64) (Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) (Row, error) {
		q, err := sqlbuilder.BuildDelete(table, id)
		if err != nil {
			return nil, err
		}
		if err := execChanging(ctx, tx, q); err != nil {
			return nil, err
		}
		return Row{"id": id}, nil
	})
}

// RawQuery — сырой SQL-проход для чтений с JOIN, которые
// однотабличные сборщики выразить не могут. Значения привязываются
// как параметры; текст запроса — ответственность вызывающего
// (доверенный литерал, не пользовательский ввод).
func (s *Store) RawQuery(ctx context.Context, query string, args ...any) ([]Row, error) {
	return simtx.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) ([]Row, error) {
		return rawSelect(ctx, tx, query, args...)
	})
}

// --- Внутренние примитивы (работают внутри открытой транзакции) ---

// queryRows выполняет собранный SELECT и сканирует результат.
func queryRows(ctx context.Context, tx *sql.Tx, table string, columns []string, filters []sqlbuilder.Filter, limit int) ([]Row, error) {
	q, err := sqlbuilder.BuildSelect(table, columns, filters, limit)
	if err != nil {
		return nil, err
	}
	return rawSelect(ctx, tx, q.SQL, q.Args...)
}

// queryByID возвращает одну строку по id или nil.
func queryByID(ctx context.Context, tx *sql.Tx, table string, id int64, columns []string) (Row, error) {
	rows, err := queryRows(ctx, tx, table, columns,
		[]sqlbuilder.Filter{{Column: "id", Operator: "=", Value: id}}, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// execInsert выполняет INSERT и возвращает сгенерированный id.
func execInsert(ctx context.Context, tx *sql.Tx, table string, data map[string]any) (int64, error) {
	q, err := sqlbuilder.BuildInsert(table, data)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, sqlerr.Classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, sqlerr.Classify(err)
	}
	return id, nil
}

// execChanging выполняет мутирующий запрос и требует хотя бы одну
// затронутую строку.
func execChanging(ctx context.Context, tx *sql.Tx, q sqlbuilder.Query) error {
	res, err := tx.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return sqlerr.Classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return sqlerr.Classify(err)
	}
	if affected == 0 {
		return apperr.NewClient("Element not found or nothing changed")
	}
	return nil
}

// rawSelect выполняет запрос и сканирует все строки динамически.
func rawSelect(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]Row, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqlerr.Classify(err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows сканирует результат в срез Row. Набор колонок берётся
// из самого результата, []byte приводится к string.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, sqlerr.Classify(err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, sqlerr.Classify(err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlerr.Classify(err)
	}
	return result, nil
}
