package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigkaa/shopsim/internal/apperr"
	"github.com/bigkaa/shopsim/internal/config"
	"github.com/bigkaa/shopsim/internal/database"
	"github.com/bigkaa/shopsim/internal/sqlbuilder"
)

// newTestStore поднимает файловую SQLite-БД во временном каталоге,
// применяет миграции (схема + посевные данные) и возвращает Store.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := &config.Config{
		DBPath:        filepath.Join(t.TempDir(), "shopsim_test.db"),
		DBBusyTimeout: 5 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	db, err := database.Open(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db)
}

// assertClientMessage проверяет ClientError с точным сообщением.
func assertClientMessage(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatal("ожидалась ошибка, получили nil")
	}
	var ce *apperr.ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("ожидался *apperr.ClientError, получили %T: %v", err, err)
	}
	if ce.Message != want {
		t.Errorf("Message = %q, хотели %q", ce.Message, want)
	}
}

func TestFetchMany(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rows, err := st.FetchMany(ctx, "users", nil, nil, 0)
	if err != nil {
		t.Fatalf("FetchMany() ошибка: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, хотели 3 (посевные пользователи)", len(rows))
	}

	// limit применяется
	rows, err = st.FetchMany(ctx, "users", nil, nil, 1)
	if err != nil {
		t.Fatalf("FetchMany(limit=1) ошибка: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("len(rows) = %d, хотели 1", len(rows))
	}
}

func TestFetchMany_INFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rows, err := st.FetchMany(ctx, "products", []string{"*"},
		[]sqlbuilder.Filter{{Column: "id", Operator: "IN", Value: []int64{1, 2, 3}}}, 0)
	if err != nil {
		t.Fatalf("FetchMany(IN) ошибка: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, хотели 3", len(rows))
	}
}

func TestFetchMany_InvalidOperator(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.FetchMany(ctx, "users", nil,
		[]sqlbuilder.Filter{{Column: "id", Operator: "DROP TABLE", Value: 1}}, 0)
	assertClientMessage(t, err, "Invalid operator 'DROP TABLE' in filter.")
}

func TestFetchByID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	row, err := st.FetchByID(ctx, "users", 1, nil)
	if err != nil {
		t.Fatalf("FetchByID() ошибка: %v", err)
	}
	if row == nil {
		t.Fatal("row = nil, хотели посевного пользователя")
	}
	if row["email"] != "anna@example.com" {
		t.Errorf("email = %v, хотели anna@example.com", row["email"])
	}

	// Отсутствующая строка — nil, не ошибка
	row, err = st.FetchByID(ctx, "users", 9999, nil)
	if err != nil {
		t.Fatalf("FetchByID(9999) ошибка: %v", err)
	}
	if row != nil {
		t.Errorf("row = %v, хотели nil", row)
	}
}

func TestInsert_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	row, err := st.Insert(ctx, "categories", map[string]any{"name": "Puzzles"})
	if err != nil {
		t.Fatalf("Insert() ошибка: %v", err)
	}
	if row["name"] != "Puzzles" {
		t.Errorf("name = %v, хотели Puzzles", row["name"])
	}
	id, ok := row["id"].(int64)
	if !ok || id <= 0 {
		t.Errorf("id = %v, хотели положительный int64", row["id"])
	}

	// Вставка откачена: новый вызов её не видит
	rows, err := st.FetchMany(ctx, "categories", nil,
		[]sqlbuilder.Filter{{Column: "name", Operator: "=", Value: "Puzzles"}}, 0)
	if err != nil {
		t.Fatalf("FetchMany() ошибка: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("вставленная строка видна после отката: %v", rows)
	}
}

func TestInsert_UniqueViolation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// email посевного пользователя
	_, err := st.Insert(ctx, "users", map[string]any{
		"name":  "Dup",
		"email": "anna@example.com",
	})
	if err == nil {
		t.Fatal("ожидалась ошибка уникальности")
	}
	var ce *apperr.ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("ожидался *apperr.ClientError, получили %T: %v", err, err)
	}
	want := "value for column 'email' in table 'users' already exists and must be unique."
	if ce.Message != want {
		t.Errorf("Message = %q, хотели %q", ce.Message, want)
	}
	if ce.Raw == "" {
		t.Error("Raw пуст, исходный текст движка должен сохраняться")
	}
}

func TestInsert_ForeignKeyViolation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Insert(ctx, "products", map[string]any{
		"name":        "Orphan",
		"price":       1.0,
		"category_id": 999,
	})
	assertClientMessage(t, err, "the operation violates a referential integrity constraint.")
}

func TestUpdate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	row, err := st.Update(ctx, "users", 1, map[string]any{"name": "Renamed"})
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if row["name"] != "Renamed" {
		t.Errorf("name = %v, хотели Renamed", row["name"])
	}

	// Обновление откачено
	fresh, err := st.FetchByID(ctx, "users", 1, nil)
	if err != nil {
		t.Fatalf("FetchByID() ошибка: %v", err)
	}
	if fresh["name"] != "Anna Petrova" {
		t.Errorf("после отката name = %v, хотели Anna Petrova", fresh["name"])
	}
}

func TestUpdate_ZeroChange(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Update(ctx, "users", 9999, map[string]any{"name": "x"})
	assertClientMessage(t, err, "Element not found or nothing changed")
}

func TestToggleBoolean(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Посевной пользователь 1 активен
	row, err := st.ToggleBoolean(ctx, "users", 1, "active")
	if err != nil {
		t.Fatalf("ToggleBoolean() ошибка: %v", err)
	}
	if row["active"] != int64(0) {
		t.Errorf("active = %v, хотели 0", row["active"])
	}

	// Пользователь 3 неактивен — переключается в 1
	row, err = st.ToggleBoolean(ctx, "users", 3, "active")
	if err != nil {
		t.Fatalf("ToggleBoolean() ошибка: %v", err)
	}
	if row["active"] != int64(1) {
		t.Errorf("active = %v, хотели 1", row["active"])
	}
}

func TestToggleBoolean_ZeroChange(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.ToggleBoolean(ctx, "users", 9999, "active")
	assertClientMessage(t, err, "Element not found or nothing changed")
}

func TestDeleteByID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Пользователь 3 ни на что не ссылается
	row, err := st.DeleteByID(ctx, "users", 3)
	if err != nil {
		t.Fatalf("DeleteByID() ошибка: %v", err)
	}
	if row["id"] != int64(3) {
		t.Errorf("подтверждение = %v, хотели {id: 3}", row)
	}

	// Удаление откачено
	fresh, err := st.FetchByID(ctx, "users", 3, nil)
	if err != nil {
		t.Fatalf("FetchByID() ошибка: %v", err)
	}
	if fresh == nil {
		t.Error("после отката пользователь 3 должен существовать")
	}
}

func TestDeleteByID_ZeroChange(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.DeleteByID(ctx, "users", 9999)
	assertClientMessage(t, err, "Element not found or nothing changed")
}

// Любая последовательность мутаций через слой не меняет состояние БД.
func TestNonDurability(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	before, err := st.FetchMany(ctx, "users", nil, nil, 0)
	if err != nil {
		t.Fatalf("FetchMany() ошибка: %v", err)
	}

	if _, err := st.Insert(ctx, "users", map[string]any{"name": "Tmp", "email": "tmp@example.com"}); err != nil {
		t.Fatalf("Insert() ошибка: %v", err)
	}
	if _, err := st.Update(ctx, "users", 1, map[string]any{"name": "Mutated"}); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if _, err := st.DeleteByID(ctx, "users", 3); err != nil {
		t.Fatalf("DeleteByID() ошибка: %v", err)
	}

	after, err := st.FetchMany(ctx, "users", nil, nil, 0)
	if err != nil {
		t.Fatalf("FetchMany() ошибка: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("количество строк изменилось: %d → %d", len(before), len(after))
	}
	for i := range before {
		if before[i]["name"] != after[i]["name"] || before[i]["email"] != after[i]["email"] {
			t.Errorf("строка %d изменилась: %v → %v", i, before[i], after[i])
		}
	}
}

func TestRawQuery(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rows, err := st.RawQuery(ctx,
		`SELECT p.name, c.name AS category FROM products p JOIN categories c ON c.id = p.category_id WHERE p.id = ?`, 1)
	if err != nil {
		t.Fatalf("RawQuery() ошибка: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, хотели 1", len(rows))
	}
	if rows[0]["category"] != "Books" {
		t.Errorf("category = %v, хотели Books", rows[0]["category"])
	}
}

func TestFetchMany_UnknownTable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.FetchMany(ctx, "ghosts", nil, nil, 0)
	assertClientMessage(t, err, "table 'ghosts' does not exist in the database.")
}
