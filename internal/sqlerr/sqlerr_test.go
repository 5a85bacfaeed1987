package sqlerr

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{
			name:    "нарушение уникальности",
			raw:     "UNIQUE constraint failed: users.email",
			wantMsg: "value for column 'email' in table 'users' already exists and must be unique.",
		},
		{
			name:    "нарушение уникальности с кодом движка",
			raw:     "constraint failed: UNIQUE constraint failed: users.email (2067)",
			wantMsg: "value for column 'email' in table 'users' already exists and must be unique.",
		},
		{
			name:    "нарушение NOT NULL",
			raw:     "NOT NULL constraint failed: products.name",
			wantMsg: "column 'name' in table 'products' is required and cannot be null.",
		},
		{
			name:    "неизвестная колонка",
			raw:     "no such column: nickname",
			wantMsg: "column 'nickname' does not exist in the table.",
		},
		{
			name:    "несовпадение типа данных",
			raw:     "datatype mismatch",
			wantMsg: "value has an invalid data type for the column.",
		},
		{
			name:    "нарушение CHECK",
			raw:     "CHECK constraint failed: price",
			wantMsg: "column 'price' does not satisfy the validation constraint.",
		},
		{
			name:    "нарушение внешнего ключа",
			raw:     "FOREIGN KEY constraint failed",
			wantMsg: "the operation violates a referential integrity constraint.",
		},
		{
			name:    "неизвестная таблица",
			raw:     "no such table: ghosts",
			wantMsg: "table 'ghosts' does not exist in the database.",
		},
		{
			name:    "любая другая ошибка — общий fallback",
			raw:     "database is locked",
			wantMsg: "Error with database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(errors.New(tt.raw))
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, хотели %q", got.Message, tt.wantMsg)
			}
			if got.Raw != tt.raw {
				t.Errorf("Raw = %q, хотели исходный текст %q", got.Raw, tt.raw)
			}
		})
	}
}

// Сообщение, совпадающее и с шаблоном уникальности, и с текстом
// общего fallback, обязано классифицироваться как уникальность:
// первое совпадение выигрывает, порядок шаблонов значим.
func TestClassify_Precedence(t *testing.T) {
	raw := "Error with database: UNIQUE constraint failed: categories.name"
	got := Classify(errors.New(raw))
	want := "value for column 'name' in table 'categories' already exists and must be unique."
	if got.Message != want {
		t.Errorf("Message = %q, хотели %q", got.Message, want)
	}
}
