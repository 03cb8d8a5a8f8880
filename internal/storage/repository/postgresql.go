// Package repository реализует хранилище аккаунтов на основе PostgreSQL.
// Уникальность email и никнейма обеспечивается ограничениями схемы,
// назначение uid — последовательностью; это предпочтительная реализация
// контракта storage.Store.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с аккаунтами и журналом аудита.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL с ограниченным числом повторных
// попыток. При исчерпании попыток возвращает последнюю ошибку.
func New(connectionString string, retries int, delay time.Duration) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for attempt := 0; ; attempt++ {
		err = db.PingContext(context.Background())
		if err == nil {
			break
		}
		if attempt >= retries {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		time.Sleep(delay)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'users'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table users missing or query error: %w", err)
	}
	return nil
}
