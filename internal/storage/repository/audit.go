package repository

import (
	"context"
	"fmt"

	"github.com/lasetdev/laset-account/internal/models"
)

// AppendAudit добавляет запись журнала действий администратора.
// Вызывающая сторона решает, блокировать ли мутацию при ошибке записи
// (сервис администрирования не блокирует).
func (s *Storage) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	const op = "storage.AppendAudit"
	query := `INSERT INTO audit_log (admin_uid, action, target_uid, details)
			  VALUES ($1, $2, $3, $4);`
	if _, err := s.DB.ExecContext(ctx, query,
		entry.AdminUID, entry.Action, entry.TargetUID, entry.Details); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAudit возвращает последние записи журнала, новые первыми.
func (s *Storage) ListAudit(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	const op = "storage.ListAudit"
	query := `SELECT id, admin_uid, action, target_uid, details, created_at
			  FROM audit_log ORDER BY id DESC LIMIT $1`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.AdminUID, &e.Action, &e.TargetUID,
			&e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
