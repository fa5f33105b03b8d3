package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// AuditRepository implements port.AuditRepository on SQLite. Records
// are append-only; there is no update or delete path.
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit record
func (r *AuditRepository) Create(ctx context.Context, record *entity.AuditRecord) error {
	query := `
		INSERT INTO audit_log (
			id, entity_type, entity_id, action, actor_id, diff, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		record.ID,
		record.EntityType,
		record.EntityID,
		record.Action,
		record.ActorID,
		record.Diff,
		record.RecordedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create audit record", zap.Error(err))
		return &apperror.PersistenceError{Op: "insert audit record", Err: err}
	}

	return nil
}

// ListByEntity retrieves the audit trail for one entity, newest first
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error) {
	query := `
		SELECT id, entity_type, entity_id, action, actor_id, diff, recorded_at
		FROM audit_log
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY recorded_at DESC, id DESC
	`

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		r.logger.Error("Failed to list audit records",
			zap.String("entity_type", entityType), zap.Int64("entity_id", entityID), zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "list audit records", Err: err}
	}
	defer rows.Close()

	var records []*entity.AuditRecord
	for rows.Next() {
		var record entity.AuditRecord
		err := rows.Scan(
			&record.ID,
			&record.EntityType,
			&record.EntityID,
			&record.Action,
			&record.ActorID,
			&record.Diff,
			&record.RecordedAt,
		)
		if err != nil {
			return nil, &apperror.PersistenceError{Op: "scan audit record", Err: err}
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
