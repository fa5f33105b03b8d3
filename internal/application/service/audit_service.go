package service

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// AuditService appends immutable before/after diffs for entity mutations.
// Recording is best-effort: failures are logged at Warn with full context
// and never propagate to the caller. Audit is observability, not a
// correctness gate.
type AuditService interface {
	Record(ctx context.Context, entityType string, entityID int64, action, actorID string, before, after interface{})
	ListForEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error)
}

type auditServiceImpl struct {
	auditRepo port.AuditRepository
	logger    Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo port.AuditRepository, logger Logger) AuditService {
	return &auditServiceImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record computes a structural field diff between the two snapshots and
// appends it. Pass nil before for creates; pass both for updates and
// tombstones.
func (s *auditServiceImpl) Record(ctx context.Context, entityType string, entityID int64, action, actorID string, before, after interface{}) {
	diff, err := diffSnapshots(before, after)
	if err != nil {
		s.logger.Warn("Audit diff failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"action", action,
			"error", err,
		)
		return
	}

	record := &entity.AuditRecord{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Diff:       diff,
		RecordedAt: time.Now(),
	}

	if err := s.auditRepo.Create(ctx, record); err != nil {
		s.logger.Warn("Audit write failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"action", action,
			"actor_id", actorID,
			"error", err,
		)
	}
}

// ListForEntity retrieves the audit trail for one entity
func (s *auditServiceImpl) ListForEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error) {
	return s.auditRepo.ListByEntity(ctx, entityType, entityID)
}

// diffSnapshots renders the changed fields between two entity snapshots
// as JSON, keyed by field with before/after values. Unchanged fields are
// omitted; a nil snapshot compares as empty.
func diffSnapshots(before, after interface{}) (string, error) {
	beforeMap, err := snapshotMap(before)
	if err != nil {
		return "", err
	}
	afterMap, err := snapshotMap(after)
	if err != nil {
		return "", err
	}

	diff := make(map[string]map[string]interface{})
	for key, afterVal := range afterMap {
		beforeVal, existed := beforeMap[key]
		if existed && reflect.DeepEqual(beforeVal, afterVal) {
			continue
		}
		diff[key] = map[string]interface{}{"before": beforeVal, "after": afterVal}
	}
	for key, beforeVal := range beforeMap {
		if _, exists := afterMap[key]; !exists {
			diff[key] = map[string]interface{}{"before": beforeVal, "after": nil}
		}
	}

	data, err := json.Marshal(diff)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// snapshotMap flattens an entity into its JSON field map
func snapshotMap(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
