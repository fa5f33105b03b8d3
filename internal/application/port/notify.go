package port

import (
	"context"

	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// AlertNotifier delivers raised alerts to an operator-facing channel
type AlertNotifier interface {
	Notify(ctx context.Context, alert *entity.BudgetAlert) error
}
