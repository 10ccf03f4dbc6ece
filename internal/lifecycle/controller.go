package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/cythro/cythrodash-core/internal/ledger"
	"github.com/cythro/cythrodash-core/internal/servers"
	"github.com/cythro/cythrodash-core/pkg/db/models"
	"github.com/cythro/cythrodash-core/pkg/enums"
	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
	"github.com/cythro/cythrodash-core/pkg/logger"
	"github.com/cythro/cythrodash-core/pkg/metrics"
)

// txRunner abstracts the transactional boundary.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// panelClient is the slice of the panel API the controller consumes.
// Panel calls happen after the owning transaction commits; a failure is
// logged and the state change stands.
type panelClient interface {
	SuspendServer(ctx context.Context, panelServerID string) error
	DeleteServer(ctx context.Context, panelServerID string) error
}

// debitRecorder is the slice of the ledger service the billing pass
// consumes.
type debitRecorder interface {
	RecordDebit(ctx context.Context, tx *gorm.DB, input ledger.DebitInput) (*models.LedgerEntry, error)
}

// Params configure the lifecycle controller.
type Params struct {
	Logger       *logger.Logger
	DB           txRunner
	Servers      servers.Repository
	Ledger       debitRecorder
	Panel        panelClient
	Metrics      *metrics.CronJobMetrics
	BillingCycle time.Duration
	GracePeriod  time.Duration
}

// Controller walks the server fleet through its billing lifecycle. Each
// pass is idempotent against the reference time it is given: re-running
// a pass with the same input changes nothing.
type Controller struct {
	logg         *logger.Logger
	db           txRunner
	servers      servers.Repository
	ledger       debitRecorder
	panel        panelClient
	metrics      *metrics.CronJobMetrics
	billingCycle time.Duration
	gracePeriod  time.Duration
}

// BillingResult summarizes one billing pass.
type BillingResult struct {
	// Processed counts servers successfully debited this pass.
	Processed int
	// Overdue counts servers newly marked overdue for lack of funds.
	Overdue int
}

// NewController wires the lifecycle controller.
func NewController(params Params) (*Controller, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Servers == nil {
		return nil, fmt.Errorf("servers repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Panel == nil {
		return nil, fmt.Errorf("panel client required")
	}
	if params.BillingCycle <= 0 {
		return nil, fmt.Errorf("billing cycle must be positive")
	}
	if params.GracePeriod <= 0 {
		return nil, fmt.Errorf("grace period must be positive")
	}
	return &Controller{
		logg:         params.Logger,
		db:           params.DB,
		servers:      params.Servers,
		ledger:       params.Ledger,
		panel:        params.Panel,
		metrics:      params.Metrics,
		billingCycle: params.BillingCycle,
		gracePeriod:  params.GracePeriod,
	}, nil
}

// RunPass executes the four lifecycle passes strictly in order. Pass
// failures are collected, not fatal: a broken billing pass still lets
// suspension and deletion run.
func (c *Controller) RunPass(ctx context.Context, now time.Time) error {
	var errs []error

	backfilled, err := c.BackfillExpiry(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("backfill expiry pass: %w", err))
	}

	billing, err := c.ProcessBillingCycles(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("billing pass: %w", err))
	}

	suspended, err := c.SuspendExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("suspend pass: %w", err))
	}

	deleted, err := c.DeleteAfterGrace(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete pass: %w", err))
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"backfilled": backfilled,
		"billed":     billing.Processed,
		"overdue":    billing.Overdue,
		"suspended":  suspended,
		"deleted":    deleted,
	})
	c.logg.Info(logCtx, "lifecycle pass complete")

	return multierr.Combine(errs...)
}

// BackfillExpiry repairs servers that predate expiry tracking. The
// expiry is derived from next_due_at when present, otherwise one
// billing cycle from creation. Only expiry_date is touched.
func (c *Controller) BackfillExpiry(ctx context.Context, now time.Time) (int, error) {
	candidates, err := c.servers.FindMissingExpiry(ctx)
	if err != nil {
		return 0, fmt.Errorf("query servers missing expiry: %w", err)
	}

	var errs []error
	count := 0
	for _, server := range candidates {
		expiry := server.CreatedAt.Add(c.billingCycle)
		if server.NextDueAt != nil {
			expiry = *server.NextDueAt
		}
		if err := c.servers.Update(ctx, server.ID, map[string]any{"expiry_date": expiry}); err != nil {
			errs = append(errs, fmt.Errorf("backfill server %s: %w", server.ID, err))
			continue
		}
		count++
	}

	c.metrics.AddProcessed("backfill", count)
	logCtx := c.logg.WithFields(ctx, map[string]any{"count": count})
	c.logg.Info(logCtx, "expiry backfill loop complete")
	return count, multierr.Combine(errs...)
}

// ProcessBillingCycles debits each due server's owner for one cycle.
// The debit, the ledger entry, and the due-date advance share a
// transaction: either the owner paid and the server runs another cycle,
// or nothing changed. An owner who cannot pay marks the server overdue
// and keeps it due, so every later pass retries until funds appear or
// the expiry pass catches it.
func (c *Controller) ProcessBillingCycles(ctx context.Context, now time.Time) (BillingResult, error) {
	candidates, err := c.servers.FindDueForBilling(ctx, now)
	if err != nil {
		return BillingResult{}, fmt.Errorf("query servers due for billing: %w", err)
	}

	var errs []error
	result := BillingResult{}
	for _, server := range candidates {
		err := c.billServer(ctx, server, now)
		switch {
		case err == nil:
			result.Processed++
		case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds):
			if markErr := c.markOverdue(ctx, server); markErr != nil {
				errs = append(errs, fmt.Errorf("mark server %s overdue: %w", server.ID, markErr))
				continue
			}
			if server.BillingStatus != enums.BillingStatusOverdue {
				result.Overdue++
			}
		case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
			// Period already settled by another worker; nothing to do.
		default:
			errs = append(errs, fmt.Errorf("bill server %s: %w", server.ID, err))
		}
	}

	c.metrics.AddProcessed("billing", result.Processed)
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"billed":  result.Processed,
		"overdue": result.Overdue,
	})
	c.logg.Info(logCtx, "billing loop complete")
	return result, multierr.Combine(errs...)
}

func (c *Controller) billServer(ctx context.Context, server models.Server, now time.Time) error {
	if server.NextDueAt == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "server has no due date")
	}
	period := *server.NextDueAt

	return c.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := c.ledger.RecordDebit(ctx, tx, ledger.DebitInput{
			UserID:      server.UserID,
			Amount:      server.MonthlyCost,
			Category:    enums.LedgerCategoryBilling,
			Action:      "server_billing",
			ReferenceID: ledger.BillingReference(server.ID, period),
			Message:     fmt.Sprintf("billing cycle for %s", server.Name),
		})
		if err != nil {
			return err
		}

		nextDue := period.Add(c.billingCycle)
		return c.servers.WithTx(tx).Update(ctx, server.ID, map[string]any{
			"billing_status": enums.BillingStatusActive,
			"next_due_at":    nextDue,
			"expiry_date":    nextDue,
			"last_billed_at": now,
		})
	})
}

func (c *Controller) markOverdue(ctx context.Context, server models.Server) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"server_id": server.ID.String(),
		"user_id":   server.UserID.String(),
		"cost":      server.MonthlyCost,
	})
	c.logg.Warn(logCtx, "insufficient funds for billing cycle")

	if server.BillingStatus == enums.BillingStatusOverdue {
		return nil
	}
	return c.servers.Update(ctx, server.ID, map[string]any{
		"billing_status": enums.BillingStatusOverdue,
	})
}

// SuspendExpired suspends servers whose expiry has passed and opens the
// grace window. The panel suspend call happens after commit so a panel
// outage cannot hold the fleet's state hostage.
func (c *Controller) SuspendExpired(ctx context.Context, now time.Time) (int, error) {
	c.warnAutoDeleteAnomalies(ctx)

	candidates, err := c.servers.FindExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("query expired servers: %w", err)
	}

	var errs []error
	count := 0
	for _, server := range candidates {
		err := c.servers.Update(ctx, server.ID, map[string]any{
			"status":         enums.ServerStatusSuspended,
			"billing_status": enums.BillingStatusSuspended,
			"auto_delete_at": now.Add(c.gracePeriod),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("suspend server %s: %w", server.ID, err))
			continue
		}
		count++

		if panelErr := c.panel.SuspendServer(ctx, server.PanelServerID); panelErr != nil {
			logCtx := c.logg.WithServerID(ctx, server.ID.String())
			c.logg.Error(logCtx, "panel suspend failed", panelErr)
		}
	}

	c.metrics.AddProcessed("suspend", count)
	logCtx := c.logg.WithFields(ctx, map[string]any{"count": count})
	c.logg.Info(logCtx, "suspension loop complete")
	return count, multierr.Combine(errs...)
}

// DeleteAfterGrace soft-deletes suspended servers whose grace window
// has closed. Deletion is terminal: no pass ever moves a server out of
// the deleted state.
func (c *Controller) DeleteAfterGrace(ctx context.Context, now time.Time) (int, error) {
	candidates, err := c.servers.FindSuspendedPastGrace(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("query servers past grace: %w", err)
	}

	var errs []error
	count := 0
	for _, server := range candidates {
		err := c.servers.Update(ctx, server.ID, map[string]any{
			"status":         enums.ServerStatusDeleted,
			"billing_status": enums.BillingStatusTerminated,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("delete server %s: %w", server.ID, err))
			continue
		}
		count++

		if panelErr := c.panel.DeleteServer(ctx, server.PanelServerID); panelErr != nil {
			logCtx := c.logg.WithServerID(ctx, server.ID.String())
			c.logg.Error(logCtx, "panel delete failed", panelErr)
		}
	}

	c.metrics.AddProcessed("delete", count)
	logCtx := c.logg.WithFields(ctx, map[string]any{"count": count})
	c.logg.Info(logCtx, "deletion loop complete")
	return count, multierr.Combine(errs...)
}

// warnAutoDeleteAnomalies flags rows carrying a deletion deadline in a
// state that should not have one. They are left untouched; deletion
// only ever follows suspension.
func (c *Controller) warnAutoDeleteAnomalies(ctx context.Context) {
	anomalies, err := c.servers.FindAutoDeleteAnomalies(ctx)
	if err != nil {
		c.logg.Error(ctx, "query auto-delete anomalies failed", err)
		return
	}
	for _, server := range anomalies {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"server_id": server.ID.String(),
			"status":    string(server.Status),
		})
		c.logg.Warn(logCtx, "auto_delete_at set on non-suspended server")
	}
}
