package execution

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// StaleThreshold is the age at which a non-terminal workflow execution, or
// a terminal one, left over from a prior process is swept by
// ReconcileStale. Plain executions are never gated on this: a process
// restart means no supervisor is left to finish them, so every
// starting/running execution is cancelled unconditionally.
const StaleThreshold = time.Hour

// Reconciler runs the idempotent startup sweep: it removes corrupt
// execution rows and cancels executions abandoned by a previous process.
type Reconciler struct {
	store  Store
	logger *log.Logger
}

// NewReconciler constructs a Reconciler against store.
func NewReconciler(store Store, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{store: store, logger: logger}
}

// Run delegates to the store's ReconcileStale, which deletes executions
// whose task or agent reference is missing, unconditionally cancels every
// execution still starting/running, and sweeps workflow_executions older
// than StaleThreshold, then logs a summary. Running it twice in a row is a
// no-op the second time: nothing remains to delete or cancel once the
// first pass has acted.
func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	report, err := r.store.ReconcileStale(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	r.logger.WithFields(log.Fields{
		"deleted_corrupt":   report.DeletedCorrupt,
		"cancelled_stale":   report.CancelledStale,
		"workflows_aborted": report.WorkflowsAborted,
		"workflows_deleted": report.WorkflowsDeleted,
	}).Info("startup reconciliation complete")
	return report, nil
}
