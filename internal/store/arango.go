package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	driver "github.com/arangodb/go-driver"
	"github.com/arangodb/go-driver/http"
	log "github.com/sirupsen/logrus"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/config"
	"github.com/aosanya/agentforge/internal/domainerr"
	"github.com/aosanya/agentforge/internal/execution"
	"github.com/aosanya/agentforge/internal/orchestrator"
	"github.com/aosanya/agentforge/internal/task"
)

// Collection names for the ArangoDB-backed Gateway.
const (
	agentsCollection       = "agents"
	tasksCollection        = "tasks"
	patternsCollection     = "workflow_patterns"
	executionsCollection   = "executions"
	workflowExecCollection = "workflow_executions"
)

// withKey stamps a document's ID onto ArangoDB's reserved _key field so
// ReadDocument/UpdateDocument can address it directly by that ID instead
// of querying by a secondary field.
func withKey(id string, doc any) any {
	b, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return doc
	}
	m["_key"] = id
	return m
}

// withTx runs fn inside a single ArangoDB streaming transaction scoped to
// cols, committing on success and aborting on any error so that fn's
// writes across multiple collections are all-or-nothing. fn must perform
// its document operations against the ctx it is given, not the outer one.
func (a *Arango) withTx(ctx context.Context, cols driver.TransactionCollections, fn func(ctx context.Context) error) error {
	tid, err := a.db.BeginTransaction(ctx, cols, nil)
	if err != nil {
		return domainerr.NewInternal(err)
	}
	txCtx := driver.WithTransactionID(ctx, tid)

	if err := fn(txCtx); err != nil {
		if abortErr := a.db.AbortTransaction(ctx, tid, nil); abortErr != nil {
			a.logger.WithError(abortErr).Warn("failed to abort transaction after error")
		}
		return err
	}
	if err := a.db.CommitTransaction(ctx, tid, nil); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

// Arango is a Gateway implementation backed by ArangoDB, using the same
// connection-pooling and collection-management conventions as the rest
// of this codebase.
type Arango struct {
	client driver.Client
	db     driver.Database

	agents     driver.Collection
	tasks      driver.Collection
	patterns   driver.Collection
	executions driver.Collection
	workflows  driver.Collection

	logger *log.Logger
}

// NewArango connects to ArangoDB, ensures the target database and every
// collection this gateway needs exist, and returns a ready Arango
// gateway.
func NewArango(cfg config.DatabaseConfig, logger *log.Logger) (*Arango, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	ctx := context.Background()

	connConfig := http.ConnectionConfig{
		Endpoints: []string{fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)},
	}
	conn, err := http.NewConnection(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	client, err := driver.NewClient(driver.ClientConfig{
		Connection:     conn,
		Authentication: driver.BasicAuthentication(cfg.Username, cfg.Password),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	db, err := ensureDatabase(ctx, client, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure database: %w", err)
	}

	a := &Arango{client: client, db: db, logger: logger}
	if err := a.initCollections(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize collections: %w", err)
	}

	logger.WithFields(log.Fields{"host": cfg.Host, "port": cfg.Port, "database": cfg.Database}).Info("connected to ArangoDB")
	return a, nil
}

func ensureDatabase(ctx context.Context, client driver.Client, name string) (driver.Database, error) {
	exists, err := client.DatabaseExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return client.Database(ctx, name)
	}
	return client.CreateDatabase(ctx, name, nil)
}

func (a *Arango) initCollections(ctx context.Context) error {
	names := map[string]*driver.Collection{
		agentsCollection:       &a.agents,
		tasksCollection:        &a.tasks,
		patternsCollection:     &a.patterns,
		executionsCollection:   &a.executions,
		workflowExecCollection: &a.workflows,
	}
	for name, target := range names {
		coll, err := a.ensureCollection(ctx, name)
		if err != nil {
			return err
		}
		*target = coll
	}
	return nil
}

func (a *Arango) ensureCollection(ctx context.Context, name string) (driver.Collection, error) {
	exists, err := a.db.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return a.db.Collection(ctx, name)
	}
	coll, err := a.db.CreateCollection(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	a.logger.WithField("collection", name).Info("created collection")
	return coll, nil
}

// Close releases the underlying connection. The go-driver HTTP transport
// has no persistent handle to release beyond its connection pool, which
// is closed by the standard library's transport idle-timeout.
func (a *Arango) Close() error {
	return nil
}

func wrapNotFound(err error, entity, id string) error {
	if driver.IsNotFound(err) {
		return domainerr.NewNotFound(entity, id)
	}
	return domainerr.NewInternal(err)
}

// --- Agent CRUD ---

func (a *Arango) CreateAgent(ctx context.Context, ag *agent.Agent) error {
	if _, err := a.agents.CreateDocument(ctx, withKey(ag.ID, ag)); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

func (a *Arango) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	var out agent.Agent
	if _, err := a.agents.ReadDocument(ctx, id, &out); err != nil {
		return nil, wrapNotFound(err, "agent", id)
	}
	return &out, nil
}

func (a *Arango) ListAgents(ctx context.Context, filters AgentFilters) ([]*agent.Agent, error) {
	query := "FOR a IN " + agentsCollection
	bindVars := map[string]any{}
	var conditions []string
	if filters.Status != "" {
		conditions = append(conditions, "a.status == @status")
		bindVars["status"] = string(filters.Status)
	}
	if filters.Role != "" {
		conditions = append(conditions, "a.role == @role")
		bindVars["role"] = filters.Role
	}
	query += buildFilter(conditions) + " RETURN a"

	cursor, err := a.db.Query(ctx, query, bindVars)
	if err != nil {
		return nil, domainerr.NewInternal(err)
	}
	defer cursor.Close()

	var out []*agent.Agent
	for {
		var ag agent.Agent
		if _, err := cursor.ReadDocument(ctx, &ag); driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return nil, domainerr.NewInternal(err)
		}
		out = append(out, &ag)
	}
	return out, nil
}

func (a *Arango) UpdateAgent(ctx context.Context, ag *agent.Agent) error {
	if _, err := a.agents.UpdateDocument(ctx, ag.ID, ag); err != nil {
		return wrapNotFound(err, "agent", ag.ID)
	}
	return nil
}

func (a *Arango) DeleteAgent(ctx context.Context, id string, force bool) error {
	ag, err := a.GetAgent(ctx, id)
	if err != nil {
		return err
	}

	nonTerminal, err := a.ListNonTerminalForAgent(ctx, id)
	if err != nil {
		return err
	}
	if len(nonTerminal) > 0 && !force {
		return domainerr.NewConflict(
			fmt.Sprintf("agent %s has a non-terminal execution", id),
			"retry with force=true to abort in-flight executions and delete anyway",
		)
	}

	now := time.Now().UTC()
	return a.withTx(ctx, driver.TransactionCollections{
		Exclusive: []string{agentsCollection, tasksCollection, executionsCollection},
	}, func(txCtx context.Context) error {
		for _, e := range nonTerminal {
			if err := a.SetStatus(txCtx, e.ID, execution.StatusCancelled, nil, nil); err != nil {
				return err
			}
		}

		tasks, err := a.ListTasks(txCtx, TaskFilters{})
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.IsTerminal() {
				continue
			}
			for _, assigned := range t.AssignedAgents {
				if assigned.AgentID != id {
					continue
				}
				t.Status = task.StatusPending
				t.ErrorMessage = fmt.Sprintf("Agent %s was deleted", ag.Name)
				t.UpdatedAt = now
				if err := a.UpdateTask(txCtx, t); err != nil {
					return err
				}
				break
			}
		}

		if _, err := a.agents.RemoveDocument(txCtx, id); err != nil {
			return wrapNotFound(err, "agent", id)
		}
		return nil
	})
}

// --- Task CRUD ---

func (a *Arango) CreateTask(ctx context.Context, t *task.Task) error {
	if _, err := a.tasks.CreateDocument(ctx, withKey(t.ID, t)); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

func (a *Arango) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	var out task.Task
	if _, err := a.tasks.ReadDocument(ctx, taskID, &out); err != nil {
		return nil, wrapNotFound(err, "task", taskID)
	}
	return &out, nil
}

func (a *Arango) ListTasks(ctx context.Context, filters TaskFilters) ([]*task.Task, error) {
	query := "FOR t IN " + tasksCollection
	bindVars := map[string]any{}
	if len(filters.Status) > 0 {
		query += " FILTER t.status IN @statuses"
		bindVars["statuses"] = filters.Status
	}
	query += " SORT t.created_at DESC"
	if filters.Limit > 0 {
		query += " LIMIT @limit"
		bindVars["limit"] = filters.Limit
	}
	query += " RETURN t"

	cursor, err := a.db.Query(ctx, query, bindVars)
	if err != nil {
		return nil, domainerr.NewInternal(err)
	}
	defer cursor.Close()

	var out []*task.Task
	for {
		var t task.Task
		if _, err := cursor.ReadDocument(ctx, &t); driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return nil, domainerr.NewInternal(err)
		}
		out = append(out, &t)
	}
	return out, nil
}

func (a *Arango) UpdateTask(ctx context.Context, t *task.Task) error {
	if _, err := a.tasks.UpdateDocument(ctx, t.ID, t); err != nil {
		return wrapNotFound(err, "task", t.ID)
	}
	return nil
}

func (a *Arango) DeleteTask(ctx context.Context, id string) error {
	if _, err := a.tasks.RemoveDocument(ctx, id); err != nil {
		return wrapNotFound(err, "task", id)
	}
	return nil
}

// --- Pattern CRUD ---

func (a *Arango) CreatePattern(ctx context.Context, p *orchestrator.WorkflowPattern) error {
	if _, err := a.patterns.CreateDocument(ctx, withKey(p.ID, p)); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

func (a *Arango) GetPattern(ctx context.Context, id string) (*orchestrator.WorkflowPattern, error) {
	var out orchestrator.WorkflowPattern
	if _, err := a.patterns.ReadDocument(ctx, id, &out); err != nil {
		return nil, wrapNotFound(err, "pattern", id)
	}
	return &out, nil
}

func (a *Arango) ListPatterns(ctx context.Context, filters PatternFilters) ([]*orchestrator.WorkflowPattern, error) {
	query := "FOR p IN " + patternsCollection
	bindVars := map[string]any{}
	if filters.Status != "" {
		query += " FILTER p.status == @status"
		bindVars["status"] = filters.Status
	}
	query += " RETURN p"

	cursor, err := a.db.Query(ctx, query, bindVars)
	if err != nil {
		return nil, domainerr.NewInternal(err)
	}
	defer cursor.Close()

	var out []*orchestrator.WorkflowPattern
	for {
		var p orchestrator.WorkflowPattern
		if _, err := cursor.ReadDocument(ctx, &p); driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return nil, domainerr.NewInternal(err)
		}
		out = append(out, &p)
	}
	return out, nil
}

func (a *Arango) UpdatePattern(ctx context.Context, p *orchestrator.WorkflowPattern) error {
	if _, err := a.patterns.UpdateDocument(ctx, p.ID, p); err != nil {
		return wrapNotFound(err, "pattern", p.ID)
	}
	return nil
}

func (a *Arango) DeletePattern(ctx context.Context, id string, force bool) error {
	if _, err := a.GetPattern(ctx, id); err != nil {
		return err
	}

	running, err := a.ListWorkflowExecutions(ctx, id)
	if err != nil {
		return err
	}
	var active []*orchestrator.WorkflowExecution
	for _, we := range running {
		if !we.Status.IsTerminal() {
			active = append(active, we)
		}
	}
	if len(active) > 0 && !force {
		return domainerr.NewConflict(
			fmt.Sprintf("pattern %s has a running workflow execution", id),
			"retry with force=true to abort running workflows and delete anyway",
		)
	}

	now := time.Now().UTC()
	return a.withTx(ctx, driver.TransactionCollections{
		Exclusive: []string{patternsCollection, workflowExecCollection},
	}, func(txCtx context.Context) error {
		for _, we := range active {
			we.Status = orchestrator.StatusCancelled
			we.EndTime = &now
			if err := a.UpdateWorkflowExecution(txCtx, we); err != nil {
				return err
			}
		}

		if _, err := a.patterns.RemoveDocument(txCtx, id); err != nil {
			return wrapNotFound(err, "pattern", id)
		}
		return nil
	})
}

// --- execution.Store ---

func (a *Arango) CreateExecution(ctx context.Context, exec *execution.Execution) error {
	return a.withTx(ctx, driver.TransactionCollections{
		Exclusive: []string{executionsCollection, agentsCollection},
	}, func(txCtx context.Context) error {
		if _, err := a.executions.CreateDocument(txCtx, withKey(exec.ID, exec)); err != nil {
			return domainerr.NewInternal(err)
		}
		for _, id := range exec.AgentIDs {
			ag, err := a.GetAgent(txCtx, id)
			if err != nil {
				continue
			}
			ag.Status = agent.StatusExecuting
			_ = a.UpdateAgent(txCtx, ag)
		}
		return nil
	})
}

func (a *Arango) GetExecution(ctx context.Context, id string) (*execution.Execution, error) {
	var out execution.Execution
	if _, err := a.executions.ReadDocument(ctx, id, &out); err != nil {
		return nil, wrapNotFound(err, "execution", id)
	}
	return &out, nil
}

func (a *Arango) ListExecutions(ctx context.Context, filters execution.ExecutionFilters) ([]*execution.Execution, error) {
	query := "FOR e IN " + executionsCollection
	bindVars := map[string]any{}
	var conditions []string
	if filters.TaskID != "" {
		conditions = append(conditions, "e.task_id == @task_id")
		bindVars["task_id"] = filters.TaskID
	}
	if filters.AgentID != "" {
		conditions = append(conditions, "@agent_id IN e.agent_ids")
		bindVars["agent_id"] = filters.AgentID
	}
	if len(filters.Status) > 0 {
		conditions = append(conditions, "e.status IN @statuses")
		bindVars["statuses"] = filters.Status
	}
	query += buildFilter(conditions) + " RETURN e"

	cursor, err := a.db.Query(ctx, query, bindVars)
	if err != nil {
		return nil, domainerr.NewInternal(err)
	}
	defer cursor.Close()

	var out []*execution.Execution
	for {
		var e execution.Execution
		if _, err := cursor.ReadDocument(ctx, &e); driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return nil, domainerr.NewInternal(err)
		}
		out = append(out, &e)
	}
	return out, nil
}

func (a *Arango) AppendLog(ctx context.Context, id string, entry execution.LogEntry) error {
	exec, err := a.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	exec.Logs = append(exec.Logs, entry)
	if _, err := a.executions.UpdateDocument(ctx, id, exec); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

func (a *Arango) SetStatus(ctx context.Context, id string, status execution.Status, output map[string]any, errDetails *execution.ErrorDetails) error {
	exec, err := a.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	exec.Status = status
	if output != nil {
		exec.Output = output
	}
	exec.ErrorDetails = errDetails
	if status.IsTerminal() {
		now := time.Now().UTC()
		exec.EndTime = &now
		exec.DurationSeconds = now.Sub(exec.StartTime).Seconds()
	}
	if _, err := a.executions.UpdateDocument(ctx, id, exec); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

func (a *Arango) SavePausedSnapshot(ctx context.Context, id string, pausedAt time.Time) error {
	exec, err := a.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	exec.PausedAt = &pausedAt
	if _, err := a.executions.UpdateDocument(ctx, id, exec); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

func (a *Arango) SetAgentResponse(ctx context.Context, id string, resp *execution.AgentResponse) error {
	exec, err := a.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	exec.AgentResponse = resp
	if _, err := a.executions.UpdateDocument(ctx, id, exec); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

func (a *Arango) ReleaseAgents(ctx context.Context, agentIDs []string, now time.Time) error {
	return a.withTx(ctx, driver.TransactionCollections{
		Exclusive: []string{agentsCollection},
	}, func(txCtx context.Context) error {
		for _, id := range agentIDs {
			ag, err := a.GetAgent(txCtx, id)
			if err != nil {
				continue
			}
			ag.Status = agent.StatusIdle
			ag.LastActive = now
			if err := a.UpdateAgent(txCtx, ag); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *Arango) ListNonTerminalForAgent(ctx context.Context, agentID string) ([]*execution.Execution, error) {
	query := `
		FOR e IN ` + executionsCollection + `
		FILTER @agent_id IN e.agent_ids
		FILTER e.status NOT IN @terminal
		RETURN e
	`
	bindVars := map[string]any{
		"agent_id": agentID,
		"terminal": []execution.Status{
			execution.StatusCompleted, execution.StatusFailed, execution.StatusCancelled,
			execution.StatusAborted, execution.StatusTimeout,
		},
	}
	cursor, err := a.db.Query(ctx, query, bindVars)
	if err != nil {
		return nil, domainerr.NewInternal(err)
	}
	defer cursor.Close()

	var out []*execution.Execution
	for {
		var e execution.Execution
		if _, err := cursor.ReadDocument(ctx, &e); driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return nil, domainerr.NewInternal(err)
		}
		out = append(out, &e)
	}
	return out, nil
}

func (a *Arango) GetAgents(ctx context.Context, agentIDs []string) ([]*agent.Agent, error) {
	out := make([]*agent.Agent, 0, len(agentIDs))
	for _, id := range agentIDs {
		ag, err := a.GetAgent(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ag)
	}
	return out, nil
}

func (a *Arango) ReconcileStale(ctx context.Context) (execution.ReconcileReport, error) {
	report := execution.ReconcileReport{}

	err := a.withTx(ctx, driver.TransactionCollections{
		Exclusive: []string{executionsCollection, workflowExecCollection},
	}, func(txCtx context.Context) error {
		deleteQuery := `
			FOR e IN ` + executionsCollection + `
			FILTER e.task_id == "" OR LENGTH(e.agent_ids) == 0
			REMOVE e IN ` + executionsCollection + `
			RETURN OLD
		`
		n, err := a.runCountingQuery(txCtx, deleteQuery, nil)
		if err != nil {
			return err
		}
		report.DeletedCorrupt = n

		// Plain executions are never gated on age: a process restart means
		// no supervisor is left to finish them, so every starting/running
		// execution is cancelled unconditionally.
		now := time.Now().UTC()
		cancelQuery := `
			FOR e IN ` + executionsCollection + `
			FILTER e.status IN @nonTerminal
			UPDATE e WITH {
				status: @cancelled,
				end_time: @now,
				error_details: { kind: @kind, message: @message }
			} IN ` + executionsCollection + `
			RETURN NEW
		`
		n, err = a.runCountingQuery(txCtx, cancelQuery, map[string]any{
			"nonTerminal": []execution.Status{execution.StatusStarting, execution.StatusRunning},
			"cancelled":   execution.StatusCancelled,
			"kind":        execution.ErrorKindInternal,
			"message":     "system restart cleanup",
			"now":         now.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		report.CancelledStale = n

		cutoff := now.Add(-execution.StaleThreshold)
		abortWorkflowsQuery := `
			FOR w IN ` + workflowExecCollection + `
			FILTER w.status NOT IN @terminal
			FILTER w.start_time < @cutoff
			UPDATE w WITH { status: @cancelled, end_time: @now } IN ` + workflowExecCollection + `
			RETURN NEW
		`
		n, err = a.runCountingQuery(txCtx, abortWorkflowsQuery, map[string]any{
			"terminal":  []orchestrator.Status{orchestrator.StatusCompleted, orchestrator.StatusFailed, orchestrator.StatusCancelled},
			"cutoff":    cutoff.Format(time.RFC3339),
			"cancelled": orchestrator.StatusCancelled,
			"now":       now.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		report.WorkflowsAborted = n

		deleteWorkflowsQuery := `
			FOR w IN ` + workflowExecCollection + `
			FILTER w.status IN @terminal
			FILTER (w.end_time != null ? w.end_time : w.start_time) < @cutoff
			REMOVE w IN ` + workflowExecCollection + `
			RETURN OLD
		`
		n, err = a.runCountingQuery(txCtx, deleteWorkflowsQuery, map[string]any{
			"terminal": []orchestrator.Status{orchestrator.StatusCompleted, orchestrator.StatusFailed},
			"cutoff":   cutoff.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		report.WorkflowsDeleted = n
		return nil
	})
	if err != nil {
		return execution.ReconcileReport{}, err
	}
	return report, nil
}

// runCountingQuery runs an AQL query that returns one document per
// affected row and reports how many rows it touched.
func (a *Arango) runCountingQuery(ctx context.Context, query string, bindVars map[string]any) (int, error) {
	cursor, err := a.db.Query(ctx, query, bindVars)
	if err != nil {
		return 0, domainerr.NewInternal(err)
	}
	defer cursor.Close()
	count := 0
	for {
		var doc any
		if _, err := cursor.ReadDocument(ctx, &doc); driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return count, domainerr.NewInternal(err)
		}
		count++
	}
	return count, nil
}

// --- orchestrator.Store ---

func (a *Arango) CreateWorkflowExecution(ctx context.Context, we *orchestrator.WorkflowExecution) error {
	if _, err := a.workflows.CreateDocument(ctx, withKey(we.ID, we)); err != nil {
		return domainerr.NewInternal(err)
	}
	return nil
}

func (a *Arango) UpdateWorkflowExecution(ctx context.Context, we *orchestrator.WorkflowExecution) error {
	if _, err := a.workflows.UpdateDocument(ctx, we.ID, we); err != nil {
		return wrapNotFound(err, "workflow_execution", we.ID)
	}
	return nil
}

func (a *Arango) GetWorkflowExecution(ctx context.Context, id string) (*orchestrator.WorkflowExecution, error) {
	var out orchestrator.WorkflowExecution
	if _, err := a.workflows.ReadDocument(ctx, id, &out); err != nil {
		return nil, wrapNotFound(err, "workflow_execution", id)
	}
	return &out, nil
}

func (a *Arango) ListWorkflowExecutions(ctx context.Context, patternID string) ([]*orchestrator.WorkflowExecution, error) {
	query := "FOR w IN " + workflowExecCollection
	bindVars := map[string]any{}
	if patternID != "" {
		query += " FILTER w.pattern_id == @pattern_id"
		bindVars["pattern_id"] = patternID
	}
	query += " RETURN w"

	cursor, err := a.db.Query(ctx, query, bindVars)
	if err != nil {
		return nil, domainerr.NewInternal(err)
	}
	defer cursor.Close()

	var out []*orchestrator.WorkflowExecution
	for {
		var w orchestrator.WorkflowExecution
		if _, err := cursor.ReadDocument(ctx, &w); driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return nil, domainerr.NewInternal(err)
		}
		out = append(out, &w)
	}
	return out, nil
}

func (a *Arango) AppendCoordinationMessage(ctx context.Context, executionID string, msg orchestrator.CoordinationMessage) error {
	we, err := a.GetWorkflowExecution(ctx, executionID)
	if err != nil {
		return err
	}
	we.ExecutionLogs = append(we.ExecutionLogs, msg)
	return a.UpdateWorkflowExecution(ctx, we)
}

func buildFilter(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	out := " FILTER " + conditions[0]
	for _, c := range conditions[1:] {
		out += " AND " + c
	}
	return out
}
