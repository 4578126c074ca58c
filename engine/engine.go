package engine

import (
	"context"
	"time"

	sErrors "github.com/alissonfar/newApp-sub001/errors"
	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/alissonfar/newApp-sub001/rules"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Engine previews, executes, and undoes rules against their owner's transactions
type Engine struct {
	txns   TransactionStore
	rules  RuleStore
	tx     Transactor
	logger *zap.Logger

	locks *keyedMutex
	stats counters

	now   func() time.Time
	newID func() string
}

type counters struct {
	simulations *atomic.Int64
	executions  *atomic.Int64
	undos       *atomic.Int64
	failures    *atomic.Int64
	affected    *atomic.Int64
	reverted    *atomic.Int64
}

// Stats counts engine operations since start
type Stats struct {
	Simulations          int64
	Executions           int64
	Undos                int64
	Failures             int64
	AffectedTransactions int64
	RevertedTransactions int64
}

// New creates an Engine. Execute and Undo run inside tx, use NoTransaction if the stores have no transactional scope.
func New(txns TransactionStore, ruleStore RuleStore, tx Transactor, logger *zap.Logger) *Engine {
	if tx == nil {
		tx = NoTransaction
	}
	return &Engine{
		txns:   txns,
		rules:  ruleStore,
		tx:     tx,
		logger: logger,
		locks:  newKeyedMutex(),
		stats: counters{
			simulations: atomic.NewInt64(0),
			executions:  atomic.NewInt64(0),
			undos:       atomic.NewInt64(0),
			failures:    atomic.NewInt64(0),
			affected:    atomic.NewInt64(0),
			reverted:    atomic.NewInt64(0),
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Match is a transaction matched by a simulation, with its would-be result
type Match struct {
	ID      string
	Before  ledger.Transaction
	After   ledger.Transaction
	Changes []string
}

// SimulationResult lists the matches of a rule, ordered by transaction date then ID
type SimulationResult struct {
	RuleID       string
	MatchedCount int
	Matches      []Match
}

// ExecutionResult summarizes a committed rule execution
type ExecutionResult struct {
	RuleID        string
	ExecutionID   string
	AffectedCount int
}

// UndoResult summarizes an undone rule execution
type UndoResult struct {
	RuleID        string
	ExecutionID   string
	RevertedCount int
}

// Stats returns the current operation counts
func (e *Engine) Stats() Stats {
	return Stats{
		Simulations:          e.stats.simulations.Load(),
		Executions:           e.stats.executions.Load(),
		Undos:                e.stats.undos.Load(),
		Failures:             e.stats.failures.Load(),
		AffectedTransactions: e.stats.affected.Load(),
		RevertedTransactions: e.stats.reverted.Load(),
	}
}

func (e *Engine) loadRule(ctx context.Context, ruleID string) (rules.Rule, error) {
	rule, found, err := e.rules.Get(ctx, ruleID)
	if err != nil {
		return rules.Rule{}, errors.Wrapf(err, "Failed to load rule %q", ruleID)
	}
	if !found {
		return rules.Rule{}, errors.Wrap(rules.ErrRuleNotFound, ruleID)
	}
	if err := rule.Validate(); err != nil {
		return rules.Rule{}, err
	}
	return rule, nil
}

func (e *Engine) ownerTransactions(ctx context.Context, rule rules.Rule) ([]ledger.Transaction, error) {
	txns, err := e.txns.FindAllForOwner(ctx, rule.OwnerID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load transactions")
	}
	ledger.Sort(txns)
	return txns, nil
}

// Simulate reports which transactions the rule would change and how, without writing anything
func (e *Engine) Simulate(ctx context.Context, ruleID string) (SimulationResult, error) {
	e.stats.simulations.Inc()
	rule, err := e.loadRule(ctx, ruleID)
	if err != nil {
		return SimulationResult{}, err
	}
	txns, err := e.ownerTransactions(ctx, rule)
	if err != nil {
		return SimulationResult{}, err
	}

	result := SimulationResult{RuleID: rule.ID, Matches: []Match{}}
	for _, txn := range txns {
		if err := ctx.Err(); err != nil {
			return SimulationResult{}, err
		}
		if !rules.Match(txn, rule).Matched {
			continue
		}
		after, changes, err := rules.Preview(txn, rule.Actions)
		if err != nil {
			return SimulationResult{}, err
		}
		result.Matches = append(result.Matches, Match{
			ID:      txn.ID,
			Before:  txn,
			After:   after,
			Changes: changes,
		})
	}
	result.MatchedCount = len(result.Matches)
	return result, nil
}

// Execute applies the rule's actions to every matching transaction and records the previous states on the rule.
// Any prior execution record is replaced. If a write fails, nothing is changed.
func (e *Engine) Execute(ctx context.Context, ruleID string) (ExecutionResult, error) {
	unlock := e.locks.Lock(ruleID)
	defer unlock()

	var result ExecutionResult
	err := e.tx.Update(ctx, func(ctx context.Context) error {
		rule, err := e.loadRule(ctx, ruleID)
		if err != nil {
			return err
		}
		txns, err := e.ownerTransactions(ctx, rule)
		if err != nil {
			return err
		}

		execution := rules.Execution{
			ID:        e.newID(),
			RuleID:    rule.ID,
			Timestamp: e.now().UTC(),
			Entries:   []rules.Snapshot{},
		}
		for _, txn := range txns {
			if err := ctx.Err(); err != nil {
				return e.restore(ctx, err, execution.Entries)
			}
			if !rules.Match(txn, rule).Matched {
				continue
			}
			before := txn.Clone()
			after, err := rules.ApplyAll(txn, rule.Actions)
			if err != nil {
				return e.restore(ctx, err, execution.Entries)
			}
			if err := e.txns.Replace(ctx, txn.ID, after); err != nil {
				return e.restore(ctx, &WriteFailure{TransactionID: txn.ID, Err: err}, execution.Entries)
			}
			execution.Entries = append(execution.Entries, rules.Snapshot{TransactionID: txn.ID, Before: before})
		}

		rule.LastExecution = &execution
		if err := e.rules.Save(ctx, rule); err != nil {
			return e.restore(ctx, errors.Wrap(err, "Failed to record rule execution"), execution.Entries)
		}
		result = ExecutionResult{
			RuleID:        rule.ID,
			ExecutionID:   execution.ID,
			AffectedCount: len(execution.Entries),
		}
		return nil
	})
	if err != nil {
		e.stats.failures.Inc()
		e.logger.Warn("Rule execution failed", zap.String("rule", ruleID), zap.Error(err))
		return ExecutionResult{}, err
	}

	e.stats.executions.Inc()
	e.stats.affected.Add(int64(result.AffectedCount))
	e.logger.Info("Rule executed",
		zap.String("rule", result.RuleID),
		zap.String("execution", result.ExecutionID),
		zap.Int("affected", result.AffectedCount),
	)
	return result, nil
}

// Undo replaces every transaction changed by the rule's last execution with its recorded previous state,
// then clears the execution record. Fails with rules.ErrNoExecutionToUndo if there is nothing to undo.
func (e *Engine) Undo(ctx context.Context, ruleID string) (UndoResult, error) {
	unlock := e.locks.Lock(ruleID)
	defer unlock()

	var result UndoResult
	err := e.tx.Update(ctx, func(ctx context.Context) error {
		rule, err := e.loadRule(ctx, ruleID)
		if err != nil {
			return err
		}
		if rule.LastExecution == nil {
			return errors.Wrap(rules.ErrNoExecutionToUndo, rule.ID)
		}
		execution := rule.LastExecution

		// current states of reverted transactions, to put back if the undo fails part way
		var reverted []rules.Snapshot
		for _, entry := range execution.Entries {
			if err := ctx.Err(); err != nil {
				return e.restore(ctx, err, reverted)
			}
			current, found, err := e.txns.Get(ctx, entry.TransactionID)
			if err != nil {
				return e.restore(ctx, errors.Wrapf(err, "Failed to load transaction %q", entry.TransactionID), reverted)
			}
			if err := e.txns.Replace(ctx, entry.TransactionID, entry.Before.Clone()); err != nil {
				return e.restore(ctx, &WriteFailure{TransactionID: entry.TransactionID, Err: err}, reverted)
			}
			if found {
				reverted = append(reverted, rules.Snapshot{TransactionID: entry.TransactionID, Before: current})
			}
		}

		rule.LastExecution = nil
		if err := e.rules.Save(ctx, rule); err != nil {
			return e.restore(ctx, errors.Wrap(err, "Failed to clear rule execution"), reverted)
		}
		result = UndoResult{
			RuleID:        rule.ID,
			ExecutionID:   execution.ID,
			RevertedCount: len(execution.Entries),
		}
		return nil
	})
	if err != nil {
		e.stats.failures.Inc()
		e.logger.Warn("Rule undo failed", zap.String("rule", ruleID), zap.Error(err))
		return UndoResult{}, err
	}

	e.stats.undos.Inc()
	e.stats.reverted.Add(int64(result.RevertedCount))
	e.logger.Info("Rule execution undone",
		zap.String("rule", result.RuleID),
		zap.String("execution", result.ExecutionID),
		zap.Int("reverted", result.RevertedCount),
	)
	return result, nil
}

// restore writes back snapshots in reverse order after cause interrupted a run.
// Returns cause, combined with any restore failures.
func (e *Engine) restore(ctx context.Context, cause error, snapshots []rules.Snapshot) error {
	ctx = context.WithoutCancel(ctx)
	errs := sErrors.Errors{cause}
	for i := len(snapshots) - 1; i >= 0; i-- {
		snapshot := snapshots[i]
		if err := e.txns.Replace(ctx, snapshot.TransactionID, snapshot.Before); err != nil {
			errs.AddErr(errors.Wrapf(err, "Failed to restore transaction %q", snapshot.TransactionID))
		}
	}
	if len(errs) > 1 {
		e.logger.Error("Failed to restore transactions", zap.Error(errs))
	}
	return errs.ErrOrNil()
}
