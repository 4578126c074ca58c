package rules

import (
	"fmt"
	"strings"
	"time"

	sErrors "github.com/alissonfar/newApp-sub001/errors"
	"github.com/pkg/errors"
)

// LogicalOperator combines a rule's condition results
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// Valid returns true for known logical operators
func (l LogicalOperator) Valid() bool {
	return l == And || l == Or
}

func (l LogicalOperator) combine(results []bool) bool {
	switch l {
	case And:
		if len(results) == 0 {
			return false
		}
		for _, result := range results {
			if !result {
				return false
			}
		}
		return true
	case Or:
		return anyOf(results, func(result bool) bool { return result })
	default:
		return false
	}
}

// Frequency is how often an automatic execution should run
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Valid returns true for known frequencies
func (f Frequency) Valid() bool {
	return f == Daily || f == Weekly || f == Monthly
}

// AutoExec holds a rule's automatic execution settings. Nothing runs rules automatically yet, these are only stored.
type AutoExec struct {
	Active    bool
	Frequency Frequency
}

// Validate requires a known frequency when active
func (a AutoExec) Validate() error {
	if !a.Active && a.Frequency == "" {
		return nil
	}
	if !a.Frequency.Valid() {
		return errors.Errorf("Invalid automatic execution frequency: %q", a.Frequency)
	}
	return nil
}

// Rule selects transactions with Conditions and changes them with Actions
type Rule struct {
	ID              string
	OwnerID         string
	Name            string
	Active          bool
	Conditions      []Condition
	LogicalOperator LogicalOperator
	Actions         []Action
	LastExecution   *Execution `json:",omitempty"`
	AutoExec        *AutoExec  `json:",omitempty"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the rule and compiles its conditions and actions.
// Every problem found is reported in a single InvalidRuleError.
// An empty logical operator defaults to AND.
func (r *Rule) Validate() error {
	var errs sErrors.Errors
	errs.ErrIf(strings.TrimSpace(r.Name) == "", "Rule name must not be empty")
	errs.ErrIf(r.OwnerID == "", "Rule owner must not be empty")
	if r.LogicalOperator == "" {
		r.LogicalOperator = And
	}
	errs.ErrIf(!r.LogicalOperator.Valid(), "Invalid logical operator: %q", r.LogicalOperator)

	errs.ErrIf(len(r.Conditions) == 0, "Rule must have at least one condition")
	for i := range r.Conditions {
		m, err := r.Conditions[i].compile()
		r.Conditions[i].matcher = m
		errs.AddErr(sErrors.Prefixf(err, "Condition #%d", i+1))
	}

	errs.ErrIf(len(r.Actions) == 0, "Rule must have at least one action")
	for i := range r.Actions {
		e, err := r.Actions[i].compile()
		r.Actions[i].effect = e
		errs.AddErr(sErrors.Prefixf(err, "Action #%d", i+1))
	}

	if r.AutoExec != nil {
		errs.AddErr(r.AutoExec.Validate())
	}
	if len(errs) > 0 {
		return InvalidRuleError{Problems: errs}
	}
	return nil
}

// Clone returns a copy of r sharing no slices or execution snapshots with the original
func (r Rule) Clone() Rule {
	clone := r
	clone.Conditions = append([]Condition(nil), r.Conditions...)
	clone.Actions = append([]Action(nil), r.Actions...)
	if r.LastExecution != nil {
		execution := r.LastExecution.Clone()
		clone.LastExecution = &execution
	}
	if r.AutoExec != nil {
		autoExec := *r.AutoExec
		clone.AutoExec = &autoExec
	}
	return clone
}

func (r Rule) String() string {
	var buf strings.Builder
	buf.WriteString(r.Name)
	buf.WriteString(": ")
	for i, cond := range r.Conditions {
		if i != 0 {
			buf.WriteString(fmt.Sprintf(" %s ", r.LogicalOperator))
		}
		buf.WriteString(fmt.Sprintf("%s %s %q", cond.Field, cond.Operator, cond.Value))
	}
	buf.WriteString(" => ")
	for i, action := range r.Actions {
		if i != 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(fmt.Sprintf("%s %q", action.Type, action.Value))
	}
	return buf.String()
}
