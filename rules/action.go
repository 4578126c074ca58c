package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ActionType selects the change an action makes to a matched transaction
type ActionType string

const (
	AddTag    ActionType = "addTag"
	RemoveTag ActionType = "removeTag"
	SetStatus ActionType = "setStatus"
	SetAmount ActionType = "setAmount"
)

// StatusCategory is the tag category written by SetStatus actions.
// SetStatus tags each payment and leaves Transaction.Status alone.
const StatusCategory = "Status"

// Action is a single transformation applied to a matched transaction
type Action struct {
	Type  ActionType
	Value string

	effect effect
}

// NewAction creates an action, failing if the value does not fit the action type
func NewAction(actionType ActionType, value string) (Action, error) {
	a := Action{Type: actionType, Value: value}
	var err error
	a.effect, err = a.compile()
	return a, err
}

// UnmarshalJSON decodes an action whose value may be a JSON string or number.
// Actions that do not compile are kept as-is and reported by Rule.Validate.
func (a *Action) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type  ActionType
		Value json.RawMessage
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	value, err := scalarString(raw.Value)
	if err != nil {
		return errors.Wrap(err, "Action value")
	}
	*a = Action{Type: raw.Type, Value: value}
	a.effect, _ = a.compile()
	return nil
}

func (a Action) compile() (effect, error) {
	switch a.Type {
	case AddTag, RemoveTag:
		tag, err := ledger.ParseTag(a.Value)
		if err != nil {
			return nil, err
		}
		return tagEffect{tag: tag, remove: a.Type == RemoveTag, label: "tag"}, nil
	case SetStatus:
		tag, err := ledger.NewTag(StatusCategory, a.Value)
		if err != nil {
			return nil, errors.New("Status must not be empty")
		}
		return statusEffect{status: tag.Value}, nil
	case SetAmount:
		amount, err := decimal.NewFromString(strings.TrimSpace(a.Value))
		if err != nil {
			return nil, errors.Errorf("Amount must be a number: %q", a.Value)
		}
		return amountEffect{amount: amount}, nil
	default:
		return nil, errors.Errorf("Unknown action type: %q", a.Type)
	}
}

func (a Action) compiled() (effect, error) {
	if a.effect != nil {
		return a.effect, nil
	}
	return a.compile()
}

// Apply returns a copy of txn with action applied. txn is never modified.
func Apply(txn ledger.Transaction, action Action) (ledger.Transaction, error) {
	e, err := action.compiled()
	if err != nil {
		return txn, err
	}
	result := txn.Clone()
	e.apply(&result)
	return result, nil
}

// ApplyAll applies actions in order, each to the result of the previous one
func ApplyAll(txn ledger.Transaction, actions []Action) (ledger.Transaction, error) {
	result, _, err := Preview(txn, actions)
	return result, err
}

// Preview is ApplyAll, plus a description of each action's change
func Preview(txn ledger.Transaction, actions []Action) (ledger.Transaction, []string, error) {
	changes := make([]string, 0, len(actions))
	for i, action := range actions {
		next, err := Apply(txn, action)
		if err != nil {
			return txn, changes, errors.Wrapf(err, "Action #%d", i+1)
		}
		changes = append(changes, Describe(txn, next, action))
		txn = next
	}
	return txn, changes, nil
}

// Describe returns a human readable description of the change action made from before to after
func Describe(before, after ledger.Transaction, action Action) string {
	e, err := action.compiled()
	if err != nil {
		return "invalid action: " + err.Error()
	}
	return e.describe(before, after)
}

// effect is a compiled action
type effect interface {
	apply(txn *ledger.Transaction)
	describe(before, after ledger.Transaction) string
}

type tagEffect struct {
	tag    ledger.Tag
	remove bool
	label  string
}

func (e tagEffect) apply(txn *ledger.Transaction) {
	for i := range txn.Payments {
		if e.remove {
			txn.Payments[i].Tags = txn.Payments[i].Tags.Remove(e.tag.Category, e.tag.Value)
		} else {
			txn.Payments[i].Tags = txn.Payments[i].Tags.Add(e.tag.Category, e.tag.Value)
		}
	}
}

func (e tagEffect) describe(before, after ledger.Transaction) string {
	changed := 0
	for i := range before.Payments {
		if i < len(after.Payments) && before.Payments[i].Tags.Has(e.tag.Category, e.tag.Value) != after.Payments[i].Tags.Has(e.tag.Category, e.tag.Value) {
			changed++
		}
	}
	switch {
	case len(before.Payments) == 0:
		return fmt.Sprintf("no change: no payments to %s", e.verb())
	case changed == 0 && e.remove:
		return fmt.Sprintf("no change: %s %q not on any payment", e.label, e.tag)
	case changed == 0:
		return fmt.Sprintf("no change: %s %q already on every payment", e.label, e.tag)
	case e.remove:
		return fmt.Sprintf("remove %s %q from %s", e.label, e.tag, payments(changed))
	default:
		return fmt.Sprintf("add %s %q to %s", e.label, e.tag, payments(changed))
	}
}

func (e tagEffect) verb() string {
	if e.remove {
		return "untag"
	}
	return "tag"
}

func payments(n int) string {
	if n == 1 {
		return "1 payment"
	}
	return fmt.Sprintf("%d payments", n)
}

// statusEffect replaces every payment's Status tag values with a single status
type statusEffect struct {
	status string
}

func (e statusEffect) apply(txn *ledger.Transaction) {
	for i := range txn.Payments {
		if txn.Payments[i].Tags == nil {
			txn.Payments[i].Tags = make(ledger.Tags)
		}
		txn.Payments[i].Tags[StatusCategory] = []string{e.status}
	}
}

func (e statusEffect) isSet(tags ledger.Tags) bool {
	values := tags[StatusCategory]
	return len(values) == 1 && values[0] == e.status
}

func (e statusEffect) describe(before, after ledger.Transaction) string {
	if len(before.Payments) == 0 {
		return "no change: no payments to tag"
	}
	changed := 0
	previous := make(map[string]bool)
	for i := range before.Payments {
		if e.isSet(before.Payments[i].Tags) || i >= len(after.Payments) || !e.isSet(after.Payments[i].Tags) {
			continue
		}
		changed++
		for _, value := range before.Payments[i].Tags[StatusCategory] {
			previous[value] = true
		}
	}
	if changed == 0 {
		return fmt.Sprintf("no change: status tag %q already on every payment", ledger.Tag{Category: StatusCategory, Value: e.status})
	}
	was := "none"
	if len(previous) > 0 {
		values := make([]string, 0, len(previous))
		for value := range previous {
			values = append(values, value)
		}
		sort.Strings(values)
		was = strings.Join(values, ", ")
	}
	return fmt.Sprintf("set status tag on %s: %s -> %s", payments(changed), was, e.status)
}

type amountEffect struct {
	amount decimal.Decimal
}

func (e amountEffect) apply(txn *ledger.Transaction) {
	txn.Amount = e.amount
}

func (e amountEffect) describe(before, after ledger.Transaction) string {
	if before.Amount.Equal(after.Amount) {
		return fmt.Sprintf("no change: amount already %s", after.Amount)
	}
	return fmt.Sprintf("set amount %s -> %s", before.Amount, after.Amount)
}
