package main

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"time"

	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/alissonfar/newApp-sub001/rules"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/rand"
)

// Generator deterministically generates transactions for an owner
type Generator struct {
	OwnerID string
	People  []string
	seed    uint64
}

func (g *Generator) getSeed() uint64 {
	if g.seed == 0 {
		g.seed = seedStringToInt(g.OwnerID)
	}
	return g.seed
}

func milliseconds(millis uint64) time.Duration {
	return time.Duration(int(millis) * int(time.Millisecond))
}

func seedStringToInt(seed string) uint64 {
	buf := bytes.NewBufferString(seed)
	var reducedVal uint64
	for val, err := binary.ReadUvarint(buf); err == nil; val, err = binary.ReadUvarint(buf) {
		reducedVal = (reducedVal ^ val) * val
	}
	return reducedVal
}

func truncateToYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
}

func (g *Generator) seedFromYear(t time.Time) uint64 {
	return g.getSeed() * uint64(t.Year())
}

// Transactions returns the owner's transactions dated in [start, end). The same owner and range always produce the same transactions.
func (g *Generator) Transactions(start, end time.Time) []ledger.Transaction {
	start = start.UTC()
	end = end.UTC()
	var rng rand.PCGSource
	date := truncateToYear(start)
	year := date.Year()
	seed := g.seedFromYear(date)
	rng.Seed(seed)

	var txns []ledger.Transaction
	for date.Before(end) {
		// 28 bits of milliseconds is at most about 3 days between transactions
		date = date.Add(milliseconds(rng.Uint64() >> 36))
		if date.Year() != year {
			// re-seed for each year, so a range starting mid-year matches the same days of a longer range
			year = date.Year()
			seed = g.seedFromYear(date)
			date = truncateToYear(date)
			rng.Seed(seed)
			continue
		}

		if !date.Before(start) && date.Before(end) {
			txnSeed := seed ^ uint64(date.UnixNano())
			txns = append(txns, g.newRandTransaction(date, txnSeed))
		}
	}
	return txns
}

func (g *Generator) newRandTransaction(date time.Time, seed uint64) ledger.Transaction {
	var rng rand.PCGSource
	rng.Seed(seed)
	random := rand.New(&rng)
	id := "demo-" + strconv.FormatUint(random.Uint64(), 16)
	amount := decimal.NewFromFloat(random.Float64() * float64(random.Intn(300))).Round(2)
	payee := payeeChoices[random.Intn(len(payeeChoices))]

	txnType := ledger.Expense
	if random.Intn(5) == 0 {
		txnType = ledger.Receivable
	}

	people := g.People
	if len(people) == 0 {
		people = []string{g.OwnerID}
	}
	payer := people[random.Intn(len(people))]
	var payments []ledger.Payment
	if len(people) > 1 && random.Intn(3) == 0 {
		// split with someone else
		other := people[(indexOf(people, payer)+1+random.Intn(len(people)-1))%len(people)]
		half := amount.DivRound(decimal.NewFromInt(2), 2)
		payments = []ledger.Payment{
			{Person: payer, Amount: half},
			{Person: other, Amount: amount.Sub(half)},
		}
	} else {
		payments = []ledger.Payment{{Person: payer, Amount: amount}}
	}
	if category, ok := payeeCategories[payee]; ok {
		for i := range payments {
			payments[i].Tags = payments[i].Tags.Add("Category", category)
		}
	}

	return ledger.Transaction{
		ID:          id,
		OwnerID:     g.OwnerID,
		Type:        txnType,
		Description: payee,
		Amount:      amount,
		Date:        date,
		Status:      ledger.Active,
		Payments:    payments,
	}
}

func indexOf(values []string, value string) int {
	for i := range values {
		if values[i] == value {
			return i
		}
	}
	return -1
}

type conditionSpec struct {
	field    rules.Field
	operator rules.Operator
	value    string
}

type actionSpec struct {
	actionType rules.ActionType
	value      string
}

type ruleSpec struct {
	name       string
	operator   rules.LogicalOperator
	conditions []conditionSpec
	actions    []actionSpec
}

var demoRuleSpecs = []ruleSpec{
	{
		name:       "High priority",
		operator:   rules.And,
		conditions: []conditionSpec{{rules.FieldAmount, rules.GreaterThan, "100"}},
		actions:    []actionSpec{{rules.AddTag, "Priority: High"}},
	},
	{
		name:     "Eating out",
		operator: rules.Or,
		conditions: []conditionSpec{
			{rules.FieldDescription, rules.Contains, "grill"},
			{rules.FieldDescription, rules.Contains, "burger"},
			{rules.FieldDescription, rules.Contains, "deli"},
		},
		actions: []actionSpec{
			{rules.AddTag, "Category: Eating Out"},
			{rules.RemoveTag, "Category: Food"},
		},
	},
	{
		name:     "Settle receivables",
		operator: rules.And,
		conditions: []conditionSpec{
			{rules.FieldType, rules.Equal, string(ledger.Receivable)},
			{rules.FieldPaymentTags, rules.NotContains, "Status: settled"},
		},
		actions: []actionSpec{{rules.SetStatus, "settled"}},
	},
}

// demoRules returns a few rules exercising each kind of condition and action
func demoRules(ownerID string) ([]rules.Rule, error) {
	var demo []rules.Rule
	for _, def := range demoRuleSpecs {
		rule := rules.Rule{
			OwnerID:         ownerID,
			Name:            def.name,
			Active:          true,
			LogicalOperator: def.operator,
		}
		for _, c := range def.conditions {
			condition, err := rules.NewCondition(c.field, c.operator, c.value)
			if err != nil {
				return nil, err
			}
			rule.Conditions = append(rule.Conditions, condition)
		}
		for _, a := range def.actions {
			action, err := rules.NewAction(a.actionType, a.value)
			if err != nil {
				return nil, err
			}
			rule.Actions = append(rule.Actions, action)
		}
		demo = append(demo, rule)
	}
	return demo, nil
}

var (
	payeeChoices = []string{
		"Frond n Me",
		"Home Despot",
		"Burger Palace",
		"The Flying Yodel",
		"Screech Sound Systems",
		"Lightship Travel",
		"Half Life Energy",
		"Snowball Cleaners",
		"Flux Timepieces",
		"Dynaworks Fireworks",
		"Pipe Dreams Industries",
		"Primary Color Inc",
		"Yesterday's News",
		"Luna Tick's Bar and Grill",
		"Danger Zones",
		"Roaring Spoon",
		"Lightning Up Counseling",
		"Green Grape Grocer",
		"Hamstrung Deli",
	}

	payeeCategories = map[string]string{
		"Burger Palace":             "Food",
		"Luna Tick's Bar and Grill": "Food",
		"Roaring Spoon":             "Food",
		"Green Grape Grocer":        "Food",
		"Hamstrung Deli":            "Food",
		"Home Despot":               "Home",
		"Half Life Energy":          "Utilities",
		"Lightship Travel":          "Travel",
	}
)
