package rules

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Field names the transaction attribute a condition reads
type Field string

const (
	FieldType          Field = "type"
	FieldDescription   Field = "description"
	FieldAmount        Field = "amount"
	FieldDate          Field = "date"
	FieldStatus        Field = "status"
	FieldPaymentPerson Field = "payments.person"
	FieldPaymentAmount Field = "payments.amount"
	FieldPaymentTags   Field = "payments.tags"

	personAlias Field = "person"
)

// Operator compares a resolved field with a condition's value
type Operator string

const (
	Equal       Operator = "equal"
	NotEqual    Operator = "notEqual"
	GreaterThan Operator = "greaterThan"
	LessThan    Operator = "lessThan"
	Contains    Operator = "contains"
	NotContains Operator = "notContains"
)

// Valid returns true for known operators
func (o Operator) Valid() bool {
	switch o {
	case Equal, NotEqual, GreaterThan, LessThan, Contains, NotContains:
		return true
	}
	return false
}

// negated operators succeed when no resolved value matches
func (o Operator) negated() bool {
	return o == NotEqual || o == NotContains
}

const dateLayout = "2006-01-02"

type fieldKind int

const (
	textKind fieldKind = iota + 1
	enumKind
	numberKind
	dateKind
	tagsKind
)

var fieldKinds = map[Field]fieldKind{
	FieldType:          enumKind,
	FieldDescription:   textKind,
	FieldAmount:        numberKind,
	FieldDate:          dateKind,
	FieldStatus:        enumKind,
	FieldPaymentPerson: textKind,
	FieldPaymentAmount: numberKind,
	FieldPaymentTags:   tagsKind,
}

var (
	equalityOperators   = []Operator{Equal, NotEqual, Contains, NotContains}
	comparisonOperators = []Operator{Equal, NotEqual, GreaterThan, LessThan}

	kindOperators = map[fieldKind][]Operator{
		textKind:   equalityOperators,
		enumKind:   equalityOperators,
		numberKind: comparisonOperators,
		dateKind:   comparisonOperators,
		tagsKind:   equalityOperators,
	}
)

func (k fieldKind) allows(op Operator) bool {
	for _, allowed := range kindOperators[k] {
		if op == allowed {
			return true
		}
	}
	return false
}

func (f Field) canonical() Field {
	f = Field(strings.TrimSpace(string(f)))
	if f == personAlias {
		return FieldPaymentPerson
	}
	return f
}

// Condition is a single comparison against a transaction field
type Condition struct {
	Field    Field
	Operator Operator
	Value    string

	matcher matcher
}

// NewCondition creates a condition, failing if the field, operator, and value do not fit together
func NewCondition(field Field, operator Operator, value string) (Condition, error) {
	c := Condition{Field: field, Operator: operator, Value: value}
	var err error
	c.matcher, err = c.compile()
	return c, err
}

// UnmarshalJSON decodes a condition whose value may be a JSON string or number.
// Conditions that do not compile are kept as-is and reported by Rule.Validate.
func (c *Condition) UnmarshalJSON(b []byte) error {
	var raw struct {
		Field    Field
		Operator Operator
		Value    json.RawMessage
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	value, err := scalarString(raw.Value)
	if err != nil {
		return errors.Wrap(err, "Condition value")
	}
	*c = Condition{Field: raw.Field, Operator: raw.Operator, Value: value}
	c.matcher, _ = c.compile()
	return nil
}

// scalarString returns the string form of a JSON string, number, or boolean
func scalarString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return "", err
	}
	switch value := value.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case json.Number:
		return value.String(), nil
	case bool:
		return strconv.FormatBool(value), nil
	default:
		return "", errors.Errorf("Value must be a string or number, found: %s", string(raw))
	}
}

func (c Condition) compile() (matcher, error) {
	field := c.Field.canonical()
	kind, ok := fieldKinds[field]
	if !ok {
		return nil, errors.Errorf("Unknown field: %q", c.Field)
	}
	if !c.Operator.Valid() {
		return nil, errors.Errorf("Unknown operator: %q", c.Operator)
	}
	if !kind.allows(c.Operator) {
		return nil, errors.Errorf("Operator %q is not supported for field %q", c.Operator, c.Field)
	}

	lower := cases.Lower(language.Und)
	switch kind {
	case enumKind:
		value := lower.String(strings.TrimSpace(c.Value))
		if (c.Operator == Equal || c.Operator == NotEqual) && !enumMember(field, value) {
			return nil, errors.Errorf("Invalid value for field %q: %q", c.Field, c.Value)
		}
		return textMatcher{field: field, op: c.Operator, value: value}, nil
	case numberKind:
		value, err := decimal.NewFromString(strings.TrimSpace(c.Value))
		if err != nil {
			return nil, errors.Errorf("Value for field %q must be a number: %q", c.Field, c.Value)
		}
		return numberMatcher{field: field, op: c.Operator, value: value}, nil
	case dateKind:
		value, dateOnly, err := parseDate(c.Value)
		if err != nil {
			return nil, errors.Errorf("Value for field %q must be a date formatted as %s or RFC 3339: %q", c.Field, dateLayout, c.Value)
		}
		return dateMatcher{op: c.Operator, value: value, dateOnly: dateOnly}, nil
	case tagsKind:
		tag, err := ledger.ParseTag(c.Value)
		if err != nil {
			return nil, err
		}
		return tagsMatcher{op: c.Operator, value: lower.String(tag.String())}, nil
	default:
		return textMatcher{field: field, op: c.Operator, value: lower.String(c.Value)}, nil
	}
}

func enumMember(field Field, value string) bool {
	switch field {
	case FieldType:
		return ledger.TransactionType(value).Valid()
	case FieldStatus:
		return ledger.Status(value).Valid()
	}
	return false
}

func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	return t, false, err
}

// Evaluate returns true if txn satisfies cond. A condition that does not compile never matches.
func Evaluate(txn ledger.Transaction, cond Condition) bool {
	m := cond.matcher
	if m == nil {
		var err error
		m, err = cond.compile()
		if err != nil {
			return false
		}
	}
	return m.match(txn)
}

// Evaluation is the outcome of matching a rule's conditions against one transaction
type Evaluation struct {
	Matched    bool
	Conditions []bool
}

// Match evaluates every condition of rule against txn, then combines them with the rule's logical operator
func Match(txn ledger.Transaction, rule Rule) Evaluation {
	results := make([]bool, len(rule.Conditions))
	for i, cond := range rule.Conditions {
		results[i] = Evaluate(txn, cond)
	}
	return Evaluation{
		Matched:    rule.LogicalOperator.combine(results),
		Conditions: results,
	}
}

// matcher is a compiled condition. Implementations are closed over the field kinds above
type matcher interface {
	match(txn ledger.Transaction) bool
}

type textMatcher struct {
	field Field
	op    Operator
	value string
}

func (m textMatcher) match(txn ledger.Transaction) bool {
	var values []string
	list := false
	switch m.field {
	case FieldType:
		values = []string{string(txn.Type)}
	case FieldStatus:
		values = []string{string(txn.Status)}
	case FieldDescription:
		values = []string{txn.Description}
	case FieldPaymentPerson:
		list = true
		for _, payment := range txn.Payments {
			values = append(values, payment.Person)
		}
	}

	lower := cases.Lower(language.Und)
	found := anyOf(values, func(v string) bool {
		v = lower.String(v)
		if (m.op == Contains || m.op == NotContains) && !list {
			return strings.Contains(v, m.value)
		}
		return v == m.value
	})
	return found != m.op.negated()
}

type numberMatcher struct {
	field Field
	op    Operator
	value decimal.Decimal
}

func (m numberMatcher) match(txn ledger.Transaction) bool {
	var values []decimal.Decimal
	switch m.field {
	case FieldAmount:
		values = []decimal.Decimal{txn.Amount}
	case FieldPaymentAmount:
		for _, payment := range txn.Payments {
			values = append(values, payment.Amount)
		}
	}
	found := anyOf(values, func(v decimal.Decimal) bool {
		return compareOp(m.op, v.Cmp(m.value))
	})
	return found != m.op.negated()
}

type dateMatcher struct {
	op       Operator
	value    time.Time
	dateOnly bool
}

func (m dateMatcher) match(txn ledger.Transaction) bool {
	var cmp int
	if m.dateOnly {
		cmp = strings.Compare(txn.Date.UTC().Format(dateLayout), m.value.Format(dateLayout))
	} else {
		switch {
		case txn.Date.Before(m.value):
			cmp = -1
		case txn.Date.After(m.value):
			cmp = 1
		}
	}
	return compareOp(m.op, cmp) != m.op.negated()
}

type tagsMatcher struct {
	op    Operator
	value string
}

func (m tagsMatcher) match(txn ledger.Transaction) bool {
	var values []string
	for _, payment := range txn.Payments {
		values = append(values, payment.Tags.Flatten()...)
	}
	lower := cases.Lower(language.Und)
	found := anyOf(values, func(v string) bool {
		return lower.String(v) == m.value
	})
	return found != m.op.negated()
}

// compareOp returns true if cmp, the result of comparing a field to a value, satisfies op's positive form
func compareOp(op Operator, cmp int) bool {
	switch op {
	case GreaterThan:
		return cmp > 0
	case LessThan:
		return cmp < 0
	default:
		return cmp == 0
	}
}

func anyOf[T any](values []T, pred func(T) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}
