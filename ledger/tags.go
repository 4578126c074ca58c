package ledger

import (
	"encoding/json"
	"sort"
	"strings"

	sErrors "github.com/alissonfar/newApp-sub001/errors"
	"github.com/pkg/errors"
)

const tagSeparator = ":"

// Tag is a single category and value pair, formatted as "Category: Value"
type Tag struct {
	Category string
	Value    string
}

// NewTag trims and validates the category and value
func NewTag(category, value string) (Tag, error) {
	tag := Tag{
		Category: strings.TrimSpace(category),
		Value:    strings.TrimSpace(value),
	}
	return tag, tag.Validate()
}

// ParseTag parses "Category: Value", splitting on the first colon
func ParseTag(s string) (Tag, error) {
	tokens := strings.SplitN(s, tagSeparator, 2)
	if len(tokens) != 2 {
		return Tag{}, errors.Errorf("Tag must be formatted as 'Category: Value': %q", s)
	}
	return NewTag(tokens[0], tokens[1])
}

// Validate returns an error if the category or value are unusable
func (t Tag) Validate() error {
	var errs sErrors.Errors
	errs.ErrIf(t.Category == "", "Tag category must not be empty")
	errs.ErrIf(strings.Contains(t.Category, tagSeparator), "Tag category must not contain %q: %q", tagSeparator, t.Category)
	errs.ErrIf(t.Value == "", "Tag value must not be empty")
	return errs.ErrOrNil()
}

func (t Tag) String() string {
	return t.Category + tagSeparator + " " + t.Value
}

// Tags maps a category name to a set of values. Values are kept sorted and unique.
// A nil Tags is empty and ready to use, as long as the result of Add is kept.
type Tags map[string][]string

// Add inserts value into category, creating the category if needed. Adding an existing value is a no-op.
func (t Tags) Add(category, value string) Tags {
	if t == nil {
		t = make(Tags)
	}
	values := t[category]
	i := sort.SearchStrings(values, value)
	if i < len(values) && values[i] == value {
		return t
	}
	newValues := make([]string, 0, len(values)+1)
	newValues = append(newValues, values[:i]...)
	newValues = append(newValues, value)
	newValues = append(newValues, values[i:]...)
	t[category] = newValues
	return t
}

// Remove deletes value from category. The category is deleted when its last value is removed.
func (t Tags) Remove(category, value string) Tags {
	values, ok := t[category]
	if !ok {
		return t
	}
	i := sort.SearchStrings(values, value)
	if i == len(values) || values[i] != value {
		return t
	}
	if len(values) == 1 {
		delete(t, category)
		return t
	}
	newValues := make([]string, 0, len(values)-1)
	newValues = append(newValues, values[:i]...)
	newValues = append(newValues, values[i+1:]...)
	t[category] = newValues
	return t
}

// Has returns true if category contains value
func (t Tags) Has(category, value string) bool {
	values := t[category]
	i := sort.SearchStrings(values, value)
	return i < len(values) && values[i] == value
}

// Values returns the sorted values for category
func (t Tags) Values(category string) []string {
	return append([]string(nil), t[category]...)
}

// Categories returns the sorted category names
func (t Tags) Categories() []string {
	categories := make([]string, 0, len(t))
	for category := range t {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// Flatten returns every tag formatted as "Category: Value", sorted by category then value
func (t Tags) Flatten() []string {
	var flat []string
	for _, category := range t.Categories() {
		for _, value := range t[category] {
			flat = append(flat, Tag{Category: category, Value: value}.String())
		}
	}
	return flat
}

// Clone returns a copy sharing no maps or slices with t
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}
	clone := make(Tags, len(t))
	for category, values := range t {
		clone[category] = append([]string(nil), values...)
	}
	return clone
}

// Validate checks every category and value
func (t Tags) Validate() error {
	var errs sErrors.Errors
	for _, category := range t.Categories() {
		values := t[category]
		errs.ErrIf(len(values) == 0, "Tag category %q must have at least one value", category)
		for _, value := range values {
			errs.AddErr(Tag{Category: category, Value: value}.Validate())
		}
	}
	return errs.ErrOrNil()
}

// UnmarshalJSON decodes a category to values mapping, normalizing each value set
func (t *Tags) UnmarshalJSON(b []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = nil
		return nil
	}
	tags := make(Tags, len(raw))
	for category, values := range raw {
		for _, value := range values {
			tag, err := NewTag(category, value)
			if err != nil {
				return err
			}
			tags = tags.Add(tag.Category, tag.Value)
		}
	}
	*t = tags
	return nil
}
