package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	for _, tc := range []struct {
		description string
		input       string
		expectedTag Tag
		expectedErr string
	}{
		{
			description: "happy path",
			input:       "Priority: High",
			expectedTag: Tag{Category: "Priority", Value: "High"},
		},
		{
			description: "trims both sides",
			input:       "  Priority :High  ",
			expectedTag: Tag{Category: "Priority", Value: "High"},
		},
		{
			description: "splits on first colon",
			input:       "Time: 10:30",
			expectedTag: Tag{Category: "Time", Value: "10:30"},
		},
		{
			description: "later colons stay in the value",
			input:       "A: b: c",
			expectedTag: Tag{Category: "A", Value: "b: c"},
		},
		{
			description: "no colon",
			input:       "Priority High",
			expectedErr: `Tag must be formatted as 'Category: Value': "Priority High"`,
		},
		{
			description: "empty category",
			input:       ": High",
			expectedErr: "Tag category must not be empty",
		},
		{
			description: "empty value",
			input:       "Priority:  ",
			expectedErr: "Tag value must not be empty",
		},
	} {
		t.Run(tc.description, func(t *testing.T) {
			tag, err := ParseTag(tc.input)
			if tc.expectedErr != "" {
				require.Error(t, err)
				assert.Equal(t, tc.expectedErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTag, tag)
			assert.Equal(t, tc.expectedTag.Category+": "+tc.expectedTag.Value, tag.String())
		})
	}
}

func TestTagsAdd(t *testing.T) {
	var tags Tags
	tags = tags.Add("Priority", "High")
	assert.Equal(t, Tags{"Priority": {"High"}}, tags)

	tags = tags.Add("Priority", "High")
	assert.Equal(t, Tags{"Priority": {"High"}}, tags, "Adding an existing value should be a no-op")

	tags = tags.Add("Priority", "Urgent").Add("Priority", "Critical").Add("Trip", "Paris")
	assert.Equal(t, Tags{
		"Priority": {"Critical", "High", "Urgent"},
		"Trip":     {"Paris"},
	}, tags)
}

func TestTagsAddDoesNotAlias(t *testing.T) {
	tags := Tags{"Priority": {"High", "Low"}}
	values := tags["Priority"]
	tags.Add("Priority", "Medium")
	assert.Equal(t, []string{"High", "Low"}, values)
}

func TestTagsRemove(t *testing.T) {
	tags := Tags{
		"Priority": {"High", "Low"},
		"Trip":     {"Paris"},
	}
	tags = tags.Remove("Priority", "High")
	assert.Equal(t, Tags{"Priority": {"Low"}, "Trip": {"Paris"}}, tags)

	tags = tags.Remove("Trip", "Paris")
	assert.Equal(t, Tags{"Priority": {"Low"}}, tags, "Removing the last value should delete the category")

	tags = tags.Remove("Trip", "Paris").Remove("Priority", "Missing")
	assert.Equal(t, Tags{"Priority": {"Low"}}, tags)

	var nilTags Tags
	assert.Nil(t, nilTags.Remove("Priority", "Low"))
}

func TestTagsHas(t *testing.T) {
	tags := Tags{"Priority": {"High", "Low"}}
	assert.True(t, tags.Has("Priority", "High"))
	assert.False(t, tags.Has("Priority", "high"))
	assert.False(t, tags.Has("Trip", "High"))
	assert.False(t, Tags(nil).Has("Priority", "High"))
}

func TestTagsFlatten(t *testing.T) {
	tags := Tags{
		"Trip":     {"Paris"},
		"Priority": {"High", "Low"},
	}
	assert.Equal(t, []string{"Priority: High", "Priority: Low", "Trip: Paris"}, tags.Flatten())
	assert.Equal(t, []string{"Priority", "Trip"}, tags.Categories())
	assert.Equal(t, []string{"High", "Low"}, tags.Values("Priority"))
	assert.Empty(t, Tags(nil).Flatten())
}

func TestTagsClone(t *testing.T) {
	assert.Nil(t, Tags(nil).Clone())

	tags := Tags{"Priority": {"High"}}
	clone := tags.Clone()
	assert.Equal(t, tags, clone)
	clone.Add("Priority", "Low")
	clone["Priority"][0] = "changed"
	assert.Equal(t, Tags{"Priority": {"High"}}, tags)
}

func TestTagsValidate(t *testing.T) {
	assert.NoError(t, Tags{"Priority": {"High"}}.Validate())
	assert.NoError(t, Tags(nil).Validate())

	err := Tags{
		"Bad: Category": {"High"},
		"Empty":         {},
		"Priority":      {""},
	}.Validate()
	require.Error(t, err)
	assert.Equal(t, `Tag category must not contain ":": "Bad: Category"
Tag category "Empty" must have at least one value
Tag value must not be empty`, err.Error())
}

func TestTagsUnmarshalJSON(t *testing.T) {
	var tags Tags
	require.NoError(t, json.Unmarshal([]byte(`{"Priority": ["Low", " High", "Low"]}`), &tags))
	assert.Equal(t, Tags{"Priority": {"High", "Low"}}, tags)

	require.NoError(t, json.Unmarshal([]byte(`null`), &tags))
	assert.Nil(t, tags)

	err := json.Unmarshal([]byte(`{"Priority": [""]}`), &tags)
	assert.EqualError(t, err, "Tag value must not be empty")
}
