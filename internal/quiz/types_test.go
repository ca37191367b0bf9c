package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizValid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"valid", `{"questions":[{"prompt":"Q1","options":["A","B"],"answer_index":0}]}`, true},
		{"fractional index is still numeric", `{"questions":[{"prompt":"Q1","options":["A","B"],"answer_index":1.0}]}`, true},
		{"empty prompt is a string", `{"questions":[{"prompt":"","options":["A","B"],"answer_index":1}]}`, true},
		{"no questions", `{"questions":[]}`, false},
		{"missing questions", `{}`, false},
		{"null", `null`, false},
		{"one option", `{"questions":[{"prompt":"Q1","options":["A"],"answer_index":0}]}`, false},
		{"missing prompt", `{"questions":[{"options":["A","B"],"answer_index":0}]}`, false},
		{"missing index", `{"questions":[{"prompt":"Q1","options":["A","B"]}]}`, false},
		{"keys are case sensitive", `{"QUESTIONS":[{"Prompt":"Q1","OPTIONS":["A","B"],"Answer_Index":0}]}`, false},
		{"question keys are case sensitive", `{"questions":[{"Prompt":"Q1","Options":["A","B"],"Answer_Index":0}]}`, false},
		{"null options list", `{"questions":[{"prompt":"Q1","options":null,"answer_index":0}]}`, false},
		{"null question", `{"questions":[null]}`, false},
		{"second question bad", `{"questions":[{"prompt":"Q1","options":["A","B"],"answer_index":0},{"prompt":"Q2","options":[],"answer_index":0}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quiz
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &q))
			assert.Equal(t, tt.want, q.Valid())
		})
	}
}

func TestQuizDecodeRejectsWrongTypes(t *testing.T) {
	for _, raw := range []string{
		`{"questions":[{"prompt":1,"options":["A","B"],"answer_index":0}]}`,
		`{"questions":[{"prompt":"Q","options":["A","B"],"answer_index":"0"}]}`,
		`{"questions":[{"prompt":"Q","options":"AB","answer_index":0}]}`,
		`{"questions":{}}`,
		`{"questions":[{"prompt":"Q","options":[null,null],"answer_index":0}]}`,
		`{"questions":[{"prompt":"Q","options":["A",null],"answer_index":0}]}`,
		`{"questions":[1]}`,
	} {
		var q Quiz
		assert.Error(t, json.Unmarshal([]byte(raw), &q), raw)
	}
}

func TestQuizRoundTripsBody(t *testing.T) {
	raw := `{"questions":[{"prompt":"Q1","options":["A","B"],"answer_index":0}]}`
	var q Quiz
	require.NoError(t, json.Unmarshal([]byte(raw), &q))
	out, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, raw, string(out))
}

func TestFeedbackValid(t *testing.T) {
	var f Feedback
	require.NoError(t, json.Unmarshal([]byte(`{"feedback":"Great job!"}`), &f))
	assert.True(t, f.Valid())

	f = Feedback{}
	require.NoError(t, json.Unmarshal([]byte(`{"message":"hi"}`), &f))
	assert.False(t, f.Valid())

	assert.Error(t, json.Unmarshal([]byte(`{"feedback":3}`), &f))

	f = Feedback{}
	require.NoError(t, json.Unmarshal([]byte(`{"Feedback":"hi"}`), &f))
	assert.False(t, f.Valid())
}
