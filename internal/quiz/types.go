// Package quiz maps quiz and feedback requests onto worker actions and
// validates what the worker sends back.
package quiz

import (
	"encoding/json"
	"fmt"
)

// Worker actions.
const (
	ActionGenerateQuiz     = "generate_quiz"
	ActionGenerateFeedback = "generate_feedback"
)

// DefaultTopic is used when a request carries no topic.
const DefaultTopic = "General Knowledge"

// Question is one multiple-choice question.
type Question struct {
	Prompt      *string  `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex *float64 `json:"answer_index"`
}

// UnmarshalJSON matches keys exactly and rejects null options.
func (qu *Question) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*qu = Question{}
	if raw, ok := fields["prompt"]; ok {
		if err := json.Unmarshal(raw, &qu.Prompt); err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
	}
	if raw, ok := fields["options"]; ok {
		var opts []*string
		if err := json.Unmarshal(raw, &opts); err != nil {
			return fmt.Errorf("options: %w", err)
		}
		for i, o := range opts {
			if o == nil {
				return fmt.Errorf("options[%d] is null", i)
			}
			qu.Options = append(qu.Options, *o)
		}
	}
	if raw, ok := fields["answer_index"]; ok {
		if err := json.Unmarshal(raw, &qu.AnswerIndex); err != nil {
			return fmt.Errorf("answer_index: %w", err)
		}
	}
	return nil
}

// Quiz is the generate_quiz result.
type Quiz struct {
	Questions []Question `json:"questions"`
}

func (q *Quiz) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*q = Quiz{}
	if raw, ok := fields["questions"]; ok {
		return json.Unmarshal(raw, &q.Questions)
	}
	return nil
}

// Valid reports whether q has at least one question and every question has
// a prompt, two or more options and a numeric answer index.
func (q Quiz) Valid() bool {
	if len(q.Questions) == 0 {
		return false
	}
	for _, qu := range q.Questions {
		if qu.Prompt == nil || len(qu.Options) < 2 || qu.AnswerIndex == nil {
			return false
		}
	}
	return true
}

// Feedback is the generate_feedback result.
type Feedback struct {
	Feedback *string `json:"feedback"`
}

func (f *Feedback) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*f = Feedback{}
	if raw, ok := fields["feedback"]; ok {
		return json.Unmarshal(raw, &f.Feedback)
	}
	return nil
}

func (f Feedback) Valid() bool { return f.Feedback != nil }

// objectFields splits a JSON object by key. encoding/json folds key case
// when decoding into structs; the worker protocol does not.
func objectFields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
