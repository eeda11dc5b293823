package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bancoq/bancoq/internal/model"
)

// MalformedResponseError reports generation output that could not be decoded
// into the expected structure. Cleaned carries the text after fence
// stripping for diagnostic logging.
type MalformedResponseError struct {
	Cleaned string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed generation response: %v (cleaned: %s)", e.Err, e.Cleaned)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// extractJSON strips surrounding whitespace, markdown code fences, and any
// prose the service wrapped around its JSON object. It never fails; callers
// discover problems at decode time.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}

type intentPayload struct {
	Intent string `json:"intent"`
	Topic  string `json:"topic"`
}

// parseIntent decodes the classifier's reply into an IntentResult. An
// unrecognized intent value is a failure; the orchestrator degrades it to
// the chat path.
func parseIntent(raw string) (model.IntentResult, error) {
	cleaned := extractJSON(raw)

	var payload intentPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return model.IntentResult{}, &MalformedResponseError{Cleaned: cleaned, Err: err}
	}

	intent := model.Intent(strings.ToLower(strings.TrimSpace(payload.Intent)))
	switch intent {
	case model.IntentSearch, model.IntentCreate, model.IntentInsert, model.IntentChat:
		return model.IntentResult{Intent: intent, Topic: strings.TrimSpace(payload.Topic)}, nil
	}
	return model.IntentResult{}, &MalformedResponseError{
		Cleaned: cleaned,
		Err:     fmt.Errorf("unrecognized intent %q", payload.Intent),
	}
}

type generatedOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type generatedQuestion struct {
	Statement      string            `json:"statement"`
	Difficulty     string            `json:"difficulty"`
	EducationLevel string            `json:"education_level"`
	Subject        string            `json:"subject"`
	Options        []generatedOption `json:"options"`
}

// generatedOptionCount is the option count the generation prompt demands.
const generatedOptionCount = 4

// parseGeneratedQuestion decodes generation output into a pending question
// candidate. Statement and the exact option shape (4 options, exactly one
// correct) are required; difficulty, education level, and subject default
// when absent.
func parseGeneratedQuestion(raw string) (*model.PendingQuestion, error) {
	cleaned := extractJSON(raw)

	var payload generatedQuestion
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &MalformedResponseError{Cleaned: cleaned, Err: err}
	}

	if strings.TrimSpace(payload.Statement) == "" {
		return nil, &MalformedResponseError{Cleaned: cleaned, Err: fmt.Errorf("missing statement")}
	}
	if len(payload.Options) != generatedOptionCount {
		return nil, &MalformedResponseError{
			Cleaned: cleaned,
			Err:     fmt.Errorf("expected %d options, got %d", generatedOptionCount, len(payload.Options)),
		}
	}

	correct := 0
	opts := make([]model.PendingOption, 0, len(payload.Options))
	for i, o := range payload.Options {
		if strings.TrimSpace(o.Text) == "" {
			return nil, &MalformedResponseError{Cleaned: cleaned, Err: fmt.Errorf("option %d has empty text", i+1)}
		}
		if o.Correct {
			correct++
		}
		opts = append(opts, model.PendingOption{Text: o.Text, Correct: o.Correct})
	}
	if correct != 1 {
		return nil, &MalformedResponseError{
			Cleaned: cleaned,
			Err:     fmt.Errorf("expected exactly 1 correct option, got %d", correct),
		}
	}

	difficulty := model.Difficulty(strings.ToLower(strings.TrimSpace(payload.Difficulty)))
	if !difficulty.Valid() {
		difficulty = model.DifficultyMedium
	}

	return &model.PendingQuestion{
		Statement:      payload.Statement,
		Kind:           model.KindSingleChoice,
		Difficulty:     difficulty,
		EducationLevel: strings.TrimSpace(payload.EducationLevel),
		Subject:        strings.TrimSpace(payload.Subject),
		Options:        opts,
	}, nil
}
