// Package prompts builds the fixed instruction prompts sent to the
// generation service. All prompts demand a strict JSON reply shape; the
// chat package parses and validates whatever comes back.
package prompts

import (
	"fmt"
	"strings"
)

// Classification builds the intent classification prompt for one utterance.
// The pending flag tells the model whether a generated question is awaiting
// the user's confirmation, which is what distinguishes a confirmation
// ("sim, pode cadastrar") from small talk.
func Classification(utterance string, hasPending bool) string {
	var sb strings.Builder
	sb.WriteString("You are the intent router of an exam question bank assistant.\n")
	sb.WriteString("Classify the user message into exactly one intent:\n\n")
	sb.WriteString("- \"search\": the user wants to find existing questions on a topic.\n")
	sb.WriteString("- \"create\": the user wants a new question generated on a topic.\n")
	sb.WriteString("- \"insert\": the user is confirming that a previously generated question should be saved.\n")
	sb.WriteString("- \"chat\": anything else (greetings, general talk, unclear requests).\n\n")
	if hasPending {
		sb.WriteString("A generated question IS currently awaiting the user's confirmation. ")
		sb.WriteString("Affirmative replies such as \"sim\", \"pode cadastrar\", \"yes, save it\" mean \"insert\".\n\n")
	} else {
		sb.WriteString("No generated question is awaiting confirmation, so \"insert\" only applies ")
		sb.WriteString("if the user explicitly asks to save a question.\n\n")
	}
	sb.WriteString("USER MESSAGE: " + utterance + "\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"intent": "<search|create|insert|chat>", "topic": "<topic or empty string>"}`)
	sb.WriteString("\n")
	return sb.String()
}

// QuestionGeneration builds the prompt that asks the service to emit one
// complete single-choice question as strict JSON.
func QuestionGeneration(topic string) string {
	var sb strings.Builder
	sb.WriteString("You write exam questions for a question bank used by teachers.\n")
	sb.WriteString(fmt.Sprintf("Write ONE single-choice question about: %s\n\n", topic))
	sb.WriteString("Rules:\n")
	sb.WriteString("- Exactly 4 options.\n")
	sb.WriteString("- Exactly 1 option has \"correct\": true; the other 3 are plausible but wrong.\n")
	sb.WriteString("- Write the question in the same language as the topic.\n")
	sb.WriteString("- difficulty is one of: easy, medium, hard, very_hard.\n\n")
	sb.WriteString("Respond ONLY with a JSON object, no surrounding prose:\n")
	sb.WriteString(`{"statement": "...", "difficulty": "...", "education_level": "...", "subject": "...", ` +
		`"options": [{"text": "...", "correct": true}, {"text": "...", "correct": false}, ` +
		`{"text": "...", "correct": false}, {"text": "...", "correct": false}]}`)
	sb.WriteString("\n")
	return sb.String()
}

// GeneralChat frames a free-form utterance for the default conversation path.
func GeneralChat(utterance string) string {
	var sb strings.Builder
	sb.WriteString("You are the assistant of an exam question bank application. ")
	sb.WriteString("You help teachers manage, search, and create exam questions. ")
	sb.WriteString("Answer briefly and helpfully, in the language the user wrote in.\n\n")
	sb.WriteString("USER MESSAGE: " + utterance + "\n")
	return sb.String()
}
