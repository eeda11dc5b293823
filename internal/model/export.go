package model

// ExportedQuestion is the wire shape of one question in a document export.
// The Portuguese JSON field names are the established download format and
// must not change.
type ExportedQuestion struct {
	ID        int64            `json:"id"`
	Statement string           `json:"enunciado"`
	Kind      QuestionKind     `json:"tipo_questao"`
	Options   []ExportedOption `json:"opcoes"`
}

// ExportedOption is one answer choice in a document export.
type ExportedOption struct {
	Text    string `json:"texto"`
	Correct bool   `json:"is_correta"`
}
