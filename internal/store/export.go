package store

import (
	"fmt"
	"strings"

	"github.com/bancoq/bancoq/internal/model"
)

// ExportQuestions returns the requested questions with their options,
// restricted to those owned by the given author. Questions the author does
// not own are silently omitted.
func (s *Store) ExportQuestions(ids []int64, authorID int64) ([]model.ExportedQuestion, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, authorID)

	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT q.id, q.statement, q.kind, o.text, o.correct
		 FROM questions q
		 LEFT JOIN options o ON q.id = o.question_id
		 WHERE q.id IN (%s) AND q.author_id = ?
		 ORDER BY q.id, o.id`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ExportedQuestion
	index := make(map[int64]int)
	for rows.Next() {
		var (
			id        int64
			statement string
			kind      model.QuestionKind
			text      *string
			correct   *bool
		)
		if err := rows.Scan(&id, &statement, &kind, &text, &correct); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			out = append(out, model.ExportedQuestion{ID: id, Statement: statement, Kind: kind})
			i = len(out) - 1
			index[id] = i
		}
		if text != nil {
			out[i].Options = append(out[i].Options, model.ExportedOption{
				Text:    *text,
				Correct: correct != nil && *correct,
			})
		}
	}
	return out, rows.Err()
}
