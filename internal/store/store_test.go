package store

import (
	"testing"

	"github.com/bancoq/bancoq/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, email string) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	return id
}

func choiceOptions() []model.Option {
	return []model.Option{
		{Text: "two", Correct: true},
		{Text: "three", Correct: false},
	}
}

func insertTestQuestion(t *testing.T, s *Store, authorID int64, statement string) int64 {
	t.Helper()
	id, err := s.InsertQuestion(model.Question{
		Statement:  statement,
		Kind:       model.KindSingleChoice,
		AuthorID:   authorID,
		Difficulty: model.DifficultyEasy,
	}, choiceOptions())
	if err != nil {
		t.Fatalf("insertTestQuestion: %v", err)
	}
	return id
}

func TestInsertAndGetQuestion(t *testing.T) {
	s := newTestStore(t)
	author := createTestUser(t, s, "a@example.com")

	id, err := s.InsertQuestion(model.Question{
		Statement:      "Quanto é 1+1?",
		Kind:           model.KindSingleChoice,
		AuthorID:       author,
		Difficulty:     model.DifficultyEasy,
		EducationLevel: "fundamental",
		Subject:        "matemática",
	}, choiceOptions())
	if err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}

	q, err := s.GetQuestion(id)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.Statement != "Quanto é 1+1?" {
		t.Errorf("statement = %q", q.Statement)
	}
	if !q.Active {
		t.Error("new question should be active")
	}
	if q.Subject != "matemática" {
		t.Errorf("subject = %q", q.Subject)
	}

	opts, err := s.GetOptions(id)
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if !opts[0].Correct || opts[1].Correct {
		t.Error("correctness flags not preserved")
	}

	if _, err := s.GetQuestion(9999); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertQuestionValidation(t *testing.T) {
	s := newTestStore(t)
	author := createTestUser(t, s, "a@example.com")

	tests := []struct {
		name string
		kind model.QuestionKind
		opts []model.Option
	}{
		{"essay with options", model.KindEssay, choiceOptions()},
		{"choice without options", model.KindSingleChoice, nil},
		{"choice without correct", model.KindSingleChoice, []model.Option{{Text: "a"}, {Text: "b"}}},
		{"empty option text", model.KindSingleChoice, []model.Option{{Text: " ", Correct: true}}},
		{"unknown kind", model.QuestionKind("quiz"), choiceOptions()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.InsertQuestion(model.Question{
				Statement:  "s",
				Kind:       tt.kind,
				AuthorID:   author,
				Difficulty: model.DifficultyEasy,
			}, tt.opts)
			if err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	// Nothing should have been persisted by the failed inserts.
	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 questions after failed inserts, got %d", count)
	}
}

func TestEssayQuestionHasNoOptions(t *testing.T) {
	s := newTestStore(t)
	author := createTestUser(t, s, "a@example.com")

	id, err := s.InsertQuestion(model.Question{
		Statement:  "Disserte sobre fotossíntese.",
		Kind:       model.KindEssay,
		AuthorID:   author,
		Difficulty: model.DifficultyHard,
	}, nil)
	if err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}
	opts, err := s.GetOptions(id)
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	if len(opts) != 0 {
		t.Fatalf("essay question should have no options, got %d", len(opts))
	}
}

func TestSearchActiveByStatement(t *testing.T) {
	s := newTestStore(t)
	author := createTestUser(t, s, "a@example.com")

	insertTestQuestion(t, s, author, "Quanto é 2+2 em Matemática?")
	insertTestQuestion(t, s, author, "Qual a capital da França?")
	id3 := insertTestQuestion(t, s, author, "matemática básica: quanto é 3+3?")

	matches, err := s.SearchActiveByStatement("MATEMÁTICA", 10)
	if err != nil {
		t.Fatalf("SearchActiveByStatement: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	// Newest first.
	if matches[0].ID != id3 {
		t.Errorf("expected newest match first, got #%d", matches[0].ID)
	}

	// Soft-deleted questions never match.
	if err := s.SoftDeleteQuestion(id3, author); err != nil {
		t.Fatalf("SoftDeleteQuestion: %v", err)
	}
	matches, err = s.SearchActiveByStatement("matemática", 10)
	if err != nil {
		t.Fatalf("SearchActiveByStatement: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match after soft delete, got %d", len(matches))
	}

	// Limit is honored.
	for i := 0; i < 15; i++ {
		insertTestQuestion(t, s, author, "geografia do Brasil")
	}
	matches, err = s.SearchActiveByStatement("geografia", 10)
	if err != nil {
		t.Fatalf("SearchActiveByStatement: %v", err)
	}
	if len(matches) != 10 {
		t.Fatalf("expected limit of 10, got %d", len(matches))
	}
}

func TestTrashLifecycle(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")

	id := insertTestQuestion(t, s, owner, "Questão de teste")

	// Only the author can trash.
	if err := s.SoftDeleteQuestion(id, other); err != ErrNotFound {
		t.Errorf("non-owner delete: expected ErrNotFound, got %v", err)
	}
	if err := s.SoftDeleteQuestion(id, owner); err != nil {
		t.Fatalf("SoftDeleteQuestion: %v", err)
	}

	active, err := s.ListActive("")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active questions, got %d", len(active))
	}
	trash, err := s.ListDeleted()
	if err != nil {
		t.Fatalf("ListDeleted: %v", err)
	}
	if len(trash) != 1 {
		t.Fatalf("expected 1 trashed question, got %d", len(trash))
	}

	// Restore brings it back.
	if err := s.RestoreQuestion(id, other); err != ErrNotFound {
		t.Errorf("non-owner restore: expected ErrNotFound, got %v", err)
	}
	if err := s.RestoreQuestion(id, owner); err != nil {
		t.Fatalf("RestoreQuestion: %v", err)
	}
	active, err = s.ListActive("")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active question after restore, got %d", len(active))
	}

	// Purge removes question and options for good.
	if err := s.DeleteQuestionPermanently(id, other); err != ErrNotFound {
		t.Errorf("non-owner purge: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteQuestionPermanently(id, owner); err != nil {
		t.Fatalf("DeleteQuestionPermanently: %v", err)
	}
	if _, err := s.GetQuestion(id); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after purge, got %v", err)
	}
	opts, err := s.GetOptions(id)
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	if len(opts) != 0 {
		t.Fatalf("expected options removed with question, got %d", len(opts))
	}
}

func TestUpdateQuestionReplacesOptions(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")

	id := insertTestQuestion(t, s, owner, "Antes")

	newOpts := []model.Option{
		{Text: "alpha", Correct: false},
		{Text: "beta", Correct: true},
		{Text: "gamma", Correct: false},
	}
	err := s.UpdateQuestion(id, other, "Depois", model.DifficultyHard, "médio", newOpts)
	if err != ErrNotFound {
		t.Errorf("non-owner update: expected ErrNotFound, got %v", err)
	}

	if err := s.UpdateQuestion(id, owner, "Depois", model.DifficultyHard, "médio", newOpts); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}

	q, err := s.GetQuestion(id)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.Statement != "Depois" || q.Difficulty != model.DifficultyHard || q.EducationLevel != "médio" {
		t.Errorf("update not applied: %+v", q)
	}

	opts, err := s.GetOptions(id)
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	if len(opts) != 3 {
		t.Fatalf("expected 3 options after update, got %d", len(opts))
	}
	if opts[1].Text != "beta" || !opts[1].Correct {
		t.Errorf("option set not replaced: %+v", opts)
	}

	// An invalid option set leaves the question unchanged.
	err = s.UpdateQuestion(id, owner, "Inválida", model.DifficultyEasy, "", []model.Option{{Text: "only", Correct: false}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	q, _ = s.GetQuestion(id)
	if q.Statement != "Depois" {
		t.Errorf("failed update must not change the question, got %q", q.Statement)
	}
}

func TestListActiveSearch(t *testing.T) {
	s := newTestStore(t)
	author := createTestUser(t, s, "a@example.com")

	if _, err := s.InsertQuestion(model.Question{
		Statement:      "Pergunta sobre frações",
		Kind:           model.KindSingleChoice,
		AuthorID:       author,
		Difficulty:     model.DifficultyHard,
		EducationLevel: "ensino médio",
	}, choiceOptions()); err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}
	insertTestQuestion(t, s, author, "Outra pergunta")

	tests := []struct {
		name   string
		search string
		want   int
	}{
		{"no filter", "", 2},
		{"by statement", "frações", 1},
		{"by difficulty", "hard", 1},
		{"by education level", "médio", 1},
		{"no match", "química", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListActive(tt.search)
			if err != nil {
				t.Fatalf("ListActive: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d results, got %d", tt.want, len(got))
			}
		})
	}
}

func TestExportQuestions(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")

	id1 := insertTestQuestion(t, s, owner, "Primeira")
	id2 := insertTestQuestion(t, s, other, "De outro autor")
	id3, err := s.InsertQuestion(model.Question{
		Statement:  "Dissertativa",
		Kind:       model.KindEssay,
		AuthorID:   owner,
		Difficulty: model.DifficultyMedium,
	}, nil)
	if err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}

	out, err := s.ExportQuestions([]int64{id1, id2, id3}, owner)
	if err != nil {
		t.Fatalf("ExportQuestions: %v", err)
	}
	// The other author's question is silently omitted.
	if len(out) != 2 {
		t.Fatalf("expected 2 exported questions, got %d", len(out))
	}
	if out[0].ID != id1 || len(out[0].Options) != 2 {
		t.Errorf("exported question 1 wrong: %+v", out[0])
	}
	if out[1].ID != id3 || len(out[1].Options) != 0 {
		t.Errorf("essay export should have no options: %+v", out[1])
	}
	if !out[0].Options[0].Correct {
		t.Error("correctness flag lost in export")
	}

	out, err = s.ExportQuestions(nil, owner)
	if err != nil {
		t.Fatalf("ExportQuestions(nil): %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty export for no IDs, got %d", len(out))
	}
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser(model.User{
		Email:        "maria@example.com",
		FirstName:    "Maria",
		LastName:     "Silva",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByEmail("maria@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.FullName() != "Maria Silva" {
		t.Errorf("FullName = %q", u.FullName())
	}

	missing, err := s.GetUserByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown email")
	}

	if err := s.UpdateProfile(id, "Ana", "Souza"); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if err := s.UpdatePassword(id, "newhash"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if err := s.UpdateProfilePhoto(id, "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("UpdateProfilePhoto: %v", err)
	}

	u, err = s.GetUserByID(id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u.FirstName != "Ana" || u.PasswordHash != "newhash" || u.ProfilePhoto == "" {
		t.Errorf("updates not applied: %+v", u)
	}

	if err := s.UpdateProfile(9999, "X", "Y"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing user, got %v", err)
	}

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "a@example.com")

	token, err := s.CreateAuthSession(user)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != user {
		t.Fatalf("unexpected session: %+v", sess)
	}

	missing, err := s.GetAuthSession("bogus")
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown token")
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess != nil {
		t.Fatal("expected session gone after delete")
	}
}

func TestPendingQuestionState(t *testing.T) {
	s := newTestStore(t)
	const session = "tok-1"

	// Absent state is nil, not an error.
	pq, err := s.GetPendingQuestion(session)
	if err != nil {
		t.Fatalf("GetPendingQuestion: %v", err)
	}
	if pq != nil {
		t.Fatal("expected nil pending question")
	}

	first := &model.PendingQuestion{
		Statement:  "Quanto é 2+2?",
		Kind:       model.KindSingleChoice,
		Difficulty: model.DifficultyEasy,
		Subject:    "matemática",
		Options: []model.PendingOption{
			{Text: "3"}, {Text: "4", Correct: true}, {Text: "5"}, {Text: "6"},
		},
	}
	if err := s.SetPendingQuestion(session, first); err != nil {
		t.Fatalf("SetPendingQuestion: %v", err)
	}

	pq, err = s.GetPendingQuestion(session)
	if err != nil {
		t.Fatalf("GetPendingQuestion: %v", err)
	}
	if pq == nil || pq.Statement != first.Statement || len(pq.Options) != 4 {
		t.Fatalf("round trip lost data: %+v", pq)
	}

	// A new pending question replaces the previous one wholesale.
	second := &model.PendingQuestion{
		Statement:  "Capital da França?",
		Kind:       model.KindSingleChoice,
		Difficulty: model.DifficultyMedium,
		Options:    []model.PendingOption{{Text: "Paris", Correct: true}},
		ImagePath:  "/tmp/staged.png",
	}
	if err := s.SetPendingQuestion(session, second); err != nil {
		t.Fatalf("SetPendingQuestion: %v", err)
	}
	pq, _ = s.GetPendingQuestion(session)
	if pq.Statement != second.Statement || pq.ImagePath != "/tmp/staged.png" {
		t.Fatalf("overwrite failed: %+v", pq)
	}

	// Other sessions are unaffected.
	other, err := s.GetPendingQuestion("tok-2")
	if err != nil {
		t.Fatalf("GetPendingQuestion: %v", err)
	}
	if other != nil {
		t.Fatal("pending state leaked across sessions")
	}

	if err := s.ClearPendingQuestion(session); err != nil {
		t.Fatalf("ClearPendingQuestion: %v", err)
	}
	pq, _ = s.GetPendingQuestion(session)
	if pq != nil {
		t.Fatal("expected cleared pending question")
	}

	// Clearing an absent state is a no-op.
	if err := s.ClearPendingQuestion("tok-3"); err != nil {
		t.Fatalf("ClearPendingQuestion: %v", err)
	}
}

func TestLogoutClearsPendingState(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "a@example.com")

	token, err := s.CreateAuthSession(user)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if err := s.SetPendingQuestion(token, &model.PendingQuestion{Statement: "x"}); err != nil {
		t.Fatalf("SetPendingQuestion: %v", err)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	pq, err := s.GetPendingQuestion(token)
	if err != nil {
		t.Fatalf("GetPendingQuestion: %v", err)
	}
	if pq != nil {
		t.Fatal("pending question should die with the session")
	}
}
