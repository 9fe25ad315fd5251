package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/model"
)

func payload(mode model.TimingMode, totalSecs, perQSecs, questions int) *model.QuizPayload {
	p := &model.QuizPayload{
		QuizID:             uuid.New(),
		Title:              "Timing",
		TimingMode:         mode,
		DurationSeconds:    totalSecs,
		PerQuestionSeconds: perQSecs,
	}
	for i := 0; i < questions; i++ {
		p.Questions = append(p.Questions, model.QuestionForStudent{
			ID:       uuid.New(),
			Text:     "q",
			Type:     model.QuestionTypeSingle,
			Options:  []string{"a", "b"},
			Points:   1,
			OrderNum: i,
		})
	}
	return p
}

var t0 = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

func TestTotalModeFreeNavigation(t *testing.T) {
	s := New(payload(model.TimingModeTotal, 300, 0, 3), t0)
	now := t0.Add(10 * time.Second)

	if err := s.Next(now); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := s.Prev(now.Add(time.Second)); err != nil {
		t.Fatalf("backward in total mode: %v", err)
	}
	if idx := s.CurrentIndex(now.Add(2 * time.Second)); idx != 0 {
		t.Fatalf("index = %d, want 0", idx)
	}
	if err := s.Prev(now.Add(3 * time.Second)); !errors.Is(err, ErrAtFirstQuestion) {
		t.Fatalf("expected ErrAtFirstQuestion, got %v", err)
	}
}

func TestTotalModeCountdownAndAutoSubmit(t *testing.T) {
	s := New(payload(model.TimingModeTotal, 120, 0, 2), t0)

	if r := s.Remaining(t0.Add(30 * time.Second)); r != 90 {
		t.Fatalf("remaining = %d, want 90", r)
	}

	if !s.Finished(t0.Add(121 * time.Second)) {
		t.Fatal("session must auto-submit when the countdown reaches zero")
	}
	out := s.Outcome()
	if out == nil || out.Status != model.AttemptStatusAutoSubmitted {
		t.Fatalf("outcome = %+v, want AUTO_SUBMITTED", out)
	}
	if _, err := s.Submit(t0.Add(130 * time.Second)); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("submit after expiry: %v, want ErrAlreadySubmitted", err)
	}
}

func TestPerQuestionForbidsBackwardNavigation(t *testing.T) {
	s := New(payload(model.TimingModePerQuestion, 0, 30, 3), t0)
	now := t0.Add(5 * time.Second)

	if err := s.Next(now); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := s.Prev(now.Add(time.Second)); !errors.Is(err, ErrBackwardNavigation) {
		t.Fatalf("expected ErrBackwardNavigation, got %v", err)
	}
}

func TestPerQuestionAutoAdvanceAndAutoSubmit(t *testing.T) {
	// 3 questions, 30s each, student never answers: advance at 30s and
	// 60s, auto-submit at 90s with all answers empty.
	s := New(payload(model.TimingModePerQuestion, 0, 30, 3), t0)

	if idx := s.CurrentIndex(t0.Add(29 * time.Second)); idx != 0 {
		t.Fatalf("at 29s index = %d, want 0", idx)
	}
	if idx := s.CurrentIndex(t0.Add(31 * time.Second)); idx != 1 {
		t.Fatalf("at 31s index = %d, want 1", idx)
	}
	if idx := s.CurrentIndex(t0.Add(61 * time.Second)); idx != 2 {
		t.Fatalf("at 61s index = %d, want 2", idx)
	}
	if s.Finished(t0.Add(89 * time.Second)) {
		t.Fatal("must still be in progress at 89s")
	}
	if !s.Finished(t0.Add(90 * time.Second)) {
		t.Fatal("must auto-submit at 90s")
	}

	out := s.Outcome()
	if out.Status != model.AttemptStatusAutoSubmitted {
		t.Fatalf("status = %s, want AUTO_SUBMITTED", out.Status)
	}
	if len(out.Answers) != 0 {
		t.Fatalf("answers = %v, want none", out.Answers)
	}
}

func TestPerQuestionExpiryChargesFullAllotment(t *testing.T) {
	p := payload(model.TimingModePerQuestion, 0, 30, 2)
	s := New(p, t0)

	// Answer the first question at 10s, then let it expire anyway by
	// never advancing manually.
	if err := s.Select(t0.Add(10*time.Second), p.Questions[0].ID, "a"); err != nil {
		t.Fatalf("select: %v", err)
	}

	s.CurrentIndex(t0.Add(35 * time.Second)) // past the first slot

	out, err := s.Submit(t0.Add(40 * time.Second))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ans, ok := out.Answers[p.Questions[0].ID]
	if !ok {
		t.Fatal("first answer missing")
	}
	if ans.TimeSpentSeconds != 30 {
		t.Fatalf("expired question time = %d, want full allotment 30", ans.TimeSpentSeconds)
	}
}

func TestPerQuestionHonorsQuestionOverride(t *testing.T) {
	p := payload(model.TimingModePerQuestion, 0, 30, 2)
	override := 10
	p.Questions[0].TimeLimitSeconds = &override
	s := New(p, t0)

	if idx := s.CurrentIndex(t0.Add(11 * time.Second)); idx != 1 {
		t.Fatalf("index = %d, want 1 after the 10s override elapsed", idx)
	}
}

func TestSelectReplaceVsToggle(t *testing.T) {
	p := payload(model.TimingModeTotal, 300, 0, 2)
	p.Questions[1].Type = model.QuestionTypeMultiple
	p.Questions[1].Options = []string{"x", "y", "z"}
	s := New(p, t0)
	now := t0.Add(time.Second)

	// Single: second select replaces.
	if err := s.Select(now, p.Questions[0].ID, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(now, p.Questions[0].ID, "b"); err != nil {
		t.Fatal(err)
	}

	if err := s.Next(now); err != nil {
		t.Fatal(err)
	}

	// Multiple: select toggles membership.
	for _, opt := range []string{"x", "y", "x"} {
		if err := s.Select(now, p.Questions[1].ID, opt); err != nil {
			t.Fatal(err)
		}
	}

	out, err := s.Submit(t0.Add(20 * time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Answers[p.Questions[0].ID].SelectedOptions; len(got) != 1 || got[0] != "b" {
		t.Fatalf("single selection = %v, want [b]", got)
	}
	if got := out.Answers[p.Questions[1].ID].SelectedOptions; len(got) != 1 || got[0] != "y" {
		t.Fatalf("multiple selection = %v, want [y]", got)
	}
}

func TestSelectRejectsNonCurrentQuestion(t *testing.T) {
	p := payload(model.TimingModeTotal, 300, 0, 2)
	s := New(p, t0)

	err := s.Select(t0.Add(time.Second), p.Questions[1].ID, "a")
	if !errors.Is(err, ErrQuestionNotCurrent) {
		t.Fatalf("expected ErrQuestionNotCurrent, got %v", err)
	}
}

func TestSubmitIsIdempotentGuarded(t *testing.T) {
	p := payload(model.TimingModeTotal, 300, 0, 1)
	s := New(p, t0)

	if _, err := s.Submit(t0.Add(10 * time.Second)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := s.Submit(t0.Add(11 * time.Second)); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second submit: %v, want ErrAlreadySubmitted", err)
	}
	if s.Outcome().Status != model.AttemptStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", s.Outcome().Status)
	}
}

func TestTabSwitchCounterNeverBlocks(t *testing.T) {
	p := payload(model.TimingModeTotal, 300, 0, 1)
	s := New(p, t0)

	for i := 0; i < 3; i++ {
		s.TabSwitch(t0.Add(time.Duration(i) * time.Second))
	}
	out, err := s.Submit(t0.Add(10 * time.Second))
	if err != nil {
		t.Fatalf("tab switches must not block submission: %v", err)
	}
	if out.TabSwitchCount != 3 {
		t.Fatalf("tab switches = %d, want 3", out.TabSwitchCount)
	}

	// Still counted after the session finished; informational only.
	if n := s.TabSwitch(t0.Add(11 * time.Second)); n != 4 {
		t.Fatalf("post-submit tab switch = %d, want 4", n)
	}
}

func TestTotalModeTimeAttribution(t *testing.T) {
	p := payload(model.TimingModeTotal, 300, 0, 2)
	s := New(p, t0)

	if err := s.Select(t0.Add(5*time.Second), p.Questions[0].ID, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Next(t0.Add(10 * time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(t0.Add(15*time.Second), p.Questions[1].ID, "b"); err != nil {
		t.Fatal(err)
	}

	out, err := s.Submit(t0.Add(25 * time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Answers[p.Questions[0].ID].TimeSpentSeconds; got != 10 {
		t.Fatalf("question 1 time = %d, want 10", got)
	}
	if got := out.Answers[p.Questions[1].ID].TimeSpentSeconds; got != 15 {
		t.Fatalf("question 2 time = %d, want 15", got)
	}
}
