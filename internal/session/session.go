// Package session implements the in-memory state machine for one student's
// pass through a quiz: question navigation, timing in both modes, answer
// selection and the idempotent submission guard. All methods take the
// current time explicitly so the machine stays deterministic under test.
package session

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/scoring"
)

var (
	// ErrAlreadySubmitted guards double submission.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrBackwardNavigation is returned in per-question mode, which never
	// lets a student return to an earlier question.
	ErrBackwardNavigation = errors.New("backward navigation is not allowed in per-question mode")
	ErrAtFirstQuestion    = errors.New("already at the first question")
	ErrAtLastQuestion     = errors.New("already at the last question")
	ErrQuestionNotCurrent = errors.New("question is not the current question")
)

// Outcome is what a finished session hands to the scorer.
type Outcome struct {
	Answers        map[uuid.UUID]scoring.Answer
	Status         model.AttemptStatus
	TabSwitchCount int
}

// Session tracks one in-progress attempt. It is not safe for concurrent
// use; each WebSocket connection owns its session.
type Session struct {
	questions []model.QuestionForStudent
	mode      model.TimingMode
	totalSecs int
	perQSecs  int

	startedAt     time.Time
	questionStart time.Time
	current       int

	// spentSecs accumulates the time attributed to each question. An
	// expired per-question slot records its full allotment.
	spentSecs  []int
	selections map[uuid.UUID][]string

	tabSwitches int
	finished    bool
	outcome     *Outcome
}

// New builds a session from a sanitized quiz payload. Questions are ordered
// by their order number.
func New(p *model.QuizPayload, startedAt time.Time) *Session {
	qs := make([]model.QuestionForStudent, len(p.Questions))
	copy(qs, p.Questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].OrderNum < qs[j].OrderNum })

	return &Session{
		questions:     qs,
		mode:          p.TimingMode,
		totalSecs:     p.DurationSeconds,
		perQSecs:      p.PerQuestionSeconds,
		startedAt:     startedAt,
		questionStart: startedAt,
		spentSecs:     make([]int, len(qs)),
		selections:    make(map[uuid.UUID][]string),
	}
}

// allotment is the countdown for question i in per-question mode: the
// question's own limit when set, otherwise the quiz's uniform duration.
func (s *Session) allotment(i int) int {
	if tl := s.questions[i].TimeLimitSeconds; tl != nil && *tl > 0 {
		return *tl
	}
	return s.perQSecs
}

// sync advances expired timers. In per-question mode an expired
// non-final question silently auto-advances, charging the question its
// full allotment; expiry on the final question auto-submits. In total mode
// expiry of the overall countdown auto-submits.
func (s *Session) sync(now time.Time) {
	if s.finished {
		return
	}

	switch s.mode {
	case model.TimingModePerQuestion:
		for {
			allot := s.allotment(s.current)
			deadline := s.questionStart.Add(time.Duration(allot) * time.Second)
			if now.Before(deadline) {
				return
			}
			s.spentSecs[s.current] = allot
			if s.current == len(s.questions)-1 {
				s.finish(model.AttemptStatusAutoSubmitted)
				return
			}
			s.current++
			s.questionStart = deadline
		}
	default: // TOTAL
		deadline := s.startedAt.Add(time.Duration(s.totalSecs) * time.Second)
		if !now.Before(deadline) {
			s.chargeCurrent(deadline)
			s.finish(model.AttemptStatusAutoSubmitted)
		}
	}
}

// chargeCurrent adds the time spent on the current question since it
// became current.
func (s *Session) chargeCurrent(now time.Time) {
	spent := int(now.Sub(s.questionStart) / time.Second)
	if spent > 0 {
		s.spentSecs[s.current] += spent
	}
}

func (s *Session) finish(status model.AttemptStatus) {
	answers := make(map[uuid.UUID]scoring.Answer, len(s.selections))
	for i, q := range s.questions {
		sel, ok := s.selections[q.ID]
		if !ok {
			continue
		}
		answers[q.ID] = scoring.Answer{
			SelectedOptions:  sel,
			TimeSpentSeconds: s.spentSecs[i],
		}
	}
	s.outcome = &Outcome{
		Answers:        answers,
		Status:         status,
		TabSwitchCount: s.tabSwitches,
	}
	s.finished = true
}

// CurrentIndex returns the index of the current question after advancing
// expired timers.
func (s *Session) CurrentIndex(now time.Time) int {
	s.sync(now)
	return s.current
}

// Remaining reports the seconds left on the active countdown: the whole
// quiz in total mode, the current question in per-question mode.
func (s *Session) Remaining(now time.Time) int {
	s.sync(now)
	if s.finished {
		return 0
	}
	var deadline time.Time
	if s.mode == model.TimingModePerQuestion {
		deadline = s.questionStart.Add(time.Duration(s.allotment(s.current)) * time.Second)
	} else {
		deadline = s.startedAt.Add(time.Duration(s.totalSecs) * time.Second)
	}
	left := int(deadline.Sub(now) / time.Second)
	if left < 0 {
		left = 0
	}
	return left
}

// Select records a choice on the current question. Single-choice questions
// replace the selection; multiple-choice questions toggle membership.
func (s *Session) Select(now time.Time, questionID uuid.UUID, option string) error {
	s.sync(now)
	if s.finished {
		return ErrAlreadySubmitted
	}
	q := s.questions[s.current]
	if q.ID != questionID {
		return ErrQuestionNotCurrent
	}

	if q.Type == model.QuestionTypeSingle {
		s.selections[q.ID] = []string{option}
		return nil
	}

	sel := s.selections[q.ID]
	for i, existing := range sel {
		if existing == option {
			s.selections[q.ID] = append(sel[:i], sel[i+1:]...)
			return nil
		}
	}
	s.selections[q.ID] = append(sel, option)
	return nil
}

// Next moves to the following question, attributing the elapsed time to
// the question being left.
func (s *Session) Next(now time.Time) error {
	s.sync(now)
	if s.finished {
		return ErrAlreadySubmitted
	}
	if s.current == len(s.questions)-1 {
		return ErrAtLastQuestion
	}
	s.chargeCurrent(now)
	s.current++
	s.questionStart = now
	return nil
}

// Prev moves to the preceding question. Only total mode permits it.
func (s *Session) Prev(now time.Time) error {
	s.sync(now)
	if s.finished {
		return ErrAlreadySubmitted
	}
	if s.mode == model.TimingModePerQuestion {
		return ErrBackwardNavigation
	}
	if s.current == 0 {
		return ErrAtFirstQuestion
	}
	s.chargeCurrent(now)
	s.current--
	s.questionStart = now
	return nil
}

// TabSwitches returns the visibility-change count so far.
func (s *Session) TabSwitches() int {
	return s.tabSwitches
}

// Selected returns the current selection of a question.
func (s *Session) Selected(questionID uuid.UUID) []string {
	return s.selections[questionID]
}

// TabSwitch increments the visibility-change counter. It is informational
// only and never blocks the session.
func (s *Session) TabSwitch(now time.Time) int {
	s.sync(now)
	s.tabSwitches++
	if s.outcome != nil {
		s.outcome.TabSwitchCount = s.tabSwitches
	}
	return s.tabSwitches
}

// Finished reports whether the session has concluded, advancing timers
// first so an expired session is observed as finished.
func (s *Session) Finished(now time.Time) bool {
	s.sync(now)
	return s.finished
}

// Submit concludes the session manually. A second submission, or a
// submission after the session auto-submitted, is rejected.
func (s *Session) Submit(now time.Time) (*Outcome, error) {
	s.sync(now)
	if s.finished {
		return nil, ErrAlreadySubmitted
	}
	s.chargeCurrent(now)
	s.finish(model.AttemptStatusCompleted)
	return s.outcome, nil
}

// Outcome returns the final outcome of a finished session (manual or
// auto-submitted), or nil while in progress.
func (s *Session) Outcome() *Outcome {
	return s.outcome
}
