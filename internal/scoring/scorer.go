package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/model"
)

// Answer is one submitted selection for a question.
type Answer struct {
	SelectedOptions  []string
	TimeSpentSeconds int
}

// Result is the deterministic outcome of scoring one attempt.
type Result struct {
	Records    []model.AnswerRecord
	Score      int
	TotalScore int
}

// Score grades a set of submitted answers against a quiz's questions.
// It is a pure function: no side effects, reproducible bit-for-bit for the
// same inputs. Questions are graded in quiz order; an absent or empty
// selection scores zero. A question is correct iff the canonical submitted
// set equals the canonical correct set and the correct set is non-empty —
// no partial credit.
func Score(questions []model.Question, answers map[uuid.UUID]Answer) Result {
	res := Result{Records: make([]model.AnswerRecord, 0, len(questions))}

	for _, q := range questions {
		res.TotalScore += q.Points

		rec := model.AnswerRecord{QuestionID: q.ID}
		ans, ok := answers[q.ID]
		if ok {
			rec.SelectedOptions = ans.SelectedOptions
			rec.TimeSpentSeconds = ans.TimeSpentSeconds
		}
		if rec.SelectedOptions == nil {
			rec.SelectedOptions = []string{}
		}

		correct := Canonical(q.CorrectOptionTexts())
		submitted := Canonical(rec.SelectedOptions)
		if correct != "" && submitted == correct {
			rec.IsCorrect = true
			rec.PointsEarned = q.Points
			res.Score += q.Points
		}

		res.Records = append(res.Records, rec)
	}

	return res
}

// Canonical builds the order-independent representation of an option set:
// trimmed, deduplicated, sorted and comma-joined. The empty set canonicalizes
// to the empty string.
func Canonical(texts []string) string {
	set := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// Percentage converts a score pair into a whole percentage, rounding
// half-up. A zero total yields zero.
func Percentage(score, totalScore int) int {
	if totalScore <= 0 {
		return 0
	}
	return int(math.Floor(float64(score)/float64(totalScore)*100 + 0.5))
}
