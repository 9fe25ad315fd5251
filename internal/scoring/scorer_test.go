package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/model"
)

func question(points int, correct []string, wrong []string) model.Question {
	q := model.Question{
		ID:     uuid.New(),
		Type:   model.QuestionTypeMultiple,
		Points: points,
	}
	for _, t := range correct {
		q.Options = append(q.Options, model.Option{Text: t, IsCorrect: true})
	}
	for _, t := range wrong {
		q.Options = append(q.Options, model.Option{Text: t, IsCorrect: false})
	}
	return q
}

func TestScoreExactMatchAnyOrder(t *testing.T) {
	q := question(5, []string{"alpha", "beta"}, []string{"gamma"})

	for _, selected := range [][]string{
		{"alpha", "beta"},
		{"beta", "alpha"},
		{" beta ", "alpha"},
	} {
		res := Score([]model.Question{q}, map[uuid.UUID]Answer{
			q.ID: {SelectedOptions: selected},
		})
		if !res.Records[0].IsCorrect {
			t.Fatalf("selection %v should be correct", selected)
		}
		if res.Records[0].PointsEarned != 5 || res.Score != 5 {
			t.Fatalf("selection %v: points = %d, score = %d, want 5",
				selected, res.Records[0].PointsEarned, res.Score)
		}
	}
}

func TestScoreSubsetSupersetDisjoint(t *testing.T) {
	q := question(3, []string{"alpha", "beta"}, []string{"gamma", "delta"})

	for name, selected := range map[string][]string{
		"strict subset":   {"alpha"},
		"strict superset": {"alpha", "beta", "gamma"},
		"disjoint":        {"gamma", "delta"},
		"empty":           {},
	} {
		res := Score([]model.Question{q}, map[uuid.UUID]Answer{
			q.ID: {SelectedOptions: selected},
		})
		if res.Records[0].IsCorrect || res.Records[0].PointsEarned != 0 {
			t.Fatalf("%s %v must score zero", name, selected)
		}
	}
}

func TestScoreSingleChoiceSuperset(t *testing.T) {
	// Single-choice question with options 4 (correct) and 5.
	q := model.Question{
		ID:     uuid.New(),
		Type:   model.QuestionTypeSingle,
		Points: 1,
		Options: []model.Option{
			{Text: "4", IsCorrect: true},
			{Text: "5", IsCorrect: false},
		},
	}

	res := Score([]model.Question{q}, map[uuid.UUID]Answer{
		q.ID: {SelectedOptions: []string{"4"}},
	})
	if !res.Records[0].IsCorrect {
		t.Fatal(`answer ["4"] must be correct`)
	}

	res = Score([]model.Question{q}, map[uuid.UUID]Answer{
		q.ID: {SelectedOptions: []string{"4", "5"}},
	})
	if res.Records[0].IsCorrect {
		t.Fatal(`answer ["4","5"] is a superset and must be incorrect`)
	}
}

func TestScoreMissingAnswer(t *testing.T) {
	q1 := question(2, []string{"a"}, []string{"b"})
	q2 := question(3, []string{"x"}, []string{"y"})

	res := Score([]model.Question{q1, q2}, map[uuid.UUID]Answer{
		q1.ID: {SelectedOptions: []string{"a"}, TimeSpentSeconds: 12},
	})

	if res.Score != 2 || res.TotalScore != 5 {
		t.Fatalf("score = %d/%d, want 2/5", res.Score, res.TotalScore)
	}
	if res.Records[1].IsCorrect || res.Records[1].PointsEarned != 0 {
		t.Fatal("unanswered question must score zero")
	}
	if res.Records[1].SelectedOptions == nil || len(res.Records[1].SelectedOptions) != 0 {
		t.Fatal("unanswered question records an empty selection")
	}
	if res.Records[0].TimeSpentSeconds != 12 {
		t.Fatalf("time spent = %d, want 12", res.Records[0].TimeSpentSeconds)
	}
}

func TestScoreZeroCorrectOptionsNeverCorrect(t *testing.T) {
	// Disallowed by creation validation, but must still never score.
	q := question(4, nil, []string{"a", "b"})

	res := Score([]model.Question{q}, map[uuid.UUID]Answer{
		q.ID: {SelectedOptions: []string{}},
	})
	if res.Records[0].IsCorrect || res.Score != 0 {
		t.Fatal("a question with no correct options can never be scored correct")
	}
}

func TestScoreSumsAreConsistent(t *testing.T) {
	questions := []model.Question{
		question(1, []string{"a"}, []string{"b"}),
		question(4, []string{"c", "d"}, []string{"e"}),
		question(2, []string{"f"}, []string{"g", "h"}),
	}
	answers := map[uuid.UUID]Answer{
		questions[0].ID: {SelectedOptions: []string{"a"}},
		questions[1].ID: {SelectedOptions: []string{"d", "c"}},
		questions[2].ID: {SelectedOptions: []string{"g"}},
	}

	res := Score(questions, answers)

	sumEarned := 0
	sumPoints := 0
	for i, rec := range res.Records {
		sumEarned += rec.PointsEarned
		sumPoints += questions[i].Points
	}
	if sumEarned != res.Score {
		t.Fatalf("sum(pointsEarned) = %d, score = %d", sumEarned, res.Score)
	}
	if sumPoints != res.TotalScore {
		t.Fatalf("sum(points) = %d, totalScore = %d", sumPoints, res.TotalScore)
	}
	if res.Score < 0 || res.Score > res.TotalScore {
		t.Fatalf("score %d out of range [0, %d]", res.Score, res.TotalScore)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	questions := []model.Question{
		question(2, []string{"alpha", "beta"}, []string{"gamma"}),
		question(3, []string{"delta"}, []string{"epsilon"}),
	}
	answers := map[uuid.UUID]Answer{
		questions[0].ID: {SelectedOptions: []string{"beta", "alpha"}},
		questions[1].ID: {SelectedOptions: []string{"epsilon"}},
	}

	first := Score(questions, answers)
	for i := 0; i < 50; i++ {
		again := Score(questions, answers)
		if again.Score != first.Score || again.TotalScore != first.TotalScore {
			t.Fatal("scoring is not deterministic")
		}
		for j := range again.Records {
			if again.Records[j].IsCorrect != first.Records[j].IsCorrect ||
				again.Records[j].PointsEarned != first.Records[j].PointsEarned {
				t.Fatal("record grading is not deterministic")
			}
		}
	}
}

func TestCanonical(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{}, ""},
		{[]string{"b", "a"}, "a,b"},
		{[]string{" a ", "a", "b"}, "a,b"},
		{[]string{"", "  ", "x"}, "x"},
	}
	for _, tc := range cases {
		if got := Canonical(tc.in); got != tc.want {
			t.Fatalf("Canonical(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		score, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 10, 0},
		{10, 10, 100},
		{1, 3, 33},  // 33.33 rounds down
		{2, 3, 67},  // 66.67 rounds up
		{1, 2, 50},
		{1, 8, 13},  // 12.5 rounds half-up
	}
	for _, tc := range cases {
		if got := Percentage(tc.score, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}
