package domain

import "fmt"

// Lift and review type values rendered by the journal front end. Other strings are accepted.
const (
	LiftBench    = "卧推"
	LiftSquat    = "深蹲"
	LiftDeadlift = "硬拉"

	ReviewTypeSupplement = "补剂"
	ReviewTypeTool       = "工具"
)

// MaxReviewScore bounds Review.Score.
const MaxReviewScore = 5

// PRRecord is a single personal-record entry.
type PRRecord struct {
	ID       int     `json:"id"`
	Date     string  `json:"date"`
	Lift     string  `json:"lift"`
	Weight   float64 `json:"weight"`
	Reps     int     `json:"reps"`
	Freq     string  `json:"freq"`
	Recovery string  `json:"recovery"`
}

// Review is a supplement or tool review.
type Review struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	Note  string  `json:"note"`
}

// Challenge holds the shared goal and how many visitors joined it.
type Challenge struct {
	GoalText     string `json:"goalText"`
	Participants int    `json:"participants"`
}

// Database is the whole persisted document.
type Database struct {
	PRs       []PRRecord `json:"prs"`
	Reviews   []Review   `json:"reviews"`
	Challenge Challenge  `json:"challenge"`
}

// Normalize replaces absent collections with empty ones so they serialise as [] rather than null.
func (db *Database) Normalize() {
	if db.PRs == nil {
		db.PRs = []PRRecord{}
	}
	if db.Reviews == nil {
		db.Reviews = []Review{}
	}
}

// Validate checks the document invariants: unique ids per collection, scores within range and a
// non-negative participant count.
func (db Database) Validate() error {
	seen := make(map[int]struct{}, len(db.PRs))
	for _, pr := range db.PRs {
		if _, dup := seen[pr.ID]; dup {
			return fmt.Errorf("duplicate pr id %d", pr.ID)
		}
		seen[pr.ID] = struct{}{}
	}

	seen = make(map[int]struct{}, len(db.Reviews))
	for _, review := range db.Reviews {
		if _, dup := seen[review.ID]; dup {
			return fmt.Errorf("duplicate review id %d", review.ID)
		}
		seen[review.ID] = struct{}{}
		if review.Score < 0 || review.Score > MaxReviewScore {
			return fmt.Errorf("review %d score %v outside [0,%d]", review.ID, review.Score, MaxReviewScore)
		}
	}

	if db.Challenge.Participants < 0 {
		return fmt.Errorf("challenge participants %d is negative", db.Challenge.Participants)
	}
	return nil
}

// NewDatabase returns an empty document for the given goal, as written by the seed command.
func NewDatabase(goalText string) Database {
	return Database{
		PRs:       []PRRecord{},
		Reviews:   []Review{},
		Challenge: Challenge{GoalText: goalText},
	}
}
