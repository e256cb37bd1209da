package usage

import (
	"errors"
	"time"

	"learningly/config"
	"learningly/internal/domain/plans"
)

var (
	ErrUnknownFeature = errors.New("unknown feature")
	ErrQuotaExhausted = errors.New("usage quota exhausted")
	ErrNoRecord       = errors.New("usage record not found")
)

const tableName = "usage_records"

// Record is the per-user usage row, one remaining-count column per feature.
type Record struct {
	UserID uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`

	Quiz         int `gorm:"column:quiz;not null" json:"quiz"`
	Paraphrase   int `gorm:"column:paraphrase;not null" json:"paraphrase"`
	AICheck      int `gorm:"column:ai_check;not null" json:"ai_check"`
	Humanizer    int `gorm:"column:humanizer;not null" json:"humanizer"`
	GrammarCheck int `gorm:"column:grammar_check;not null" json:"grammar_check"`
	Summary      int `gorm:"column:summary;not null" json:"summary"`
	Flashcard    int `gorm:"column:flashcard;not null" json:"flashcard"`
	ChatRequest  int `gorm:"column:chat_request;not null" json:"chat_request"`
	ExamPrep     int `gorm:"column:exam_prep;not null" json:"exam_prep"`
	Meme         int `gorm:"column:meme;not null" json:"meme"`

	Premium           bool       `gorm:"not null" json:"premium"`
	PlanID            *string    `gorm:"column:plan_id" json:"plan_id"`
	SubscribedAt      *time.Time `gorm:"column:subscribed_at" json:"subscribed_at"`
	LastResetAt       time.Time  `gorm:"column:last_reset_at;not null;index" json:"last_reset_at"`
	LastPaymentIntent *string    `gorm:"column:last_payment_intent" json:"last_payment_intent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Record) TableName() string { return tableName }

// Settings controls the free baseline and how often counters refill.
type Settings struct {
	Baseline int
	Interval time.Duration
}

func (r *Record) counter(f plans.Feature) *int {
	switch f {
	case plans.FeatureQuiz:
		return &r.Quiz
	case plans.FeatureParaphrase:
		return &r.Paraphrase
	case plans.FeatureAICheck:
		return &r.AICheck
	case plans.FeatureHumanizer:
		return &r.Humanizer
	case plans.FeatureGrammarCheck:
		return &r.GrammarCheck
	case plans.FeatureSummary:
		return &r.Summary
	case plans.FeatureFlashcard:
		return &r.Flashcard
	case plans.FeatureChatRequest:
		return &r.ChatRequest
	case plans.FeatureExamPrep:
		return &r.ExamPrep
	case plans.FeatureMeme:
		return &r.Meme
	}
	return nil
}

// Remaining returns the counter for f, or 0 for unknown features.
func (r Record) Remaining(f plans.Feature) int {
	if p := r.counter(f); p != nil {
		return *p
	}
	return 0
}

// Counters returns every feature counter keyed by feature.
func (r Record) Counters() map[plans.Feature]int {
	out := make(map[plans.Feature]int, len(plans.Features))
	for _, f := range plans.Features {
		out[f] = r.Remaining(f)
	}
	return out
}

func (r *Record) setAll(n int) {
	for _, f := range plans.Features {
		*r.counter(f) = n
	}
}

// column maps a feature to its SQL column. Only whitelisted names ever reach a query.
func column(f plans.Feature) (string, error) {
	if _, ok := plans.ParseFeature(string(f)); !ok {
		return "", ErrUnknownFeature
	}
	return string(f), nil
}

// ConfiguredSettings reads the quota settings loaded by config.LoadEnv.
func ConfiguredSettings() Settings {
	return Settings{
		Baseline: config.DEFAULT_FEATURE_QUOTA,
		Interval: config.RESET_INTERVAL,
	}
}
