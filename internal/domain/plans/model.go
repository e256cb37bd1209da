package plans

import "errors"

var ErrInvalidPlan = errors.New("invalid plan")

// Feature is a gated AI feature. The value doubles as the usage_records column name.
type Feature string

const (
	FeatureQuiz         Feature = "quiz"
	FeatureParaphrase   Feature = "paraphrase"
	FeatureAICheck      Feature = "ai_check"
	FeatureHumanizer    Feature = "humanizer"
	FeatureGrammarCheck Feature = "grammar_check"
	FeatureSummary      Feature = "summary"
	FeatureFlashcard    Feature = "flashcard"
	FeatureChatRequest  Feature = "chat_request"
	FeatureExamPrep     Feature = "exam_prep"
	FeatureMeme         Feature = "meme"
)

// Features lists every gated feature in a stable order.
var Features = []Feature{
	FeatureQuiz,
	FeatureParaphrase,
	FeatureAICheck,
	FeatureHumanizer,
	FeatureGrammarCheck,
	FeatureSummary,
	FeatureFlashcard,
	FeatureChatRequest,
	FeatureExamPrep,
	FeatureMeme,
}

// ParseFeature validates a feature key coming from a request path.
func ParseFeature(s string) (Feature, bool) {
	for _, f := range Features {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

const (
	PeriodMonth = "month"
	PeriodYear  = "year"
)

type Plan struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	Currency      string          `json:"currency"`
	BillingPeriod string          `json:"billing_period"`
	Limits        map[Feature]int `json:"limits"`
}
