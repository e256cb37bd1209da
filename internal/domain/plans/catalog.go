package plans

import "strings"

// Catalog is the set of purchasable plans. Changing it requires a redeploy.
var Catalog = []Plan{
	{
		ID:            "basic_monthly",
		ProductID:     "prod_learningly_basic",
		Name:          "Basic",
		Price:         4.99,
		Currency:      "usd",
		BillingPeriod: PeriodMonth,
		Limits: map[Feature]int{
			FeatureQuiz:         50,
			FeatureParaphrase:   50,
			FeatureAICheck:      30,
			FeatureHumanizer:    30,
			FeatureGrammarCheck: 100,
			FeatureSummary:      50,
			FeatureFlashcard:    50,
			FeatureChatRequest:  200,
			FeatureExamPrep:     20,
			FeatureMeme:         20,
		},
	},
	{
		ID:            "pro_monthly",
		ProductID:     "prod_learningly_pro",
		Name:          "Pro",
		Price:         9.99,
		Currency:      "usd",
		BillingPeriod: PeriodMonth,
		Limits: map[Feature]int{
			FeatureQuiz:         150,
			FeatureParaphrase:   150,
			FeatureAICheck:      100,
			FeatureHumanizer:    100,
			FeatureGrammarCheck: 300,
			FeatureSummary:      150,
			FeatureFlashcard:    150,
			FeatureChatRequest:  600,
			FeatureExamPrep:     60,
			FeatureMeme:         60,
		},
	},
	{
		ID:            "pro_yearly",
		ProductID:     "prod_learningly_pro",
		Name:          "Pro (yearly)",
		Price:         79.99,
		Currency:      "usd",
		BillingPeriod: PeriodYear,
		Limits: map[Feature]int{
			FeatureQuiz:         1800,
			FeatureParaphrase:   1800,
			FeatureAICheck:      1200,
			FeatureHumanizer:    1200,
			FeatureGrammarCheck: 3600,
			FeatureSummary:      1800,
			FeatureFlashcard:    1800,
			FeatureChatRequest:  7200,
			FeatureExamPrep:     720,
			FeatureMeme:         720,
		},
	},
}

// Lookup returns the catalog plan with the given id.
func Lookup(id string) (*Plan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidPlan
	}
	for i := range Catalog {
		if Catalog[i].ID == id {
			return &Catalog[i], nil
		}
	}
	return nil, ErrInvalidPlan
}
