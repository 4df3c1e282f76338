package services

import (
	"theory-gamification-system/models"
)

// ChallengeTypeConfig bounds the requirement range and reward weighting for one
// challenge variant. Requirement values are interpolated within (Min,Max) by
// difficulty and clamped back to the range after shrink/grow adjustments.
type ChallengeTypeConfig struct {
	Type           models.ChallengeType
	MinRequirement int64
	MaxRequirement int64
	BaseXP         int64
	CategoryWeight float64 // reward multiplier for the effort this type demands
	Unit           string  // what the requirement counts
}

var ChallengeTypeConfigs = map[models.ChallengeType]ChallengeTypeConfig{
	models.ChallengeQuiz: {
		Type:           models.ChallengeQuiz,
		MinRequirement: 1, MaxRequirement: 5,
		BaseXP: 50, CategoryWeight: 1.0, Unit: "quizzes",
	},
	models.ChallengeCategoryFocus: {
		Type:           models.ChallengeCategoryFocus,
		MinRequirement: 10, MaxRequirement: 40,
		BaseXP: 60, CategoryWeight: 1.2, Unit: "questions",
	},
	models.ChallengeAccuracy: {
		Type:           models.ChallengeAccuracy,
		MinRequirement: 70, MaxRequirement: 95,
		BaseXP: 70, CategoryWeight: 1.3, Unit: "percent",
	},
	models.ChallengePerfectScore: {
		Type:           models.ChallengePerfectScore,
		MinRequirement: 1, MaxRequirement: 3,
		BaseXP: 90, CategoryWeight: 1.5, Unit: "perfect quizzes",
	},
	models.ChallengeSpeedRun: {
		Type:           models.ChallengeSpeedRun,
		MinRequirement: 10, MaxRequirement: 30,
		BaseXP: 60, CategoryWeight: 1.1, Unit: "questions",
	},
}

// fallbackTier is one bucket of the non-personalized heuristic used when the
// skill signal is missing or too thin. It must produce a valid challenge with
// zero signal.
type fallbackTier struct {
	MaxQuestions  int64 // exclusive upper bound on total answered; -1 = open
	Types         []models.ChallengeType
	MinDifficulty float64
	MaxDifficulty float64
}

var fallbackTiers = []fallbackTier{
	// new: fewer than 50 questions answered
	{MaxQuestions: 50, Types: []models.ChallengeType{models.ChallengeQuiz}, MinDifficulty: 0.2, MaxDifficulty: 0.35},
	// developing: 50-200
	{MaxQuestions: 200, Types: []models.ChallengeType{models.ChallengeQuiz, models.ChallengeAccuracy}, MinDifficulty: 0.35, MaxDifficulty: 0.55},
	// experienced: more than 200
	{MaxQuestions: -1, Types: []models.ChallengeType{models.ChallengeAccuracy, models.ChallengePerfectScore, models.ChallengeSpeedRun}, MinDifficulty: 0.55, MaxDifficulty: 0.8},
}

func tierFor(totalQuestions int64) fallbackTier {
	for _, t := range fallbackTiers {
		if t.MaxQuestions < 0 || totalQuestions < t.MaxQuestions {
			return t
		}
	}
	return fallbackTiers[len(fallbackTiers)-1]
}
