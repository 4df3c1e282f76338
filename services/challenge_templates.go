package services

import (
	"fmt"
	"math/rand"
	"strings"

	"theory-gamification-system/models"

	"github.com/gosimple/slug"
)

// challengeTemplate renders title/description text for one challenge type.
// Purely cosmetic: a variant is picked at random per generation, engine
// semantics never depend on the wording.
type challengeTemplate struct {
	Titles       []string
	Descriptions []string // %d = requirement, %s = category (where present)
}

var challengeTemplates = map[models.ChallengeType]challengeTemplate{
	models.ChallengeQuiz: {
		Titles: []string{"Daily Drill", "Practice Makes Perfect", "Quiz Time"},
		Descriptions: []string{
			"Complete %d practice quizzes today",
			"Finish %d quizzes before midnight",
		},
	},
	models.ChallengeCategoryFocus: {
		Titles: []string{"Target Training: %s", "Focus Session: %s"},
		Descriptions: []string{
			"Answer %d questions in the %s category",
			"Work through %d %s questions today",
		},
	},
	models.ChallengeAccuracy: {
		Titles: []string{"Precision Run", "Accuracy Check"},
		Descriptions: []string{
			"Finish a quiz with at least %d%% accuracy",
			"Hit %d%% or better on any quiz today",
		},
	},
	models.ChallengePerfectScore: {
		Titles: []string{"Perfection", "No Mistakes Allowed"},
		Descriptions: []string{
			"Score 100%% on %d quiz(zes) today",
			"Get %d flawless quiz result(s)",
		},
	},
	models.ChallengeSpeedRun: {
		Titles: []string{"Against the Clock", "Quick Thinking"},
		Descriptions: []string{
			"Answer %d questions in timed mode",
			"Race through %d questions today",
		},
	},
}

// renderChallengeText picks a phrasing variant and fills in the numbers.
func renderChallengeText(ct models.ChallengeType, requirement int64, category string) (title, description string) {
	tpl, ok := challengeTemplates[ct]
	if !ok || len(tpl.Titles) == 0 {
		return string(ct), fmt.Sprintf("Reach %d today", requirement)
	}
	title = tpl.Titles[rand.Intn(len(tpl.Titles))]
	description = tpl.Descriptions[rand.Intn(len(tpl.Descriptions))]

	pretty := prettyCategory(category)
	if strings.Contains(title, "%s") {
		title = fmt.Sprintf(title, pretty)
	}
	if strings.Count(description, "%") > 0 {
		if strings.Contains(description, "%s") {
			description = fmt.Sprintf(description, requirement, pretty)
		} else {
			description = fmt.Sprintf(description, requirement)
		}
	}
	return title, description
}

func prettyCategory(category string) string {
	if category == "" {
		return "general"
	}
	return strings.ReplaceAll(slug.Make(category), "-", " ")
}
