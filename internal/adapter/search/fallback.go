package search

import (
	"strings"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

var fallbackInsights = map[domain.Intent][]string{
	domain.IntentSalary: {
		"Salary bands vary widely by region and company size; compare at least three sources before negotiating.",
		"Employers often have 10-20% flexibility above the first offer for experienced candidates.",
	},
	domain.IntentInterview: {
		"Structured STAR answers (Situation, Task, Action, Result) are the format most interviewers expect.",
		"Preparing two or three questions about the team and its goals signals genuine interest.",
	},
	domain.IntentCareerAdvice: {
		"Transferable skills such as communication and project delivery are the most cited hiring criteria across industries.",
		"Many career changes start with a short course or side project that proves the new skill set.",
	},
	domain.IntentSkills: {
		"Postings that list a skill as required usually expect evidence of it in a recent role or project.",
		"Pairing each listed skill with a concrete outcome makes it easier for recruiters to verify.",
	},
}

var defaultFallback = []string{
	"Tailoring each application to the job description noticeably improves response rates.",
}

// Fallback returns the fixed insights used when a live lookup is unavailable.
func Fallback(intent domain.Intent) []string {
	src, ok := fallbackInsights[intent]
	if !ok {
		src = defaultFallback
	}
	return append([]string(nil), src...)
}

// Wants reports whether intent benefits from a web lookup.
func Wants(intent domain.Intent) bool {
	_, ok := fallbackInsights[intent]
	return ok
}

// QueryFor builds a search query for intent, anchored on the position when
// one is known.
func QueryFor(intent domain.Intent, position string) string {
	position = strings.TrimSpace(position)
	if position == "" {
		position = "professional"
	}
	switch intent {
	case domain.IntentSalary:
		return position + " salary range"
	case domain.IntentInterview:
		return position + " interview questions"
	case domain.IntentCareerAdvice:
		return position + " career path skills in demand"
	case domain.IntentSkills:
		return position + " most in-demand skills"
	default:
		return position + " job market"
	}
}

// Wants reports whether intent benefits from a web lookup.
func (d *DuckDuckGo) Wants(intent domain.Intent) bool { return Wants(intent) }

// QueryFor builds the lookup query for intent.
func (d *DuckDuckGo) QueryFor(intent domain.Intent, position string) string {
	return QueryFor(intent, position)
}
