// Package analyzer classifies a message's intent, scores how much profile
// signal it carries, decides document readiness and guesses seniority.
//
// The confidence score is a heuristic sum of fixed increments, not a
// probability. All keyword tables live in analyzer.yaml.
package analyzer

import (
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
	"github.com/fairyhunter13/cv-assistant/pkg/textx"
)

//go:embed analyzer.yaml
var defaultRules []byte

type ruleFile struct {
	Intents []struct {
		Intent   string   `yaml:"intent"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"intents"`
	Complexity struct {
		Senior []string `yaml:"senior"`
		Entry  []string `yaml:"entry"`
	} `yaml:"complexity"`
	Confidence Weights `yaml:"confidence"`
	Readiness  struct {
		CVThreshold     float64 `yaml:"cv_threshold"`
		LetterThreshold float64 `yaml:"letter_threshold"`
	} `yaml:"readiness"`
	Patterns struct {
		Email   string `yaml:"email"`
		UKPhone string `yaml:"uk_phone"`
	} `yaml:"patterns"`
	Keywords struct {
		Role       []string `yaml:"role"`
		Skill      []string `yaml:"skill"`
		Education  []string `yaml:"education"`
		Experience []string `yaml:"experience"`
	} `yaml:"keywords"`
}

// Weights are the confidence increments.
type Weights struct {
	Base          float64 `yaml:"base"`
	Email         float64 `yaml:"email"`
	UKPhone       float64 `yaml:"uk_phone"`
	Role          float64 `yaml:"role"`
	Skill         float64 `yaml:"skill"`
	Education     float64 `yaml:"education"`
	LengthDivisor float64 `yaml:"length_divisor"`
	LengthCap     float64 `yaml:"length_cap"`
}

type intentRule struct {
	intent   domain.Intent
	keywords []string
}

// Analysis is the outcome of analyzing one piece of text.
type Analysis struct {
	Intent     domain.Intent
	Confidence float64
	Complexity domain.Complexity
	Readiness  domain.Readiness
}

// Analyzer is immutable after construction and safe for concurrent use.
type Analyzer struct {
	intents         []intentRule
	senior          []string
	entry           []string
	weights         Weights
	cvThreshold     float64
	letterThreshold float64
	email           *regexp.Regexp
	ukPhone         *regexp.Regexp
	role            []string
	skill           []string
	education       []string
	experience      []string
}

// New builds an Analyzer from the embedded tables.
func New() *Analyzer {
	a, err := NewFromYAML(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("analyzer: embedded rules invalid: %v", err))
	}
	return a
}

// NewFromYAML builds an Analyzer from a rule table.
func NewFromYAML(b []byte) (*Analyzer, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return nil, fmt.Errorf("op=analyzer.parse: %w", err)
	}
	if len(rf.Intents) == 0 {
		return nil, fmt.Errorf("op=analyzer.parse: %w: no intents", domain.ErrInvalidArgument)
	}
	if rf.Readiness.CVThreshold <= 0 || rf.Readiness.LetterThreshold <= 0 {
		return nil, fmt.Errorf("op=analyzer.parse: %w: readiness thresholds must be positive", domain.ErrInvalidArgument)
	}
	a := &Analyzer{
		senior:          lowerAll(rf.Complexity.Senior),
		entry:           lowerAll(rf.Complexity.Entry),
		weights:         rf.Confidence,
		cvThreshold:     rf.Readiness.CVThreshold,
		letterThreshold: rf.Readiness.LetterThreshold,
		role:            lowerAll(rf.Keywords.Role),
		skill:           lowerAll(rf.Keywords.Skill),
		education:       lowerAll(rf.Keywords.Education),
		experience:      lowerAll(rf.Keywords.Experience),
	}
	for _, ir := range rf.Intents {
		a.intents = append(a.intents, intentRule{intent: domain.Intent(ir.Intent), keywords: lowerAll(ir.Keywords)})
	}
	var err error
	if a.email, err = compileOptional(rf.Patterns.Email); err != nil {
		return nil, fmt.Errorf("op=analyzer.compile email: %w", err)
	}
	if a.ukPhone, err = compileOptional(rf.Patterns.UKPhone); err != nil {
		return nil, fmt.Errorf("op=analyzer.compile uk_phone: %w", err)
	}
	return a, nil
}

// Analyze runs every classifier over text.
func (a *Analyzer) Analyze(text string) Analysis {
	conf := a.Confidence(text)
	return Analysis{
		Intent:     a.Classify(text),
		Confidence: conf,
		Complexity: a.Complexity(text),
		Readiness:  a.Readiness(text, conf),
	}
}

// Classify returns the first intent category whose keywords appear in text,
// or IntentGeneral.
func (a *Analyzer) Classify(text string) domain.Intent {
	lower := strings.ToLower(text)
	for _, ir := range a.intents {
		if textx.ContainsAnyWord(lower, ir.keywords) {
			return ir.intent
		}
	}
	return domain.IntentGeneral
}

// Confidence scores text in [Base, 1], rounded to two decimals.
func (a *Analyzer) Confidence(text string) float64 {
	w := a.weights
	lower := strings.ToLower(text)
	score := w.Base
	if a.email != nil && a.email.MatchString(text) {
		score += w.Email
	}
	if a.ukPhone != nil && a.ukPhone.MatchString(text) {
		score += w.UKPhone
	}
	if textx.ContainsAnyWord(lower, a.role) {
		score += w.Role
	}
	if textx.ContainsAnyWord(lower, a.skill) {
		score += w.Skill
	}
	if textx.ContainsAnyWord(lower, a.education) {
		score += w.Education
	}
	if w.LengthDivisor > 0 {
		score += math.Min(float64(utf8.RuneCountInString(text))/w.LengthDivisor, w.LengthCap)
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}

// Floor is the confidence of text with no signal at all.
func (a *Analyzer) Floor() float64 {
	return math.Round(a.weights.Base*100) / 100
}

// Readiness decides whether enough has been said to draft each document.
func (a *Analyzer) Readiness(text string, confidence float64) domain.Readiness {
	lower := strings.ToLower(text)
	hasExperience := textx.ContainsAnyWord(lower, a.experience)
	return domain.Readiness{
		CV:     confidence >= a.cvThreshold && hasExperience && textx.ContainsAnyWord(lower, a.skill),
		Letter: confidence >= a.letterThreshold && hasExperience,
	}
}

// Complexity checks senior markers before entry markers; anything else is mid.
func (a *Analyzer) Complexity(text string) domain.Complexity {
	lower := strings.ToLower(text)
	switch {
	case textx.ContainsAnyWord(lower, a.senior):
		return domain.ComplexitySenior
	case textx.ContainsAnyWord(lower, a.entry):
		return domain.ComplexityEntry
	default:
		return domain.ComplexityMid
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func compileOptional(p string) (*regexp.Regexp, error) {
	if p == "" {
		return nil, nil
	}
	return regexp.Compile(p)
}
