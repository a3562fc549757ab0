// Package extractor pulls structured profile fields out of free text with a
// table of regular expressions. Matches are single-shot and the first rule
// that yields a field wins. A miss leaves the field unset; it is never an error.
package extractor

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

//go:embed rules.yaml
var defaultRules []byte

type ruleFile struct {
	ListSeparator  string     `yaml:"list_separator"`
	MaxSkillLen    int        `yaml:"max_skill_len"`
	MaxSkills      int        `yaml:"max_skills"`
	MinPhoneDigits int        `yaml:"min_phone_digits"`
	Rules          []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

type rule struct {
	name string
	re   *regexp.Regexp
}

// Extractor is immutable after construction and safe for concurrent use.
type Extractor struct {
	rules          []rule
	separator      *regexp.Regexp
	maxSkillLen    int
	maxSkills      int
	minPhoneDigits int
}

// New builds an Extractor from the embedded rule table.
func New() *Extractor {
	e, err := NewFromYAML(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("extractor: embedded rules invalid: %v", err))
	}
	return e
}

// NewFromYAML builds an Extractor from a rule table.
func NewFromYAML(b []byte) (*Extractor, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return nil, fmt.Errorf("op=extractor.parse: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("op=extractor.parse: %w: no rules", domain.ErrInvalidArgument)
	}
	e := &Extractor{
		maxSkillLen:    rf.MaxSkillLen,
		maxSkills:      rf.MaxSkills,
		minPhoneDigits: rf.MinPhoneDigits,
	}
	if e.maxSkillLen <= 0 {
		e.maxSkillLen = 40
	}
	if e.maxSkills <= 0 {
		e.maxSkills = 15
	}
	if e.minPhoneDigits <= 0 {
		e.minPhoneDigits = 10
	}
	sep := rf.ListSeparator
	if sep == "" {
		sep = `\s*,\s*`
	}
	re, err := regexp.Compile(sep)
	if err != nil {
		return nil, fmt.Errorf("op=extractor.compile list_separator: %w", err)
	}
	e.separator = re
	for _, rs := range rf.Rules {
		re, err := regexp.Compile(rs.Pattern)
		if err != nil {
			return nil, fmt.Errorf("op=extractor.compile %s: %w", rs.Name, err)
		}
		e.rules = append(e.rules, rule{name: rs.Name, re: re})
	}
	return e, nil
}

// Extract returns the partial profile found in text. Fields that no rule
// matched are simply absent.
func (e *Extractor) Extract(text string) domain.ExtractedData {
	f := e.fields(text)
	var out domain.ExtractedData

	personal := domain.PersonalInfo{
		FirstName: f["first"],
		LastName:  f["last"],
		Email:     f["email"],
		Phone:     f["phone"],
	}
	hasPersonal := personal != (domain.PersonalInfo{})

	var cv domain.CVData
	hasCV := false
	if hasPersonal {
		p := personal
		cv.Personal = &p
		hasCV = true
	}
	if f["company"] != "" || f["position"] != "" || f["years"] != "" {
		years, _ := strconv.Atoi(f["years"])
		cv.Experience = []domain.Experience{{Company: f["company"], Position: f["position"], Years: years}}
		hasCV = true
	}
	if skills := e.splitList(f["skills"]); len(skills) > 0 {
		cv.Skills = skills
		hasCV = true
	}
	if f["degree"] != "" || f["field"] != "" || f["institution"] != "" {
		cv.Education = []domain.Education{{Degree: f["degree"], Field: f["field"], Institution: f["institution"]}}
		hasCV = true
	}
	if hasCV {
		out.CV = &cv
	}

	var letter domain.LetterData
	hasLetter := false
	if hasPersonal {
		p := personal
		letter.SenderInfo = &p
		hasLetter = true
	}
	if f["target_position"] != "" || f["target_company"] != "" || f["recipient"] != "" {
		letter.RecipientInfo = &domain.RecipientInfo{
			Name:     f["recipient"],
			Company:  f["target_company"],
			Position: f["target_position"],
		}
		hasLetter = true
	}
	if hasLetter {
		out.Letter = &letter
	}
	return out
}

func (e *Extractor) fields(text string) map[string]string {
	found := make(map[string]string)
	if strings.TrimSpace(text) == "" {
		return found
	}
	for _, r := range e.rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for i, name := range r.re.SubexpNames() {
			if name == "" || i >= len(m) {
				continue
			}
			v := strings.TrimSpace(m[i])
			if v == "" || found[name] != "" {
				continue
			}
			if name == "phone" && countDigits(v) < e.minPhoneDigits {
				continue
			}
			found[name] = v
		}
	}
	return found
}

func (e *Extractor) splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := e.separator.Split(s, -1)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimFunc(p, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsPunct(r) })
		if p == "" || len([]rune(p)) > e.maxSkillLen {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
		if len(out) == e.maxSkills {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
