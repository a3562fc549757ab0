// Package composer turns an analysis of the conversation into a reply from
// per-language template bundles.
package composer

import (
	_ "embed"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

//go:embed templates.yaml
var defaultTemplates []byte

const defaultVariant = "default"

// Conversation styles reported alongside each reply.
const (
	StyleEncouraging  = "encouraging"
	StyleProfessional = "professional"
	StyleExecutive    = "executive"
)

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand returns a time-seeded Picker that is safe for concurrent use.
func NewLockedRand() Picker {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))} //nolint:gosec
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// Bundle is the set of strings for one language.
type Bundle struct {
	Greeting       string                       `yaml:"greeting"`
	Intents        map[string]map[string]string `yaml:"intents"`
	Ready          map[string]string            `yaml:"ready"`
	InsightsHeader string                       `yaml:"insights_header"`
	Closings       []string                     `yaml:"closings"`
	FollowUps      map[string][]string          `yaml:"follow_ups"`
	Placeholders   map[string]string            `yaml:"placeholders"`
}

type templateFile struct {
	Aliases map[string]string  `yaml:"aliases"`
	Bundles map[string]*Bundle `yaml:"bundles"`
}

// Input is everything the composer needs for one reply.
type Input struct {
	Language   string
	Intent     domain.Intent
	Complexity domain.Complexity
	Readiness  domain.Readiness
	Data       domain.ExtractedData
	Insights   []string
	// Empty marks a turn with no user text; the reply is the greeting menu.
	Empty bool
}

// Output is a composed reply.
type Output struct {
	Content   string
	FollowUps []string
	Style     string
}

// Composer is safe for concurrent use when its Picker is.
type Composer struct {
	bundles map[string]*Bundle
	aliases map[string]string
	picker  Picker
}

// New builds a Composer from the embedded bundles. A nil picker gets a
// time-seeded one.
func New(p Picker) *Composer {
	c, err := NewFromYAML(defaultTemplates, p)
	if err != nil {
		panic(fmt.Sprintf("composer: embedded templates invalid: %v", err))
	}
	return c
}

// NewFromYAML builds a Composer from a template file. The file must carry an
// "en" bundle since every unknown language falls back to it.
func NewFromYAML(b []byte, p Picker) (*Composer, error) {
	var tf templateFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return nil, fmt.Errorf("op=composer.parse: %w", err)
	}
	en, ok := tf.Bundles["en"]
	if !ok || en == nil {
		return nil, fmt.Errorf("op=composer.parse: %w: missing en bundle", domain.ErrInvalidArgument)
	}
	for lang, bd := range tf.Bundles {
		if bd == nil || len(bd.Closings) == 0 {
			return nil, fmt.Errorf("op=composer.parse: %w: bundle %s has no closings", domain.ErrInvalidArgument, lang)
		}
	}
	if p == nil {
		p = NewLockedRand()
	}
	return &Composer{bundles: tf.Bundles, aliases: tf.Aliases, picker: p}, nil
}

// BundleFor resolves lang through the alias table and falls back to English.
func (c *Composer) BundleFor(lang string) (string, *Bundle) {
	lang = strings.ToLower(lang)
	if target, ok := c.aliases[lang]; ok {
		lang = target
	}
	if b, ok := c.bundles[lang]; ok {
		return lang, b
	}
	return "en", c.bundles["en"]
}

// StyleFor maps seniority to the reported conversation style.
func StyleFor(cx domain.Complexity) string {
	switch cx {
	case domain.ComplexityEntry:
		return StyleEncouraging
	case domain.ComplexitySenior:
		return StyleExecutive
	default:
		return StyleProfessional
	}
}

// Compose renders the reply. Content is the body, any readiness lines, any
// insights and one closing question chosen by the picker.
func (c *Composer) Compose(in Input) Output {
	_, b := c.BundleFor(in.Language)
	out := Output{Style: StyleFor(in.Complexity)}

	if in.Empty {
		out.Content = b.Greeting
		out.FollowUps = c.followUps(b, domain.IntentGeneral)
		return out
	}

	r := b.replacer(in.Data, in.Intent == domain.IntentLetter)
	parts := []string{r.Replace(b.body(in.Intent, in.Complexity))}
	if in.Readiness.CV {
		if s := b.Ready["cv"]; s != "" {
			parts = append(parts, s)
		}
	}
	if in.Readiness.Letter {
		if s := b.Ready["letter"]; s != "" {
			parts = append(parts, s)
		}
	}
	if len(in.Insights) > 0 {
		var sb strings.Builder
		sb.WriteString(b.InsightsHeader)
		for _, ins := range in.Insights {
			sb.WriteString("\n- ")
			sb.WriteString(ins)
		}
		parts = append(parts, sb.String())
	}
	parts = append(parts, b.Closings[c.picker.Intn(len(b.Closings))])

	out.Content = strings.Join(parts, "\n\n")
	out.FollowUps = c.followUps(b, in.Intent)
	return out
}

// Closings returns the closing questions of the bundle lang resolves to.
func (c *Composer) Closings(lang string) []string {
	_, b := c.BundleFor(lang)
	return append([]string(nil), b.Closings...)
}

func (c *Composer) followUps(b *Bundle, intent domain.Intent) []string {
	if f, ok := b.FollowUps[string(intent)]; ok {
		return append([]string(nil), f...)
	}
	return append([]string(nil), b.FollowUps[string(domain.IntentGeneral)]...)
}

func (b *Bundle) body(intent domain.Intent, cx domain.Complexity) string {
	variants, ok := b.Intents[string(intent)]
	if !ok {
		variants = b.Intents[string(domain.IntentGeneral)]
	}
	if s, ok := variants[string(cx)]; ok {
		return s
	}
	if s, ok := variants[defaultVariant]; ok {
		return s
	}
	// cv has no default; mid is its neutral variant
	return variants[string(domain.ComplexityMid)]
}

// replacer fills placeholders from the profile. Letter recipient details win
// over work history only when preferLetter is set or history is missing.
// An empty name placeholder removes ", {name}" from the sentence.
func (b *Bundle) replacer(d domain.ExtractedData, preferLetter bool) *strings.Replacer {
	ph := b.Placeholders
	name, company, position, skills, years := ph["name"], ph["company"], ph["position"], ph["skills"], ph["years"]

	if d.CV != nil {
		if d.CV.Personal != nil && d.CV.Personal.FirstName != "" {
			name = d.CV.Personal.FirstName
		}
		if len(d.CV.Experience) > 0 {
			e := d.CV.Experience[0]
			if e.Company != "" {
				company = e.Company
			}
			if e.Position != "" {
				position = e.Position
			}
			if e.Years > 0 {
				years = strconv.Itoa(e.Years)
			}
		}
		if len(d.CV.Skills) > 0 {
			n := len(d.CV.Skills)
			if n > 3 {
				n = 3
			}
			skills = strings.Join(d.CV.Skills[:n], ", ")
		}
	}
	if d.Letter != nil {
		if name == ph["name"] && d.Letter.SenderInfo != nil && d.Letter.SenderInfo.FirstName != "" {
			name = d.Letter.SenderInfo.FirstName
		}
		if ri := d.Letter.RecipientInfo; ri != nil {
			if ri.Company != "" && (preferLetter || company == ph["company"]) {
				company = ri.Company
			}
			if ri.Position != "" && (preferLetter || position == ph["position"]) {
				position = ri.Position
			}
		}
	}
	pairs := []string{}
	if name == "" {
		// unknown name: drop the vocative clause with its comma
		pairs = append(pairs, ", {name}", "")
	}
	return strings.NewReplacer(append(pairs,
		"{name}", name,
		"{company}", company,
		"{position}", position,
		"{skills}", skills,
		"{years}", years,
	)...)
}
