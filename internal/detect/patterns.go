// Package detect implements read-only challenge/anti-bot pattern
// classification: it classifies a page's rendered text and present selectors
// against curated pattern lists. It never attempts to solve a challenge.
package detect

import (
	"embed"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatternsFS embed.FS

// Patterns holds the curated marker lists used for classification.
type Patterns struct {
	AccessDenied        []string `yaml:"access_denied"`
	JavaScriptChallenge []string `yaml:"javascript_challenge"`
	Turnstile           []string `yaml:"turnstile"`
	TurnstileSelectors  []string `yaml:"turnstile_selectors"`
	Recaptcha           []string `yaml:"recaptcha"`
	Hcaptcha            []string `yaml:"hcaptcha"`
}

var (
	instance *Patterns
	once     sync.Once
)

// Get returns the singleton embedded Patterns instance.
func Get() *Patterns {
	once.Do(func() {
		p, err := load()
		if err != nil {
			log.Error().Err(err).Msg("detect: failed to load embedded patterns, using hardcoded fallback")
			p = fallback()
		}
		instance = p
	})
	return instance
}

func load() (*Patterns, error) {
	data, err := defaultPatternsFS.ReadFile("patterns.yaml")
	if err != nil {
		return nil, err
	}
	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func fallback() *Patterns {
	return &Patterns{
		AccessDenied:        []string{"access denied", "you have been blocked"},
		JavaScriptChallenge: []string{"just a moment", "checking your browser"},
		Turnstile:           []string{"cf-turnstile"},
	}
}

// Category names reported in a Diagnosis.
const (
	CategoryAccessDenied        = "access_denied"
	CategoryJavaScriptChallenge = "javascript_challenge"
	CategoryTurnstile           = "turnstile"
	CategoryRecaptcha           = "recaptcha"
	CategoryHcaptcha            = "hcaptcha"
)

// Diagnosis is the result of classifying a page's content.
type Diagnosis struct {
	Categories []string `json:"categories"`
	Matched    []string `json:"matched_patterns"`
}

// Blocked reports whether any challenge/anti-bot category matched.
func (d Diagnosis) Blocked() bool {
	return len(d.Categories) > 0
}

// ClassifyText scans rendered text (e.g. document.body.innerText; matching
// is case-insensitive) against every curated category and returns which ones
// matched and the literal patterns responsible.
func ClassifyText(text string) Diagnosis {
	p := Get()
	lower := strings.ToLower(text)

	var d Diagnosis
	check := func(category string, patterns []string) {
		for _, pat := range patterns {
			if pat == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(pat)) {
				d.Categories = append(d.Categories, category)
				d.Matched = append(d.Matched, pat)
				return
			}
		}
	}

	check(CategoryAccessDenied, p.AccessDenied)
	check(CategoryJavaScriptChallenge, p.JavaScriptChallenge)
	check(CategoryTurnstile, p.Turnstile)
	check(CategoryRecaptcha, p.Recaptcha)
	check(CategoryHcaptcha, p.Hcaptcha)

	return d
}

// ClassifySelectors reports whether any of the present CSS selectors
// (e.g. gathered by the caller via document.querySelectorAll enumeration)
// match the curated Turnstile selector list.
func ClassifySelectors(present []string) bool {
	p := Get()
	set := make(map[string]struct{}, len(present))
	for _, s := range present {
		set[s] = struct{}{}
	}
	for _, want := range p.TurnstileSelectors {
		if _, ok := set[want]; ok {
			return true
		}
	}
	return false
}
