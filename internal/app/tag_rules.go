// internal/app/tag_rules.go
package app

import (
	"regexp"
	"strings"
)

// tagRule classifies generated text. Rules are evaluated in order and the first match wins.
type tagRule struct {
	tag   string
	match func(text string) bool
}

const defaultTag = "default"

func contains(sub string) func(string) bool {
	return func(text string) bool { return strings.Contains(text, sub) }
}

func containsAll(subs ...string) func(string) bool {
	return func(text string) bool {
		for _, s := range subs {
			if !strings.Contains(text, s) {
				return false
			}
		}
		return true
	}
}

// openerRules classify the opening style of the personal insight.
var openerRules = []tagRule{
	{tag: "question", match: contains("?")},
	{tag: "observation", match: contains("does something unusual")},
	{tag: "challenge", match: containsAll("Most", "You're ready")},
	{tag: "discovery", match: contains("revelation")},
	{tag: "direct", match: contains("Time to upgrade")},
}

// subjectRules classify the subject line pattern.
var subjectRules = []tagRule{
	{tag: "action_strength", match: contains("your")},
	{tag: "outcome_strength", match: contains("with")},
	{tag: "name_benefit", match: contains(",")},
	{tag: "question", match: contains("?")},
}

var capitalisedWord = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

func classify(rules []tagRule, text, fallback string) string {
	for _, r := range rules {
		if r.match(text) {
			return r.tag
		}
	}
	return fallback
}

// OpenerTag returns the opener style of a personal insight.
func OpenerTag(personalInsight string) string {
	return classify(openerRules, personalInsight, defaultTag)
}

// SubjectTag returns the pattern of a subject line.
func SubjectTag(subjectLine string) string {
	return classify(subjectRules, subjectLine, defaultTag)
}

// PersonalTipTag returns the theme of a personal insight: its first capitalised word.
func PersonalTipTag(personalInsight string) string {
	if m := capitalisedWord.FindString(personalInsight); m != "" {
		return m
	}
	return "general"
}
