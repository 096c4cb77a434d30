// Package matching decides whether a worker registration applies to a target site.
package matching

import (
	"fmt"
	"regexp"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/message"
)

type ruleKind int

const (
	ruleAll ruleKind = iota
	ruleSite
	ruleRegex
	ruleCustom
)

// Predicate is a caller-supplied site test for Custom rules.
type Predicate func(message.TargetSite) bool

// Rule is an administrative filter attached to a worker registration. The
// zero value matches everything. Rules are immutable once built.
type Rule struct {
	kind      ruleKind
	site      message.SiteType
	pattern   *regexp.Regexp
	predicate Predicate
	label     string
}

// All matches every site.
func All() Rule {
	return Rule{kind: ruleAll}
}

// Worker matches sites of type Worker with the given name.
func Worker(name string) Rule { return siteRule(message.WorkerSite(name)) }

// Bot matches sites of type Bot with the given name.
func Bot(name string) Rule { return siteRule(message.BotSite(name)) }

// Group matches sites of type Group with the given name.
func Group(name string) Rule { return siteRule(message.GroupSite(name)) }

// User matches sites of type User with the given name.
func User(name string) Rule { return siteRule(message.UserSite(name)) }

// Channel matches sites of type Channel with the given name.
func Channel(name string) Rule { return siteRule(message.ChannelSite(name)) }

func siteRule(st message.SiteType) Rule {
	return Rule{kind: ruleSite, site: st}
}

// Regex matches sites whose SiteID contains a match for pattern. The search
// is unanchored; use ^ and $ in the pattern for whole-ID matches.
func Regex(pattern string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, errors.Regex(err, "matching", "Regex", fmt.Sprintf("compile pattern %q", pattern))
	}
	return Rule{kind: ruleRegex, pattern: re}, nil
}

// MustRegex is like Regex but panics on an invalid pattern.
func MustRegex(pattern string) Rule {
	r, err := Regex(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Custom matches sites accepted by fn. label names the rule in logs.
func Custom(label string, fn Predicate) Rule {
	if fn == nil {
		fn = func(message.TargetSite) bool { return false }
	}
	return Rule{kind: ruleCustom, predicate: fn, label: label}
}

// Matches reports whether the rule accepts ts.
func (r Rule) Matches(ts message.TargetSite) bool {
	switch r.kind {
	case ruleAll:
		return true
	case ruleSite:
		return ts.SiteType.Kind == r.site.Kind && ts.SiteType.Name == r.site.Name
	case ruleRegex:
		return r.pattern.MatchString(ts.SiteID)
	case ruleCustom:
		return r.predicate(ts)
	default:
		return false
	}
}

// MatchesAny reports whether the rule accepts at least one of sites.
func (r Rule) MatchesAny(sites []message.TargetSite) bool {
	for _, ts := range sites {
		if r.Matches(ts) {
			return true
		}
	}
	return false
}

// String renders the rule for logs and admin listings.
func (r Rule) String() string {
	switch r.kind {
	case ruleAll:
		return "all"
	case ruleSite:
		return r.site.String()
	case ruleRegex:
		return "regex:" + r.pattern.String()
	case ruleCustom:
		if r.label == "" {
			return "custom"
		}
		return "custom:" + r.label
	default:
		return "unknown"
	}
}
