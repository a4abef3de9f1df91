package mdmx

import (
	"strings"
)

// InputMarker prefixes image destinations that become text inputs.
const InputMarker = "@input"

// DefaultVerb is used by destinations that name a path but no verb.
const DefaultVerb = "post"

// defaultInputName is used when neither the destination nor the label names the input.
const defaultInputName = "input"

// Verbs lists the recognised HTTP verbs in canonical form.
var Verbs = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// LookupVerb returns the lowercase verb for token, normalising case.
// Returns ok=false if token is not a recognised verb.
func LookupVerb(token string) (string, bool) {
	for _, v := range Verbs {
		if strings.EqualFold(token, v) {
			return strings.ToLower(v), true
		}
	}
	return "", false
}

// MatchFunc inspects a target and reports the directive it implies.
type MatchFunc func(t Target) (Directive, bool)

// Rule is one entry of the classification grammar.
type Rule struct {
	Name        string   // stable identifier, shown by explain
	Kind        NodeKind // node kind the rule applies to
	Example     string   // author-facing example
	Description string
	Match       MatchFunc
}

// Image rules.
var (
	RuleImageInput = Rule{
		Name:        "image-input",
		Kind:        KindImage,
		Example:     `![alt](@input:name "trigger")`,
		Description: "text input named after the marker, alt as placeholder",
		Match:       matchImageInput,
	}
)

// Link rules.
var (
	RuleEmptyTarget = Rule{
		Name:        "empty-target",
		Kind:        KindLink,
		Example:     `[label]() or [label](#)`,
		Description: "text input named after the label",
		Match:       matchEmptyTarget,
	}
	RuleExplicitVerb = Rule{
		Name:        "explicit-verb",
		Kind:        KindLink,
		Example:     `[label](POST /path "attr=val")`,
		Description: "action button with the given verb",
		Match:       matchExplicitVerb,
	}
	RuleLegacyVerbPrefix = Rule{
		Name:        "legacy-verb-prefix",
		Kind:        KindLink,
		Example:     `[label](@post:/path)`,
		Description: "action button, verb taken from the @verb: prefix",
		Match:       matchLegacyVerbPrefix,
	}
	RuleAbsolutePath = Rule{
		Name:        "absolute-path",
		Kind:        KindLink,
		Example:     `[label](/path)`,
		Description: "action button with the default verb (post)",
		Match:       matchAbsolutePath,
	}
	RuleExternalURL = Rule{
		Name:        "external-url",
		Kind:        KindLink,
		Example:     `[label](https://...)`,
		Description: "plain link, left untouched",
		Match:       matchExternalURL,
	}
)

// DefaultRules is the canonical grammar in priority order.
// The first matching rule for a node kind wins; no match means Passthrough.
var DefaultRules = []Rule{
	RuleImageInput,
	RuleEmptyTarget,
	RuleExplicitVerb,
	RuleAbsolutePath,
	RuleExternalURL,
}

// LegacyRules is DefaultRules with the @verb:path form enabled.
var LegacyRules = []Rule{
	RuleImageInput,
	RuleEmptyTarget,
	RuleExplicitVerb,
	RuleLegacyVerbPrefix,
	RuleAbsolutePath,
	RuleExternalURL,
}

func matchImageInput(t Target) (Directive, bool) {
	if !strings.HasPrefix(t.Destination, InputMarker) {
		return Directive{}, false
	}
	name := defaultInputName
	if _, after, found := strings.Cut(t.Destination, ":"); found && after != "" {
		name = after
	}
	d := InputDirective(name, t.Text)
	d.LegacyTrigger = true
	return d, true
}

func matchEmptyTarget(t Target) (Directive, bool) {
	if t.Destination != "" && t.Destination != "#" {
		return Directive{}, false
	}
	name := t.Text
	if name == "" {
		name = defaultInputName
	}
	placeholder := name
	if t.HasTitle {
		placeholder = t.Title
	}
	return InputDirective(name, placeholder), true
}

func matchExplicitVerb(t Target) (Directive, bool) {
	dest := strings.TrimSpace(t.Destination)
	i := strings.IndexFunc(dest, isSpace)
	if i < 0 {
		return Directive{}, false
	}
	verb, ok := LookupVerb(dest[:i])
	if !ok {
		return Directive{}, false
	}
	return ActionDirective(verb, strings.TrimLeftFunc(dest[i:], isSpace)), true
}

func matchLegacyVerbPrefix(t Target) (Directive, bool) {
	if !strings.HasPrefix(t.Destination, "@") {
		return Directive{}, false
	}
	token, path, found := strings.Cut(t.Destination[1:], ":")
	if !found {
		return Directive{}, false
	}
	verb, ok := LookupVerb(token)
	if !ok {
		return Directive{}, false
	}
	return ActionDirective(verb, path), true
}

func matchAbsolutePath(t Target) (Directive, bool) {
	if !strings.HasPrefix(t.Destination, "/") {
		return Directive{}, false
	}
	return ActionDirective(DefaultVerb, t.Destination), true
}

func matchExternalURL(t Target) (Directive, bool) {
	if strings.HasPrefix(t.Destination, "http://") || strings.HasPrefix(t.Destination, "https://") {
		return Directive{Kind: Passthrough}, true
	}
	return Directive{}, false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// Classifier applies a rule table to targets.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over rules, evaluated in order.
// A nil slice selects DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Rules returns the classifier's rule table.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify returns the directive for t and the rule that produced it.
// The rule is nil when nothing matched.
func (c *Classifier) Classify(t Target) (Directive, *Rule) {
	for i := range c.rules {
		r := &c.rules[i]
		if r.Kind != t.Kind {
			continue
		}
		if d, ok := r.Match(t); ok {
			return d, r
		}
	}
	return Directive{Kind: Passthrough}, nil
}

// Classify classifies t against DefaultRules.
func Classify(t Target) Directive {
	d, _ := defaultClassifier.Classify(t)
	return d
}

var defaultClassifier = NewClassifier(DefaultRules)
