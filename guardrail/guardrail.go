// Package guardrail rejects requests that ask the assistant to do something
// it must never attempt, before any model or tool is involved.
package guardrail

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Refusal is the fixed reply for a blocked request.
const Refusal = "I can't help with that. I can only help with friends, teams, hackathons and listings on your own account."

// Category groups the rules by the kind of harm they guard against.
type Category string

const (
	DataDestruction     Category = "data_destruction"
	PrivilegeEscalation Category = "privilege_escalation"
	CrossUserAccess     Category = "cross_user_access"
	SystemCompromise    Category = "system_compromise"
)

// Verdict is the outcome of a check. Refusal is the reply to send when
// Blocked is set; Pattern names the rule that matched, for logs only.
type Verdict struct {
	Blocked  bool
	Category Category
	Refusal  string
	Pattern  string
}

type rule struct {
	category Category
	re       *regexp.Regexp
}

// Filter is an ordered list of patterns. The first match wins.
type Filter struct {
	rules []rule
}

// New compiles the built-in rules.
func New() *Filter {
	f := &Filter{}
	for _, r := range defaultRules {
		f.rules = append(f.rules, rule{category: r.category, re: regexp.MustCompile(r.pattern)})
	}
	return f
}

type ruleSpec struct {
	category Category
	pattern  string
}

var defaultRules = []ruleSpec{
	{DataDestruction, `(?i)\b(delete|drop|truncate|wipe|erase|purge|destroy)\b.{0,40}\b(all|every|entire|whole)\b.{0,30}\b(users?|accounts?|teams?|data(base)?|tables?|records?|messages?|listings?)\b`},
	{DataDestruction, `(?i)\bdrop\s+(table|database|schema)\b`},
	{DataDestruction, `(?i)\b(delete\s+from|truncate\s+table)\s+\w+`},
	{PrivilegeEscalation, `(?i)\b(make|grant|give|set|promote)\b.{0,30}\b(me|my account|myself)\b.{0,30}\b(admin|administrator|superuser|root|moderator|owner)\b`},
	{PrivilegeEscalation, `(?i)\b(admin|root|sudo|superuser)\s+(access|privileges?|rights|mode|permissions?)\b`},
	{PrivilegeEscalation, `(?i)\b(bypass|disable|skip|ignore)\b.{0,30}\b(auth(entication|orization)?|permissions?|confirmation|verification|guardrails?|safety|rules)\b`},
	{PrivilegeEscalation, `(?i)\bignore\b.{0,20}\b(previous|prior|above|all)\b.{0,20}\b(instructions|prompts?|rules)\b`},
	{CrossUserAccess, `(?i)\b(read|show|see|access|dump|export|list|view)\b.{0,30}\b(other|another|every(one)?|all)\b.{0,20}\b(users?'?s?|people'?s?|members?'?)\b.{0,30}\b(messages?|chats?|passwords?|emails?|data|tokens?|private|dms?|conversations?)\b`},
	{CrossUserAccess, `(?i)\b(log\s*in|sign\s*in|act|send|post)\b.{0,20}\bas\s+(another|a different|some other)\s+user\b`},
	{CrossUserAccess, `(?i)\bimpersonat(e|ing|ion)\b`},
	{CrossUserAccess, `(?i)\b(passwords?|password hash(es)?|api[_ ]?keys?|session tokens?|bearer tokens?)\b.{0,30}\b(of|for|from)\b.{0,20}\b(users?|everyone|others?)\b`},
	{SystemCompromise, `(?i)\brm\s+-rf\b|\bchmod\s+777\b|/etc/(passwd|shadow)\b`},
	{SystemCompromise, `(?i)\b(sql\s+injection|xss|cross[- ]site scripting|remote code execution|reverse shell)\b`},
	{SystemCompromise, `(?i)('|")\s*(or|and)\s+('|")?\d+('|")?\s*=\s*('|")?\d+`},
	{SystemCompromise, `(?i)<\s*script\b`},
	{SystemCompromise, `(?i)\b(hack|exploit|ddos|crash|take\s*down)\b.{0,20}\b(the\s+)?(server|site|platform|app(lication)?|system|database)\b`},
	{SystemCompromise, `(?i)\b(system prompt|your instructions|your prompt)\b.{0,20}\b(reveal|show|print|dump|repeat)\b|\b(reveal|show|print|dump|repeat)\b.{0,20}\b(system prompt|your instructions|your prompt)\b`},
}

// Check evaluates a single piece of text.
func (f *Filter) Check(text string) Verdict {
	for _, r := range f.rules {
		if r.re.MatchString(text) {
			return Verdict{Blocked: true, Category: r.category, Refusal: Refusal, Pattern: r.re.String()}
		}
	}
	return Verdict{}
}

// CheckAll evaluates each text in turn and returns the first blocking verdict.
func (f *Filter) CheckAll(texts ...string) Verdict {
	for _, t := range texts {
		if t == "" {
			continue
		}
		if v := f.Check(t); v.Blocked {
			return v
		}
	}
	return Verdict{}
}

// ArgumentText flattens the string values of a tool-argument map, in key
// order, so replayed actions can be checked like free text.
func ArgumentText(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := args[k].(type) {
		case string:
			parts = append(parts, v)
		case fmt.Stringer:
			parts = append(parts, v.String())
		}
	}
	return strings.Join(parts, "\n")
}
