// Package labelmap translates between internal policy types and the
// external labeler's label vocabulary, per tenant, with a frozen default
// table as the fallback when a tenant has configured no overrides.
package labelmap

import "strings"

// Direction constrains whether a mapping participates in inbound
// translation (label → policy), outbound translation (policy → label), or
// both.
type Direction string

const (
	Inbound  Direction = "INBOUND"
	Outbound Direction = "OUTBOUND"
	Both     Direction = "BOTH"
)

// Mapping is one row of a tenant's label mapping table.
type Mapping struct {
	TenantID   string
	PolicyType string
	LabelValue string
	Direction  Direction
}

// Defaults is the frozen fallback table used whenever a tenant has
// configured zero mapping rows.
var Defaults = []Mapping{
	{PolicyType: "HATE", LabelValue: "hate", Direction: Both},
	{PolicyType: "VIOLENCE", LabelValue: "violence", Direction: Both},
	{PolicyType: "VIOLENCE", LabelValue: "gore", Direction: Both},
	{PolicyType: "SEXUAL_CONTENT", LabelValue: "sexual", Direction: Both},
	{PolicyType: "SEXUAL_CONTENT", LabelValue: "porn", Direction: Both},
	{PolicyType: "SEXUAL_CONTENT", LabelValue: "nudity", Direction: Both},
	{PolicyType: "SPAM", LabelValue: "spam", Direction: Both},
	{PolicyType: "HARASSMENT", LabelValue: "harassment", Direction: Both},
	{PolicyType: "SELF_HARM_AND_SUICIDE", LabelValue: "self-harm", Direction: Both},
	{PolicyType: "TERRORISM", LabelValue: "terrorism", Direction: Both},
	{PolicyType: "SEXUAL_EXPLOITATION", LabelValue: "csam", Direction: Both},
	{PolicyType: "SEXUAL_EXPLOITATION", LabelValue: "!hide", Direction: Outbound},
}

// Effective returns tenantMappings unless it is empty, in which case it
// returns Defaults.
func Effective(tenantMappings []Mapping) []Mapping {
	if len(tenantMappings) == 0 {
		return Defaults
	}
	return tenantMappings
}

// LabelsToPolicies resolves inbound external labels to internal policy
// types: mappings are filtered to INBOUND/BOTH, and every mapping whose
// labelValue appears in labels contributes its policyType to the
// deduplicated result.
func LabelsToPolicies(mappings []Mapping, labels []string) []string {
	wanted := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		wanted[l] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, m := range mappings {
		if m.Direction != Inbound && m.Direction != Both {
			continue
		}
		if _, ok := wanted[m.LabelValue]; !ok {
			continue
		}
		if _, dup := seen[m.PolicyType]; dup {
			continue
		}
		seen[m.PolicyType] = struct{}{}
		out = append(out, m.PolicyType)
	}
	return out
}

// PolicyToLabels resolves an internal policy type to outbound external
// label values: mappings are filtered to OUTBOUND/BOTH and matched on
// policyType, deduplicated.
func PolicyToLabels(mappings []Mapping, policyType string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range mappings {
		if m.Direction != Outbound && m.Direction != Both {
			continue
		}
		if m.PolicyType != policyType {
			continue
		}
		if _, dup := seen[m.LabelValue]; dup {
			continue
		}
		seen[m.LabelValue] = struct{}{}
		out = append(out, m.LabelValue)
	}
	return out
}

// Category is the internal classification of an external moderation event
// type.
type Category string

const (
	CategoryReport   Category = "REPORT"
	CategoryTakedown Category = "TAKEDOWN"
	CategoryLabel    Category = "LABEL"
	CategoryComment  Category = "COMMENT"
	CategoryEscalate Category = "ESCALATE"
)

// classifyRules is tested in order; the first substring match wins.
var classifyRules = []struct {
	substr   string
	category Category
}{
	{"modEventReport", CategoryReport},
	{"modEventTakedown", CategoryTakedown},
	{"modEventLabel", CategoryLabel},
	{"modEventComment", CategoryComment},
	{"modEventEscalate", CategoryEscalate},
}

// ClassifyEventType maps an external event's $type string to an internal
// category, or "" if none of the known substrings match.
func ClassifyEventType(eventType string) Category {
	for _, rule := range classifyRules {
		if strings.Contains(eventType, rule.substr) {
			return rule.category
		}
	}
	return ""
}
