package workflow

import (
	"fmt"
	"strconv"
)

type Operator string

const (
	OpEq    Operator = "eq"
	OpNe    Operator = "ne"
	OpGt    Operator = "gt"
	OpGte   Operator = "gte"
	OpLt    Operator = "lt"
	OpLte   Operator = "lte"
	OpIn    Operator = "in"
	OpNotIn Operator = "nin"
)

type Combinator string

const (
	MatchAll Combinator = "and"
	MatchAny Combinator = "or"
)

// Rule compares one submission attribute against a literal.
type Rule struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

// RuleGroup decides whether a step applies to a submission. An empty group
// always applies.
type RuleGroup struct {
	Match  Combinator  `json:"match"`
	Rules  []Rule      `json:"rules,omitempty"`
	Groups []RuleGroup `json:"groups,omitempty"`
}

func (g *RuleGroup) Validate() error {
	if g == nil {
		return nil
	}
	switch g.Match {
	case MatchAll, MatchAny, "":
	default:
		return fmt.Errorf("unknown rule combinator %q", g.Match)
	}
	for _, r := range g.Rules {
		if r.Field == "" {
			return fmt.Errorf("rule without field")
		}
		switch r.Operator {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		case OpIn, OpNotIn:
			if _, ok := r.Value.([]interface{}); !ok {
				return fmt.Errorf("rule on %q: %s needs a list value", r.Field, r.Operator)
			}
		default:
			return fmt.Errorf("rule on %q: unknown operator %q", r.Field, r.Operator)
		}
	}
	for i := range g.Groups {
		if err := g.Groups[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate applies the group to attrs. A rule on a missing attribute is false.
func (g *RuleGroup) Evaluate(attrs map[string]interface{}) bool {
	if g == nil || (len(g.Rules) == 0 && len(g.Groups) == 0) {
		return true
	}

	matchAny := g.Match == MatchAny
	results := make([]bool, 0, len(g.Rules)+len(g.Groups))
	for _, r := range g.Rules {
		results = append(results, r.evaluate(attrs))
	}
	for i := range g.Groups {
		results = append(results, g.Groups[i].Evaluate(attrs))
	}

	for _, ok := range results {
		if matchAny && ok {
			return true
		}
		if !matchAny && !ok {
			return false
		}
	}
	return !matchAny
}

func (r Rule) evaluate(attrs map[string]interface{}) bool {
	actual, present := attrs[r.Field]
	if !present {
		return false
	}

	switch r.Operator {
	case OpEq:
		return equal(actual, r.Value)
	case OpNe:
		return !equal(actual, r.Value)
	case OpIn, OpNotIn:
		list, _ := r.Value.([]interface{})
		found := false
		for _, v := range list {
			if equal(actual, v) {
				found = true
				break
			}
		}
		return found == (r.Operator == OpIn)
	}

	a, okA := toFloat(actual)
	b, okB := toFloat(r.Value)
	if !okA || !okB {
		return false
	}
	switch r.Operator {
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	}
	return false
}

func equal(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
