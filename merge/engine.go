package merge

import (
	"sort"
	"strings"

	"github.com/policyai/core/action"
	"github.com/policyai/core/policytype"
)

// Claim is one policy's confirmed field values for a single Apply call:
// the completion's identifier keys, translated back to field names and
// restricted to the fields that policy declares. Manager builds one
// Claim per policy in the snapshot it applied against, and Claims must
// be supplied in ascending RuleIndex order (Manager::add order, 1-based)
// so LargestValue/Default resolution and array concatenation order are
// well-defined.
type Claim struct {
	RuleIndex int
	Values    map[string]any
}

// Contribution is one field value attributed to a matched rule.
type Contribution struct {
	RuleIndex int
	Value     any
}

// Merge resolves every field of pt against claims and returns the
// single Report the call produces. It never mutates its inputs.
func Merge(pt *policytype.PolicyType, claims []Claim) *Report {
	matched := make(map[int]struct{})
	conflicts := []Conflict{}
	malformed := []MalformedContribution{}
	value := action.Action{}

	for _, f := range pt.Fields {
		contributions := collectContributions(f, claims, &malformed)
		if len(contributions) == 0 {
			if f.HasDefault() {
				value[f.Name] = f.Default
			}
			continue
		}
		for _, c := range contributions {
			matched[c.RuleIndex] = struct{}{}
		}

		if f.Kind.IsArray() {
			value[f.Name] = resolveArray(f.Kind, contributions)
			continue
		}

		switch f.OnConflict {
		case policytype.Agreement:
			if resolved, agree := resolveAgreement(contributions); agree {
				value[f.Name] = resolved
				continue
			}
			conflicts = append(conflicts, Conflict{Field: f.Name, Contributions: rawValues(contributions)})
			if f.HasDefault() {
				value[f.Name] = f.Default
			}
		case policytype.LargestValue:
			value[f.Name] = resolveLargest(f, contributions)
		case policytype.Default:
			value[f.Name] = contributions[len(contributions)-1].Value
		}
	}

	rules := make([]int, 0, len(matched))
	for idx := range matched {
		rules = append(rules, idx)
	}
	sort.Ints(rules)

	return &Report{
		Value:        value,
		MatchedRules: rules,
		Conflicts:    conflicts,
		Malformed:    malformed,
	}
}

func collectContributions(f policytype.Field, claims []Claim, malformed *[]MalformedContribution) []Contribution {
	var out []Contribution
	for _, cl := range claims {
		v, ok := cl.Values[f.Name]
		if !ok {
			continue
		}
		if err := f.Validate(v); err != nil {
			*malformed = append(*malformed, MalformedContribution{
				RuleIndex: cl.RuleIndex, Field: f.Name, Value: v, Reason: err.Error(),
			})
			continue
		}
		out = append(out, Contribution{RuleIndex: cl.RuleIndex, Value: v})
	}
	return out
}

func rawValues(contributions []Contribution) []any {
	out := make([]any, len(contributions))
	for i, c := range contributions {
		out[i] = c.Value
	}
	return out
}

func resolveAgreement(contributions []Contribution) (any, bool) {
	first := contributions[0].Value
	for _, c := range contributions[1:] {
		if !valuesEqual(first, c.Value) {
			return nil, false
		}
	}
	return first, true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []float64:
		bv, ok := b.([]float64)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func resolveLargest(f policytype.Field, contributions []Contribution) any {
	best := contributions[0]
	for _, c := range contributions[1:] {
		if compareByKind(f, c.Value, best.Value) > 0 {
			best = c
		}
	}
	return best.Value
}

// compareByKind orders two scalar values under f's field-kind order:
// bool true>false, numeric order, longer-then-lexicographic
// strings, and enum declaration position.
func compareByKind(f policytype.Field, a, b any) int {
	switch f.Kind {
	case policytype.KindBool:
		ab, bb := a.(bool), b.(bool)
		if ab == bb {
			return 0
		}
		if ab {
			return 1
		}
		return -1
	case policytype.KindNumber:
		af, bf := a.(float64), b.(float64)
		switch {
		case af > bf:
			return 1
		case af < bf:
			return -1
		default:
			return 0
		}
	case policytype.KindString:
		as, bs := a.(string), b.(string)
		if len(as) != len(bs) {
			if len(as) > len(bs) {
				return 1
			}
			return -1
		}
		return strings.Compare(as, bs)
	case policytype.KindStringEnum:
		ar, _ := f.EnumRank(a.(string))
		br, _ := f.EnumRank(b.(string))
		switch {
		case ar > br:
			return 1
		case ar < br:
			return -1
		default:
			return 0
		}
	}
	return 0
}

// resolveArray concatenates array contributions in ascending rule order,
// deduplicating while preserving first occurrence.
func resolveArray(kind policytype.FieldKind, contributions []Contribution) any {
	if kind == policytype.KindStringArray {
		seen := make(map[string]struct{})
		out := []string{}
		for _, c := range contributions {
			for _, v := range c.Value.([]string) {
				if _, dup := seen[v]; dup {
					continue
				}
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
		return out
	}

	seen := make(map[float64]struct{})
	out := []float64{}
	for _, c := range contributions {
		for _, v := range c.Value.([]float64) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
