package policytype

import "encoding/json"

// fieldJSON mirrors the wire schema from the core: kind, name, default,
// on_conflict, values. Identifiers never appear on the wire; they are
// re-minted whenever a PolicyType is unmarshaled.
type fieldJSON struct {
	Kind       FieldKind  `json:"kind"`
	Name       string     `json:"name"`
	Default    any        `json:"default,omitempty"`
	OnConflict OnConflict `json:"on_conflict,omitempty"`
	Values     []string   `json:"values,omitempty"`
}

type policyTypeJSON struct {
	Name   string      `json:"name"`
	Fields []fieldJSON `json:"fields"`
}

// MarshalJSON serializes the type per the core's PolicyType wire schema.
func (t *PolicyType) MarshalJSON() ([]byte, error) {
	out := policyTypeJSON{Name: t.Name, Fields: make([]fieldJSON, len(t.Fields))}
	for i, f := range t.Fields {
		out.Fields[i] = fieldJSON{
			Kind:       f.Kind,
			Name:       f.Name,
			Default:    f.Default,
			OnConflict: f.OnConflict,
			Values:     f.Values,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reconstructs a PolicyType, minting fresh field identifiers.
func (t *PolicyType) UnmarshalJSON(data []byte) error {
	var raw policyTypeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields := make([]Field, len(raw.Fields))
	for i, fj := range raw.Fields {
		fields[i] = Field{
			Name:       fj.Name,
			Kind:       fj.Kind,
			OnConflict: fj.OnConflict,
			Default:    normalizeJSONNumber(fj.Kind, fj.Default),
			Values:     fj.Values,
		}
		if err := validateField(fields[i]); err != nil {
			return err
		}
	}

	built, err := New(raw.Name, fields)
	if err != nil {
		return err
	}
	*t = *built
	return nil
}

// normalizeJSONNumber converts encoding/json's default float64 decoding
// for KindNumber defaults (a no-op, kept explicit since bool/string
// defaults decode to their natural Go types already).
func normalizeJSONNumber(kind FieldKind, v any) any {
	if kind != KindNumber || v == nil {
		return v
	}
	if f, ok := v.(float64); ok {
		return f
	}
	return v
}
