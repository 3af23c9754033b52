package library

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// rawFields carries what a typed struct does not model: members of the input
// object without a struct field, and required members the input lacked.
// Both are written back unchanged so that a load/save cycle keeps the file.
type rawFields struct {
	extra  map[string]json.RawMessage
	absent map[string]bool
}

type objectKey struct {
	name     string
	optional bool
}

var objectKeys sync.Map // reflect.Type -> []objectKey

// keysOf lists the JSON member names of a struct type in field order
func keysOf(t reflect.Type) []objectKey {
	if cached, ok := objectKeys.Load(t); ok {
		return cached.([]objectKey)
	}

	var keys []objectKey
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if !f.IsExported() || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		keys = append(keys, objectKey{name: name, optional: strings.Contains(opts, "omitempty")})
	}

	objectKeys.Store(t, keys)
	return keys
}

// decodeObject unmarshals data into plain, a pointer to a method-free struct,
// and returns the members plain does not know
func decodeObject(data []byte, plain any) (rawFields, error) {
	if err := json.Unmarshal(data, plain); err != nil {
		return rawFields{}, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return rawFields{}, err
	}
	if all == nil {
		return rawFields{}, nil
	}

	var raw rawFields
	for _, k := range keysOf(reflect.TypeOf(plain).Elem()) {
		if _, ok := all[k.name]; ok {
			delete(all, k.name)
			continue
		}
		if !k.optional {
			if raw.absent == nil {
				raw.absent = make(map[string]bool)
			}
			raw.absent[k.name] = true
		}
	}
	if len(all) > 0 {
		raw.extra = all
	}
	return raw, nil
}

// encodeObject marshals plain in field order followed by the preserved
// members in key order. A member that was absent on input stays absent while
// it still holds its baseline value.
func encodeObject(plain, baseline any, raw rawFields) ([]byte, error) {
	data, err := EncodeCompact(plain)
	if err != nil {
		return nil, err
	}
	if len(raw.extra) == 0 && len(raw.absent) == 0 {
		return data, nil
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	var base map[string]json.RawMessage
	if len(raw.absent) > 0 {
		baseData, err := EncodeCompact(baseline)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(baseData, &base); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	member := func(name string, value json.RawMessage) error {
		key, err := EncodeCompact(name)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	}

	for _, k := range keysOf(reflect.TypeOf(plain)) {
		value, ok := known[k.name]
		if !ok {
			continue
		}
		if raw.absent[k.name] && isBaseline(value, base[k.name]) {
			continue
		}
		if err := member(k.name, value); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(raw.extra))
	for name := range raw.extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := member(name, raw.extra[name]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// isBaseline reports whether value is the baseline. Empty lists count as the
// nil lists Normalize replaced.
func isBaseline(value, baseline json.RawMessage) bool {
	if bytes.Equal(value, baseline) {
		return true
	}
	var v, b any
	if json.Unmarshal(value, &v) != nil || json.Unmarshal(baseline, &b) != nil {
		return false
	}
	return reflect.DeepEqual(emptyListsToNil(v), emptyListsToNil(b))
}

func emptyListsToNil(v any) any {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return nil
		}
		for i := range t {
			t[i] = emptyListsToNil(t[i])
		}
	case map[string]any:
		for k := range t {
			t[k] = emptyListsToNil(t[k])
		}
	}
	return v
}

type (
	plainLibrary     Library
	plainSession     Session
	plainSessionTags SessionTags
	plainDrill       Drill
	plainDrillTags   DrillTags
)

// UnmarshalJSON keeps library members this package does not model
func (l *Library) UnmarshalJSON(data []byte) error {
	var plain plainLibrary
	raw, err := decodeObject(data, &plain)
	if err != nil {
		return err
	}
	*l = Library(plain)
	l.raw = raw
	return nil
}

// MarshalJSON writes the modelled members and the preserved ones
func (l Library) MarshalJSON() ([]byte, error) {
	return encodeObject(plainLibrary(l), plainLibrary{}, l.raw)
}

// UnmarshalJSON keeps session members this package does not model
func (s *Session) UnmarshalJSON(data []byte) error {
	var plain plainSession
	raw, err := decodeObject(data, &plain)
	if err != nil {
		return err
	}
	*s = Session(plain)
	s.raw = raw
	return nil
}

// MarshalJSON writes the modelled members and the preserved ones
func (s Session) MarshalJSON() ([]byte, error) {
	return encodeObject(plainSession(s), plainSession{}, s.raw)
}

// UnmarshalJSON keeps free-form session tags
func (t *SessionTags) UnmarshalJSON(data []byte) error {
	var plain plainSessionTags
	raw, err := decodeObject(data, &plain)
	if err != nil {
		return err
	}
	*t = SessionTags(plain)
	t.raw = raw
	return nil
}

// MarshalJSON writes the modelled tags and the preserved ones
func (t SessionTags) MarshalJSON() ([]byte, error) {
	return encodeObject(plainSessionTags(t), plainSessionTags{}, t.raw)
}

// UnmarshalJSON keeps drill members this package does not model. Drills
// without source_page_start start on DefaultSourcePage.
func (d *Drill) UnmarshalJSON(data []byte) error {
	plain := plainDrill{SourcePageStart: DefaultSourcePage}
	raw, err := decodeObject(data, &plain)
	if err != nil {
		return err
	}
	*d = Drill(plain)
	d.raw = raw
	return nil
}

// MarshalJSON writes the modelled members and the preserved ones
func (d Drill) MarshalJSON() ([]byte, error) {
	return encodeObject(plainDrill(d), plainDrill{SourcePageStart: DefaultSourcePage}, d.raw)
}

// UnmarshalJSON keeps free-form drill tags
func (t *DrillTags) UnmarshalJSON(data []byte) error {
	var plain plainDrillTags
	raw, err := decodeObject(data, &plain)
	if err != nil {
		return err
	}
	*t = DrillTags(plain)
	t.raw = raw
	return nil
}

// MarshalJSON writes the modelled tags and the preserved ones
func (t DrillTags) MarshalJSON() ([]byte, error) {
	return encodeObject(plainDrillTags(t), plainDrillTags{}, t.raw)
}

// Extra returns a preserved member of the session tags
func (t SessionTags) Extra(name string) (json.RawMessage, bool) {
	v, ok := t.raw.extra[name]
	return v, ok
}

// Extra returns a preserved member of the drill tags
func (t DrillTags) Extra(name string) (json.RawMessage, bool) {
	v, ok := t.raw.extra[name]
	return v, ok
}
