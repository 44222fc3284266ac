package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Flexible JSON scalar types. Product payloads arriving over the push channel
// originate in HTML forms, so numeric and boolean fields frequently show up
// as strings. These types accept both encodings.

// Number decodes from a JSON number or a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", str)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Bool decodes from a JSON bool or the strings "true"/"false".
type Bool bool

func (v *Bool) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		switch strings.TrimSpace(str) {
		case "true":
			*v = true
		case "false":
			*v = false
		default:
			return fmt.Errorf("invalid boolean %q", str)
		}
		return nil
	}
	var raw bool
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = Bool(raw)
	return nil
}

// StringList decodes from a JSON array, stringifying scalar elements.
// A non-array value decodes to an empty list rather than failing, matching
// the tolerant handling of thumbnail payloads.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if !strings.HasPrefix(s, "[") {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, el := range raw {
		var str string
		if err := json.Unmarshal(el, &str); err == nil {
			out = append(out, str)
			continue
		}
		out = append(out, strings.Trim(string(el), `"`))
	}
	*l = out
	return nil
}
