// Package normalize translates raw marketplace payloads into models.OrderRecord.
// Nothing in this package performs I/O.
package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/BearBump/BrickSync/internal/models"
	"github.com/pkg/errors"
)

// Decode parses a JSON payload keeping numbers as json.Number so ids and
// weights keep their exact textual form.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decode payload")
	}
	return v, nil
}

// DecodeObject is Decode for payloads that must be a JSON object.
func DecodeObject(body []byte) (map[string]any, error) {
	v, err := Decode(body)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("decode payload: not an object")
	}
	return m, nil
}

type payload struct {
	src models.Source
	m   map[string]any
}

func (p payload) missing(key string) error {
	return &models.MissingFieldError{Source: p.src, Key: key}
}

// lookup walks a dotted path, e.g. "shipping.address.name.first".
func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// str returns the value at path as a string. A present null is "".
func (p payload) str(path string) (string, error) {
	v, ok := lookup(p.m, path)
	if !ok {
		return "", p.missing(path)
	}
	return toString(v), nil
}

// optStr is str for fields a platform may omit.
func (p payload) optStr(path string) *string {
	v, ok := lookup(p.m, path)
	if !ok || v == nil {
		return nil
	}
	s := toString(v)
	return &s
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func toInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse int %q", s)
	}
	return int(f), nil
}

func asList(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, errors.New("items payload is not a list")
	}
	return l, nil
}

func address(p payload, fields [8]string) (models.Address, error) {
	vals := make([]string, len(fields))
	for i, f := range fields {
		s, err := p.str(f)
		if err != nil {
			return models.Address{}, err
		}
		vals[i] = s
	}
	return models.Address{
		FirstName:   vals[0],
		LastName:    vals[1],
		CountryCode: vals[2],
		PostalCode:  vals[3],
		Street1:     vals[4],
		Street2:     vals[5],
		City:        vals[6],
		State:       vals[7],
	}, nil
}

// optionalItems never fails: a missing or malformed items payload leaves the
// order without items.
func optionalItems(raw any, fn func(any) ([]models.LineItem, error)) []models.LineItem {
	if raw == nil {
		return []models.LineItem{}
	}
	items, err := fn(raw)
	if err != nil {
		return []models.LineItem{}
	}
	return items
}
