// Package request builds and validates bitFlyer REST calls from a static
// rule table, then executes them through any Executor.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lightning_go/internal/domain"
)

// Executor performs a prepared call. bitflyer.Client satisfies it.
type Executor interface {
	Do(ctx context.Context, method, path string, params map[string]any, private bool, out any) error
}

// Request is one call being built.
type Request struct {
	kind   Kind
	rule   rule
	params map[string]any
}

// New starts a request of kind with its default parameters.
func New(kind Kind) (*Request, error) {
	r, ok := rules[kind]
	if !ok {
		return nil, fmt.Errorf("unknown request kind %q", kind)
	}

	defaults := r.defaults
	if defaults == nil {
		if _, ok := r.fields["product_code"]; ok {
			defaults = btcJPY()
		}
	}

	params := make(map[string]any, len(defaults))
	for k, v := range defaults {
		params[k] = v
	}
	return &Request{kind: kind, rule: r, params: params}, nil
}

// Kind returns the request kind.
func (r *Request) Kind() Kind { return r.kind }

// Method returns the HTTP method.
func (r *Request) Method() string { return r.rule.method }

// Path returns the API path.
func (r *Request) Path() string { return r.rule.path }

// Private reports whether the call must be signed.
func (r *Request) Private() bool { return r.rule.private }

// Params returns a copy of the current parameters.
func (r *Request) Params() map[string]any {
	out := make(map[string]any, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// Set assigns one field. A nil value removes it. Enum values are
// upper-cased, numbers are normalised to json.Number.
func (r *Request) Set(name string, v any) error {
	f, ok := r.rule.fields[name]
	if !ok {
		return &domain.ValidationError{Kind: string(r.kind), Field: name, Reason: "is not accepted"}
	}
	if v == nil {
		delete(r.params, name)
		return nil
	}

	val, err := coerce(f, v)
	if err != nil {
		return &domain.ValidationError{Kind: string(r.kind), Field: name, Reason: err.Error()}
	}
	r.params[name] = val

	for _, other := range r.rule.exclusive[name] {
		delete(r.params, other)
	}
	return nil
}

// SetParams assigns several fields, stopping at the first error.
func (r *Request) SetParams(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.Set(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// ProductCode is a shorthand for Set("product_code", code).
func (r *Request) ProductCode(code string) error {
	return r.Set("product_code", strings.ToUpper(code))
}

// Validate checks required fields and their combinations.
func (r *Request) Validate() error {
	required := append([]string(nil), r.rule.required...)
	if r.rule.conditional != nil {
		required = append(required, r.rule.conditional(r.params)...)
	}
	for _, name := range required {
		if _, ok := r.params[name]; !ok {
			return &domain.ValidationError{Kind: string(r.kind), Field: name, Reason: "is required"}
		}
	}

	if len(r.rule.oneOf) > 0 {
		matched := 0
		names := make([]string, 0, len(r.rule.oneOf))
		for _, group := range r.rule.oneOf {
			names = append(names, strings.Join(group, "+"))
			if r.hasAll(group) {
				matched++
			}
		}
		if matched != 1 {
			return &domain.ValidationError{
				Kind:   string(r.kind),
				Field:  strings.Join(names, "|"),
				Reason: "exactly one must be set",
			}
		}
	}
	return nil
}

func (r *Request) hasAll(names []string) bool {
	for _, n := range names {
		if _, ok := r.params[n]; !ok {
			return false
		}
	}
	return true
}

// String renders the call for logs and dry runs.
func (r *Request) String() string {
	b, _ := json.Marshal(r.params)
	return r.rule.method + " " + r.rule.path + "\t" + string(b)
}

// Execute validates and performs the call, decoding the response into out.
func (r *Request) Execute(ctx context.Context, exec Executor, out any) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return exec.Do(ctx, r.rule.method, r.rule.path, r.Params(), r.rule.private, out)
}

func coerce(f field, v any) (any, error) {
	switch f.typ {
	case typeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string, got %T", v)
		}
		return s, nil

	case typeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string, got %T", v)
		}
		s = strings.ToUpper(s)
		for _, e := range f.enum {
			if e == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("must be one of %s", strings.Join(f.enum, ", "))

	case typeNumber:
		return toNumber(v)

	case typeDateTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format(time.RFC3339Nano), nil
		case string:
			if _, err := time.Parse(time.RFC3339Nano, t); err != nil {
				return nil, fmt.Errorf("must be an RFC 3339 date-time")
			}
			return t, nil
		default:
			return nil, fmt.Errorf("must be a date-time, got %T", v)
		}
	}
	return nil, fmt.Errorf("unsupported field type")
}

func toNumber(v any) (json.Number, error) {
	switch n := v.(type) {
	case int:
		return json.Number(strconv.Itoa(n)), nil
	case int64:
		return json.Number(strconv.FormatInt(n, 10)), nil
	case float64:
		return json.Number(strconv.FormatFloat(n, 'f', -1, 64)), nil
	case decimal.Decimal:
		return json.Number(n.String()), nil
	case json.Number:
		if _, err := decimal.NewFromString(n.String()); err != nil {
			return "", fmt.Errorf("must be a number")
		}
		return n, nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return "", fmt.Errorf("must be a number")
		}
		return json.Number(d.String()), nil
	default:
		return "", fmt.Errorf("must be a number, got %T", v)
	}
}
