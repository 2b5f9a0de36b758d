// Package http provides the REST API and browser UI of billbook.
//
// This file implements utilities for parsing request bodies. Every write
// endpoint accepts JSON or form-encoded input.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"billbook/internal/core"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 10 << 20

var (
	errBodyTooLarge = core.Errorf(core.ErrValidation, "request body too large")
	errInvalidBody  = core.Errorf(core.ErrValidation, "invalid request body")
)

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(p.err, &tooLarge) {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse parses the body as JSON when the content type or the first byte
// says so and as form data otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.IsJSON() {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil || p.jsonData == nil {
			p.jsonData = nil
			p.err = errInvalidBody
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = errInvalidBody
	}
	return p.err
}

// IsJSON reports whether the body is treated as JSON.
func (p *RequestBodyParser) IsJSON() bool {
	if mt, _, err := mime.ParseMediaType(p.contentType); err == nil {
		if mt == "application/json" || strings.HasSuffix(mt, "+json") {
			return true
		}
		if mt == "application/x-www-form-urlencoded" {
			return false
		}
	}
	trimmed := bytes.TrimSpace(p.body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Lookup returns the sanitized value of key and whether it was sent.
// JSON nulls count as absent.
func (p *RequestBodyParser) Lookup(key string) (string, bool) {
	v, ok := p.LookupRaw(key)
	if !ok {
		return "", false
	}
	return sanitizeInput(v), true
}

// LookupRaw is Lookup without sanitizing. Secrets such as passwords are
// read this way so they reach the hasher byte for byte.
func (p *RequestBodyParser) LookupRaw(key string) (string, bool) {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok || val == nil {
			return "", false
		}
		return stringValue(val), true
	}
	if p.formData != nil {
		if vals, ok := p.formData[key]; ok && len(vals) > 0 {
			return vals[0], true
		}
	}
	return "", false
}

// Get returns the value of key or "".
func (p *RequestBodyParser) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Raw returns the unsanitized value of key or "".
func (p *RequestBodyParser) Raw(key string) string {
	v, _ := p.LookupRaw(key)
	return v
}

// First returns the first of keys that was sent.
func (p *RequestBodyParser) First(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := p.Lookup(k); ok {
			return v, true
		}
	}
	return "", false
}

// OptString returns nil when key was not sent.
func (p *RequestBodyParser) OptString(keys ...string) *string {
	if v, ok := p.First(keys...); ok {
		return &v
	}
	return nil
}

// OptMoney parses an amount. Missing and blank values yield nil.
func (p *RequestBodyParser) OptMoney(key string) (*core.Money, error) {
	v, ok := p.Lookup(key)
	if !ok || v == "" {
		return nil, nil
	}
	cents, err := core.ParseDecimalToCents(v)
	if err != nil {
		return nil, err
	}
	m := core.Money{Cents: cents}
	return &m, nil
}

// OptBillType parses a bill type. Missing and blank values yield nil.
func (p *RequestBodyParser) OptBillType(key string) (*core.BillType, error) {
	v, ok := p.Lookup(key)
	if !ok || v == "" {
		return nil, nil
	}
	t, err := core.ParseBillType(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// OptPeriod parses a budget period. Missing and blank values yield nil.
func (p *RequestBodyParser) OptPeriod(key string) (*core.Period, error) {
	v, ok := p.Lookup(key)
	if !ok || v == "" {
		return nil, nil
	}
	period := core.Period(strings.ToLower(v))
	if !period.Valid() {
		return nil, core.ErrInvalidPeriod
	}
	return &period, nil
}

// OptDate parses a date or timestamp. With endOfDay a plain date covers
// the whole day.
func (p *RequestBodyParser) OptDate(key string, endOfDay bool) (*time.Time, error) {
	v, ok := p.Lookup(key)
	if !ok || v == "" {
		return nil, nil
	}
	t, err := parseDateParam(v, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
