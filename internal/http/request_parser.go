// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trackify/internal/core"
)

// maxBodyBytes bounds request bodies; every payload here is a small form.
const maxBodyBytes = 64 << 10

var (
	errBodyTooLarge = errors.New("request body too large")
	errBadRequest   = errors.New("bad request")
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: invalid form body: %v", errBadRequest, p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		return p.formData.Has(key)
	}
	return false
}

// GetRaw returns the raw body bytes. Passwords are read from here so that
// sanitization never alters them.
func (p *RequestBodyParser) GetRaw(key string) string {
	if p.jsonData != nil {
		if s, ok := p.jsonData[key].(string); ok {
			return s
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransaction reads type, category, amount, date and note from the
// body. A missing date means today.
func (p *RequestBodyParser) ParseTransaction(now time.Time) (core.Transaction, error) {
	class, err := core.ParseClassification(p.Get("type"), p.Get("category"))
	if err != nil {
		return core.Transaction{}, err
	}

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}

	date := core.DateOf(now)
	if v := p.Get("date"); v != "" {
		date, err = core.ParseDate(v)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	return core.Transaction{
		Class:  class,
		Amount: amount,
		Date:   date,
		Note:   p.Get("note"),
	}, nil
}

// ParseMonthParam reads ?month=YYYY-MM, or ?year=&month=N, defaulting to the
// month containing now.
func ParseMonthParam(query url.Values, now time.Time) (core.YearMonth, error) {
	raw := strings.TrimSpace(query.Get("month"))
	yearRaw := strings.TrimSpace(query.Get("year"))

	if yearRaw == "" {
		if raw == "" {
			return core.MonthOf(now), nil
		}
		return core.ParseYearMonth(raw)
	}

	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return "", fmt.Errorf("%w: year %q", core.ErrInvalidYearMonth, yearRaw)
	}
	month := int(now.Month())
	if raw != "" {
		month, err = strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("%w: month %q", core.ErrInvalidYearMonth, raw)
		}
	}
	ym := core.NewYearMonth(year, month)
	if err := ym.Validate(); err != nil {
		return "", err
	}
	return ym, nil
}

// ParseLimitParam reads ?limit=N, returning def when absent.
func ParseLimitParam(query url.Values, def, max int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid limit %q", errBadRequest, v)
	}
	if n > max {
		n = max
	}
	return n, nil
}
