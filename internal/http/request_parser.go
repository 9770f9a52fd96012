package http

// This file parses transaction form submissions and row actions. Bodies may
// be form-encoded (the htmx default) or JSON.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

const maxBodyBytes = 64 << 10

var errBadIndex = errors.New("invalid row index")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
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
	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode JSON body: %w", err)
		}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a field with control characters removed. Whitespace is kept
// as entered.
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

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// Draft reads the transaction form fields.
func (p *RequestBodyParser) Draft() core.Draft {
	return core.Draft{
		Name:     p.Get("name"),
		Category: p.Get("category"),
		Date:     p.Get("date"),
		Amount:   p.Get("amount"),
	}
}

// Ref reads the row index and the version the row was rendered at. A
// missing version skips the staleness check.
func (p *RequestBodyParser) Ref() (ledger.Ref, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(p.Get("index")))
	if err != nil {
		return ledger.Ref{}, errBadIndex
	}
	ref := ledger.Ref{Index: idx}
	if v := strings.TrimSpace(p.Get("version")); v != "" {
		ref.Version, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return ledger.Ref{}, fmt.Errorf("invalid version %q", v)
		}
	}
	return ref, nil
}

// Criteria reads the active filter carried along with a mutation.
func (p *RequestBodyParser) Criteria() (ledger.Criteria, error) {
	return parseCriteria(p.Get("filter_category"), p.Get("filter_date"))
}

// criteriaFromQuery reads the filter of a GET request.
func criteriaFromQuery(q url.Values) (ledger.Criteria, error) {
	return parseCriteria(sanitizeInput(q.Get("category")), sanitizeInput(q.Get("date")))
}

func parseCriteria(category, date string) (ledger.Criteria, error) {
	var c ledger.Criteria
	if category != "" {
		cat, err := core.ParseCategory(category)
		if err != nil {
			return c, err
		}
		c.Category = cat
	}
	if err := core.ValidateDate(date); err != nil {
		return c, err
	}
	c.Date = date
	return c, nil
}
