package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/scrape"
)

const querySchemaPath = "static/scrape_query.schema.json"

// queryValidator checks /api/scrape query strings against the embedded schema.
type queryValidator struct {
	schema *jsonschema.Schema
}

func newQueryValidator() (*queryValidator, error) {
	raw, err := staticFS.ReadFile(querySchemaPath)
	if err != nil {
		return nil, fmt.Errorf("read query schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(querySchemaPath, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add query schema: %w", err)
	}
	schema, err := compiler.Compile(querySchemaPath)
	if err != nil {
		return nil, fmt.Errorf("compile query schema: %w", err)
	}
	return &queryValidator{schema: schema}, nil
}

// Validate returns the field errors for q, or nil when q is acceptable.
func (v *queryValidator) Validate(q url.Values) []scrape.FieldError {
	err := v.schema.Validate(queryDocument(q))
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []scrape.FieldError{{Field: "query", Message: err.Error()}}
	}
	return fieldErrors(ve)
}

// queryDocument turns query parameters into a JSON-like value. Numbers and
// booleans are typed only when they parse; anything else stays a string so
// the schema reports a type mismatch. Empty optional values count as absent.
func queryDocument(q url.Values) map[string]interface{} {
	doc := make(map[string]interface{})
	if q.Has("search") {
		doc["search"] = q.Get("search")
	}
	for _, key := range []string{"page", "size"} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
			doc[key] = json.Number(raw)
		} else {
			doc[key] = raw
		}
	}
	for _, key := range []string{"getAll", "scrapeDetails"} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		if b, err := strconv.ParseBool(raw); err == nil {
			doc[key] = b
		} else {
			doc[key] = raw
		}
	}
	return doc
}

func fieldErrors(ve *jsonschema.ValidationError) []scrape.FieldError {
	var out []scrape.FieldError
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			if field == "" {
				field = "query"
			}
			out = append(out, scrape.FieldError{Field: field, Message: e.Message})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// requestFromQuery builds a scrape request from an already validated query.
func requestFromQuery(q url.Values, defaultPageSize int) scrape.Request {
	req := scrape.Request{
		SearchTerm: strings.TrimSpace(q.Get("search")),
		Page:       1,
		PageSize:   defaultPageSize,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("page"))); err == nil {
		req.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("size"))); err == nil {
		req.PageSize = n
	}
	req.FetchAll, _ = strconv.ParseBool(strings.TrimSpace(q.Get("getAll")))
	req.FetchDetails, _ = strconv.ParseBool(strings.TrimSpace(q.Get("scrapeDetails")))
	return req
}
