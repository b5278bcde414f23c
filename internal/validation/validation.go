package validation

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidDocument = errors.New("invalid document")

var (
	//go:embed schemas/match_request.json
	matchRequestSchema []byte

	//go:embed schemas/document.json
	documentSchema []byte
)

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema, 2)
		for name, raw := range map[string][]byte{
			"match request": matchRequestSchema,
			"document":      documentSchema,
		} {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				compileErr = fmt.Errorf("compile %s schema: %w", name, err)
				return
			}
			compiled[name] = schema
		}
	})
	return compiled, compileErr
}

// ValidateMatchRequest checks a queue match request body.
func ValidateMatchRequest(body []byte) error {
	return validate("match request", body)
}

// ValidateDocument checks a file store document holding students and bursaries.
func ValidateDocument(body []byte) error {
	return validate("document", body)
}

func validate(name string, body []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}

	result, err := all[name].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, name, err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, name, strings.Join(errs, "; "))
	}

	return nil
}
