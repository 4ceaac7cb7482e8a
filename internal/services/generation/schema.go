package generation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/killallgit/course-api/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed request.schema.json
var requestSchemaJSON []byte

const requestSchemaName = "request.schema.json"

var (
	requestSchema = mustCompileSchema(requestSchemaJSON, requestSchemaName)
	printer       = message.NewPrinter(language.English)
)

func mustCompileSchema(raw []byte, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ParseRequest is the entry-boundary check: the body is validated against
// the request schema, decoded into the union and validated again with the Go
// rules. Any failure is a validation error and nothing is streamed.
func ParseRequest(body []byte) (*Request, error) {
	if violations, err := validateSchema(body); err != nil {
		return nil, err
	} else if len(violations) > 0 {
		return nil, apperrors.ValidationError("request", violations[0]).
			WithDetail("violations", violations)
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.ValidationError("body", "request is not a valid JSON object").WithCause(err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// validateSchema returns one message per schema violation
func validateSchema(body []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var instance any
	if err := dec.Decode(&instance); err != nil {
		return nil, apperrors.ValidationError("body", "request is not a valid JSON object").WithCause(err)
	}
	if dec.More() {
		return nil, apperrors.ValidationError("body", "unexpected data after the request object")
	}

	err := requestSchema.Validate(instance)
	if err == nil {
		return nil, nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}, nil
	}

	var violations []string
	collectSchemaErrors(ve, &violations)
	return violations, nil
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
