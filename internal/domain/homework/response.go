package homework

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/alem-hub/homework-notifier/internal/domain/shared"
)

// Payload keys of the status endpoint.
const (
	keyHomeworks   = "homeworks"
	keyCurrentDate = "current_date"
	keyName        = "homework_name"
	keyStatus      = "status"
)

// Response is a structurally validated status endpoint payload.
// Entries are kept undecoded: each one is checked by ParseEntry when the
// cycle reaches it, so a malformed entry does not hold back the ones before it.
type Response struct {
	Entries []any

	// CurrentDate is the server time to use as the next from_date; nil when omitted.
	CurrentDate *int64
}

// Decode parses a raw JSON body into an untyped payload for ValidateResponse.
// Numbers are kept as json.Number so timestamps survive without float rounding.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, shared.WrapError(domainName, "Decode", shared.ErrSchema, "response is not valid JSON", err)
	}
	return raw, nil
}

// ValidateResponse checks the structure of a decoded payload.
//
// The payload must be a JSON object. Arrays are rejected even when they hold
// a single object: the endpoint never wraps its answer, so an array means
// something other than the status API answered.
func ValidateResponse(raw any) (Response, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Response{}, shared.SchemaError(domainName, "Validate", "response is %s, want object", jsonType(raw))
	}

	rawList, ok := obj[keyHomeworks]
	if !ok || rawList == nil {
		return Response{}, shared.SchemaError(domainName, "Validate", "response has no %q key", keyHomeworks)
	}
	list, ok := rawList.([]any)
	if !ok {
		return Response{}, shared.SchemaError(domainName, "Validate", "%q is %s, want array", keyHomeworks, jsonType(rawList))
	}

	resp := Response{Entries: list}

	if rawDate, ok := obj[keyCurrentDate]; ok && rawDate != nil {
		ts, err := timestamp(rawDate)
		if err != nil {
			return Response{}, err
		}
		resp.CurrentDate = &ts
	}

	return resp, nil
}

// ParseEntry turns the index-th element of Response.Entries into a Homework.
// Absent or null keys are left for Translate to report.
func ParseEntry(index int, raw any) (Homework, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Homework{}, shared.SchemaError(domainName, "ParseEntry", "homework #%d is %s, want object", index, jsonType(raw))
	}

	name, hasName, err := optionalString(obj, keyName, index)
	if err != nil {
		return Homework{}, err
	}
	status, hasStatus, err := optionalString(obj, keyStatus, index)
	if err != nil {
		return Homework{}, err
	}

	return Homework{Name: name, Status: Status(status), HasName: hasName, HasStatus: hasStatus}, nil
}

func optionalString(obj map[string]any, key string, index int) (string, bool, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, shared.SchemaError(domainName, "ParseEntry", "homework #%d: %q is %s, want string", index, key, jsonType(v))
	}
	return s, true, nil
}

func timestamp(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if ts, err := n.Int64(); err == nil {
			return ts, nil
		}
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int64(n), nil
		}
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	return 0, shared.SchemaError(domainName, "Validate", "%q is %s, want integer", keyCurrentDate, jsonType(v))
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return "unknown"
	}
}
