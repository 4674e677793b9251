package apq

import (
	"encoding/json"
	"net/url"

	"github.com/Quartz/wp-graphql-persisted-queries/errors"
)

// persistedQueryExtensionKey is the Apollo APQ extension key carrying the
// query hash when clients don't use the top-level queryId field.
const persistedQueryExtensionKey = "persistedQuery"

// persistedQueryExtension mirrors the Apollo APQ extension payload.
type persistedQueryExtension struct {
	Version    int    `json:"version,omitempty"`
	Sha256Hash string `json:"sha256Hash,omitempty"`
}

// Request is an inbound GraphQL request as seen before execution. Unknown
// body fields are preserved so the mutated request can be forwarded
// downstream losslessly.
type Request struct {
	// Query is the GraphQL query document text
	Query string

	// QueryID is the client-supplied opaque query ID
	QueryID string

	// OperationName is the operation name from the operationName field
	OperationName string

	// AltOperationName is the operation name from the operation_name field,
	// consulted when OperationName is absent
	AltOperationName string

	// persistedQueryHash is the sha256Hash from the Apollo persistedQuery
	// extension, treated as QueryID when the top-level field is absent
	persistedQueryHash string

	// extensions holds the request extensions object, minus nothing until
	// StripID removes the persistedQuery entry
	extensions map[string]json.RawMessage

	// raw holds the original body fields for lossless forwarding
	raw map[string]json.RawMessage
}

// ID returns the effective query ID: the queryId field when present,
// otherwise the Apollo persistedQuery extension hash.
func (r *Request) ID() string {
	if r.QueryID != "" {
		return r.QueryID
	}
	return r.persistedQueryHash
}

// Operation returns the operation name label for storage: operationName,
// then operation_name, then the fixed placeholder.
func (r *Request) Operation() string {
	if r.OperationName != "" {
		return r.OperationName
	}
	if r.AltOperationName != "" {
		return r.AltOperationName
	}
	return DefaultOperationName
}

// StripID removes the query ID from the request so nothing downstream
// re-processes it. Both the queryId field and the Apollo persistedQuery
// extension are cleared; other extensions survive.
func (r *Request) StripID() {
	r.QueryID = ""
	r.persistedQueryHash = ""
	if r.extensions != nil {
		delete(r.extensions, persistedQueryExtensionKey)
	}
}

// ParseRequest decodes a JSON request body.
func ParseRequest(body []byte) (*Request, error) {
	r := &Request{}
	if err := json.Unmarshal(body, r); err != nil {
		return nil, errors.WrapInvalid(err, "Request", "ParseRequest", "decode body")
	}
	return r, nil
}

// UnmarshalJSON decodes known request fields and retains everything else.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.raw = raw

	for key, target := range map[string]*string{
		"query":          &r.Query,
		"queryId":        &r.QueryID,
		"operationName":  &r.OperationName,
		"operation_name": &r.AltOperationName,
	} {
		if value, ok := raw[key]; ok {
			if err := json.Unmarshal(value, target); err != nil {
				return err
			}
		}
	}

	if value, ok := raw["extensions"]; ok {
		if err := json.Unmarshal(value, &r.extensions); err != nil {
			return err
		}
		if pq, ok := r.extensions[persistedQueryExtensionKey]; ok {
			var ext persistedQueryExtension
			if err := json.Unmarshal(pq, &ext); err != nil {
				return err
			}
			r.persistedQueryHash = ext.Sha256Hash
		}
	}

	return nil
}

// MarshalJSON re-encodes the request with current field values applied over
// the original body fields.
func (r *Request) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.raw)+2)
	for key, value := range r.raw {
		out[key] = value
	}

	setOrDelete := func(key, value string) error {
		if value == "" {
			delete(out, key)
			return nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return err
		}
		out[key] = encoded
		return nil
	}

	if err := setOrDelete("query", r.Query); err != nil {
		return nil, err
	}
	if err := setOrDelete("queryId", r.QueryID); err != nil {
		return nil, err
	}

	if len(r.extensions) == 0 {
		delete(out, "extensions")
	} else {
		encoded, err := json.Marshal(r.extensions)
		if err != nil {
			return nil, err
		}
		out["extensions"] = encoded
	}

	return json.Marshal(out)
}

// RequestFromValues builds a Request from GET query string parameters, the
// shape Apollo clients use for cacheable persisted query requests.
func RequestFromValues(values url.Values) (*Request, error) {
	r := &Request{
		Query:            values.Get("query"),
		QueryID:          values.Get("queryId"),
		OperationName:    values.Get("operationName"),
		AltOperationName: values.Get("operation_name"),
	}

	if raw := values.Get("extensions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.extensions); err != nil {
			return nil, errors.WrapInvalid(err, "Request", "RequestFromValues", "decode extensions")
		}
		if pq, ok := r.extensions[persistedQueryExtensionKey]; ok {
			var ext persistedQueryExtension
			if err := json.Unmarshal(pq, &ext); err != nil {
				return nil, errors.WrapInvalid(err, "Request", "RequestFromValues", "decode persistedQuery")
			}
			r.persistedQueryHash = ext.Sha256Hash
		}
	}

	return r, nil
}

// ApplyToValues writes the current field values back onto GET query string
// parameters, mirroring MarshalJSON for the query string transport.
func (r *Request) ApplyToValues(values url.Values) error {
	if r.Query != "" {
		values.Set("query", r.Query)
	} else {
		values.Del("query")
	}

	if r.QueryID != "" {
		values.Set("queryId", r.QueryID)
	} else {
		values.Del("queryId")
	}

	if len(r.extensions) == 0 {
		values.Del("extensions")
	} else {
		encoded, err := json.Marshal(r.extensions)
		if err != nil {
			return err
		}
		values.Set("extensions", string(encoded))
	}

	return nil
}
