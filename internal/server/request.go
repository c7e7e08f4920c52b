package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

const (
	contentTypeJSON           = "application/json"
	contentTypeGraphQL        = "application/graphql"
	contentTypeFormURLEncoded = "application/x-www-form-urlencoded"
)

// Request is a GraphQL request as sent over HTTP.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Some clients send variables as a JSON encoded string.
type requestStringVariables struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
	Variables     string `json:"variables"`
}

var errMissingQuery = errors.New("missing query")

// parseRequest reads a GraphQL request from the query string of a GET, or
// from a POST body encoded as JSON, application/graphql or a form.
func parseRequest(r *http.Request) (*Request, error) {
	if r.Method == http.MethodGet {
		return fromValues(r.URL.Query())
	}
	if r.Method != http.MethodPost {
		return nil, errors.Errorf("method %s not allowed", r.Method)
	}

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch contentType {
	case contentTypeGraphQL:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading body")
		}
		if len(body) == 0 {
			return nil, errMissingQuery
		}
		return &Request{Query: string(body)}, nil

	case contentTypeFormURLEncoded:
		if err := r.ParseForm(); err != nil {
			return nil, errors.Wrap(err, "parsing form")
		}
		return fromValues(r.PostForm)

	case contentTypeJSON, "":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading body")
		}
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			var compat requestStringVariables
			if json.Unmarshal(body, &compat) != nil {
				return nil, errors.Wrap(err, "decoding body")
			}
			req = Request{Query: compat.Query, OperationName: compat.OperationName}
			if err := decodeVariables(compat.Variables, &req); err != nil {
				return nil, err
			}
		}
		if req.Query == "" {
			return nil, errMissingQuery
		}
		return &req, nil

	default:
		return nil, errors.Errorf("unsupported content type %q", contentType)
	}
}

func fromValues(values url.Values) (*Request, error) {
	req := &Request{
		Query:         values.Get("query"),
		OperationName: values.Get("operationName"),
	}
	if req.Query == "" {
		return nil, errMissingQuery
	}
	if err := decodeVariables(values.Get("variables"), req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeVariables(raw string, req *Request) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
		return errors.Wrap(err, "decoding variables")
	}
	return nil
}
