package tmx

import (
	"net/url"
	"strings"
)

// PageSize is the number of results requested per page. A page holding
// fewer results is the last one.
const PageSize = 1000

// Param is a single query parameter.
type Param struct {
	Key   string
	Value string
}

// APIRequest is an API endpoint plus an ordered list of query parameters.
//
// Unlike url.Values, APIRequest keeps insertion order and allows the same
// key more than once, which the TMX API uses for repeated filters such as
// tag=7&tag=3.
type APIRequest struct {
	Endpoint string
	params   []Param
}

// NewAPIRequest creates a request for endpoint with no parameters.
func NewAPIRequest(endpoint string) *APIRequest {
	return &APIRequest{Endpoint: endpoint}
}

// Add appends a parameter, keeping any existing ones with the same key.
func (r *APIRequest) Add(key, value string) {
	r.params = append(r.params, Param{Key: key, Value: value})
}

// Set replaces the first parameter named key, or appends it.
func (r *APIRequest) Set(key, value string) {
	for i := range r.params {
		if r.params[i].Key == key {
			r.params[i].Value = value
			return
		}
	}
	r.Add(key, value)
}

// Get returns the first value for key.
func (r *APIRequest) Get(key string) (string, bool) {
	for _, p := range r.params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// All returns every value for key in insertion order.
func (r *APIRequest) All(key string) []string {
	var values []string
	for _, p := range r.params {
		if p.Key == key {
			values = append(values, p.Value)
		}
	}
	return values
}

// Params returns a copy of the parameters.
func (r *APIRequest) Params() []Param {
	return append([]Param(nil), r.params...)
}

// Clone returns a deep copy.
func (r *APIRequest) Clone() *APIRequest {
	return &APIRequest{Endpoint: r.Endpoint, params: r.Params()}
}

// Encode returns the parameters as an escaped query string in insertion order.
func (r *APIRequest) Encode() string {
	var sb strings.Builder
	for i, p := range r.params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

// URL returns the full request URL.
func (r *APIRequest) URL() string {
	if len(r.params) == 0 {
		return r.Endpoint
	}
	return r.Endpoint + "?" + r.Encode()
}

// String implements fmt.Stringer.
func (r *APIRequest) String() string {
	return r.URL()
}
