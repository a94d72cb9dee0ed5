package dispatch

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/AmmannChristian/go-restauth/querycodec"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the Spotify Web API root.
	DefaultBaseURL = "https://api.spotify.com"
	// DefaultVersion is the API version segment used when RequestSpec.Version is empty.
	DefaultVersion = "v1"
	// NoID marks a collection-level request without an id path segment.
	NoID = "-1"
)

// RequestSpec describes one resource request.
type RequestSpec struct {
	// Resource is the path below the version segment, e.g. "albums" or "me/player/volume".
	Resource string
	// ID is appended as the last path segment unless it is empty or NoID.
	ID string
	// Version defaults to DefaultVersion.
	Version string
	// Method is one of GET, PUT, POST or DELETE, matched case-insensitively.
	// It defaults to GET.
	Method string
	// Query parameters; nil values are dropped.
	Query querycodec.Params
	// RequiredScopes must all have been granted or the request is gated.
	RequiredScopes []string
	// Body is sent as-is. ContentType defaults to application/json when Body is set.
	Body        []byte
	ContentType string
}

func (s RequestSpec) method() string {
	method := strings.ToUpper(strings.TrimSpace(s.Method))
	if method == "" {
		return http.MethodGet
	}
	return method
}

func supportedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (s RequestSpec) version() string {
	if s.Version == "" {
		return DefaultVersion
	}
	return s.Version
}

func (s RequestSpec) hasID() bool {
	return s.ID != "" && s.ID != NoID
}

// Result is the outcome of a dispatched request.
//
// A gated result carries the empty JSON object and no status; the request was never
// sent because the required scopes were not granted.
type Result struct {
	// Gated is true when the scope check short-circuited the request.
	Gated bool
	// Acknowledged is true when a PUT, POST or DELETE completed with a 2xx status.
	Acknowledged bool
	StatusCode   int
	Body         []byte
}

var emptyObject = []byte("{}")

func gatedResult() *Result {
	return &Result{Gated: true, Body: emptyObject}
}

// Get returns the value at a gjson path of the body.
func (r *Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// JSON returns the parsed body as a gjson value.
func (r *Result) JSON() gjson.Result {
	return gjson.ParseBytes(r.Body)
}

// Decode unmarshals the body into v.
func (r *Result) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Empty reports whether the body is an empty JSON object or missing.
func (r *Result) Empty() bool {
	parsed := gjson.ParseBytes(r.Body)
	if !parsed.Exists() {
		return true
	}
	return parsed.IsObject() && len(parsed.Map()) == 0
}
