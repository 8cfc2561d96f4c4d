// Package conformance reimplements the shape of
// original_source/proper_test.py's portable conformance runner in Go:
// a small JSON-fixture DSL (requests, expectations, captures,
// substitutions) driven against a real httptest.Server instead of a
// hand-translation of the Python script.
package conformance

// Suite is the root of one conformance fixture file.
type Suite struct {
	SuiteID string         `json:"suite_id"`
	Tokens  map[string]string `json:"tokens"`
	Cases   []Case         `json:"cases"`
}

// Case is one named scenario made of sequential steps.
type Case struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Step is either a request/expect pair or a bare action.
type Step struct {
	Request *Request `json:"request,omitempty"`
	Expect  *Expect  `json:"expect,omitempty"`
	Action  *Action  `json:"action,omitempty"`
}

// Request describes one HTTP call, with ${...} substitution applied to
// Path, Headers, and JSON before sending.
type Request struct {
	Method string                 `json:"method"`
	Path   string                 `json:"path"`
	Token  string                 `json:"token,omitempty"`
	Headers map[string]string    `json:"headers,omitempty"`
	JSON   map[string]interface{} `json:"json,omitempty"`
}

// Expect describes the assertions run against a Request's response.
type Expect struct {
	Status        int             `json:"status"`
	Capture       []Capture       `json:"capture,omitempty"`
	AssertJSON    []JSONAssertion `json:"assert_json,omitempty"`
	AssertHeaders []HeaderAssertion `json:"assert_headers,omitempty"`
}

// Capture extracts a value from the response body into the named
// capture slot for later substitution.
type Capture struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// JSONAssertion checks one path in the decoded response body.
type JSONAssertion struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// HeaderAssertion checks one response header.
type HeaderAssertion struct {
	Op    string `json:"op"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Action is a non-request step: sleep, wait-for-retry-at, or a manual
// capture assignment.
type Action struct {
	Type        string      `json:"type"`
	Seconds     float64     `json:"seconds,omitempty"`
	FromCapture string      `json:"from_capture,omitempty"`
	Name        string      `json:"name,omitempty"`
	Value       interface{} `json:"value,omitempty"`
}
