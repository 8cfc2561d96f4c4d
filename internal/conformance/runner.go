package conformance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"
)

// Context carries the running state of one suite: the server base URL,
// per-token bearer values, and named captures available for ${...}
// substitution in later steps.
type Context struct {
	BaseURL  string
	Tokens   map[string]string
	Captures map[string]interface{}
	Client   *http.Client
}

// NewContext builds a Context pointed at an already-running test server.
func NewContext(baseURL string, tokens map[string]string) *Context {
	return &Context{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Tokens:   tokens,
		Captures: map[string]interface{}{},
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

var substitutionPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func (c *Context) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if v, ok := c.Captures[strings.TrimPrefix(ref, "captures.")]; ok {
		return fmt.Sprint(v), nil
	}
	if v, ok := c.Captures[ref]; ok {
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("unknown substitution reference %q", ref)
}

func (c *Context) substitute(s string) (string, error) {
	var firstErr error
	out := substitutionPattern.ReplaceAllStringFunc(s, func(m string) string {
		ref := m[2 : len(m)-1]
		val, err := c.resolve(ref)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return val
	})
	return out, firstErr
}

func (c *Context) substituteJSON(body map[string]interface{}) (map[string]interface{}, error) {
	if body == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(body))
	for k, v := range body {
		sv, err := c.substituteValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = sv
	}
	return out, nil
}

func (c *Context) substituteValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return c.substitute(val)
	case map[string]interface{}:
		return c.substituteJSON(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			sv, err := c.substituteValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	default:
		return v, nil
	}
}

// RunSuite executes every case in the suite sequentially against the
// Context's base URL, failing the test at the first unmet expectation.
func RunSuite(t *testing.T, ctx *Context, suite Suite) {
	t.Helper()
	for _, c := range suite.Cases {
		c := c
		t.Run(c.ID+"_"+c.Name, func(t *testing.T) {
			for i, step := range c.Steps {
				if err := runStep(t, ctx, step); err != nil {
					t.Fatalf("step %d/%d: %v", i+1, len(c.Steps), err)
				}
			}
		})
	}
}

func runStep(t *testing.T, ctx *Context, step Step) error {
	t.Helper()
	if step.Action != nil {
		return runAction(ctx, *step.Action)
	}
	if step.Request == nil || step.Expect == nil {
		return fmt.Errorf("step must have either an action or a request+expect pair")
	}
	return runRequest(ctx, *step.Request, *step.Expect)
}

func runAction(ctx *Context, action Action) error {
	switch action.Type {
	case "sleep":
		if action.Seconds > 0 {
			time.Sleep(time.Duration(action.Seconds * float64(time.Second)))
		}
		return nil
	case "wait_from_try_again_at":
		raw, ok := ctx.Captures[action.FromCapture]
		if !ok {
			return fmt.Errorf("missing capture %q for wait_from_try_again_at", action.FromCapture)
		}
		return waitFromTryAgainAt(fmt.Sprint(raw))
	case "set_capture":
		v, err := ctx.substituteValue(action.Value)
		if err != nil {
			return err
		}
		ctx.Captures[action.Name] = v
		return nil
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

var tryAgainPattern = regexp.MustCompile(`Try again at (.+)$`)

// waitFromTryAgainAt parses the exact sentence matchcore.Error renders
// ("Try again at <RFC3339>") and sleeps until that instant plus a small
// fudge factor, matching original_source/proper_test.py's
// wait_from_try_again_at helper.
func waitFromTryAgainAt(text string) error {
	m := tryAgainPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return fmt.Errorf("could not find 'Try again at <timestamp>' in %q", text)
	}
	when, err := time.Parse(time.RFC3339, strings.TrimSpace(m[1]))
	if err != nil {
		return fmt.Errorf("parse retry timestamp: %w", err)
	}
	if delta := time.Until(when); delta > 0 {
		time.Sleep(delta + time.Second)
	}
	return nil
}

func runRequest(ctx *Context, req Request, expect Expect) error {
	path, err := ctx.substitute(req.Path)
	if err != nil {
		return err
	}
	body, err := ctx.substituteJSON(req.JSON)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequest(strings.ToUpper(req.Method), ctx.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		sv, err := ctx.substitute(v)
		if err != nil {
			return err
		}
		httpReq.Header.Set(k, sv)
	}
	if req.Token != "" {
		token, ok := ctx.Tokens[req.Token]
		if !ok {
			return fmt.Errorf("unknown token name %q", req.Token)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ctx.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expect.Status {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 600))
		return fmt.Errorf("status mismatch: want=%d got=%d method=%s path=%s body=%q",
			expect.Status, resp.StatusCode, req.Method, req.Path, raw)
	}

	for _, ha := range expect.AssertHeaders {
		if err := assertHeader(ha, resp); err != nil {
			return err
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	var doc interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			doc = nil
		}
	}

	for _, cap := range expect.Capture {
		if doc == nil {
			return fmt.Errorf("cannot capture %q because response is not JSON", cap.Name)
		}
		v, err := getByPath(doc, cap.Path)
		if err != nil {
			return err
		}
		ctx.Captures[cap.Name] = v
	}

	for _, ja := range expect.AssertJSON {
		if doc == nil {
			return fmt.Errorf("assert_json specified but response is not JSON")
		}
		if err := assertJSON(ctx, ja, doc); err != nil {
			return err
		}
	}
	return nil
}

func assertHeader(ha HeaderAssertion, resp *http.Response) error {
	actual := resp.Header.Get(ha.Name)
	switch ha.Op {
	case "exists":
		if actual == "" {
			return fmt.Errorf("expected header %q to exist", ha.Name)
		}
	case "eq":
		if actual != ha.Value {
			return fmt.Errorf("header %q mismatch: want=%q got=%q", ha.Name, ha.Value, actual)
		}
	default:
		return fmt.Errorf("unknown assert_headers op %q", ha.Op)
	}
	return nil
}

func assertJSON(ctx *Context, ja JSONAssertion, doc interface{}) error {
	actual, err := getByPath(doc, ja.Path)
	if err != nil {
		return err
	}
	switch ja.Op {
	case "exists":
		if actual == nil {
			return fmt.Errorf("expected %q to exist and be non-null", ja.Path)
		}
	case "eq":
		if fmt.Sprint(actual) != fmt.Sprint(ja.Value) {
			return fmt.Errorf("eq failed at %q: want=%v got=%v", ja.Path, ja.Value, actual)
		}
	case "ne":
		if fmt.Sprint(actual) == fmt.Sprint(ja.Value) {
			return fmt.Errorf("ne failed at %q: value unexpectedly equals %v", ja.Path, ja.Value)
		}
	case "gte":
		a, w, err := numericPair(actual, ja.Value)
		if err != nil {
			return err
		}
		if !(a >= w) {
			return fmt.Errorf("gte failed at %q: want>=%v got=%v", ja.Path, w, a)
		}
	case "gt":
		a, w, err := numericPair(actual, ja.Value)
		if err != nil {
			return err
		}
		if !(a > w) {
			return fmt.Errorf("gt failed at %q: want>%v got=%v", ja.Path, w, a)
		}
	default:
		return fmt.Errorf("unknown assert_json op %q", ja.Op)
	}
	return nil
}

func numericPair(actual, want interface{}) (float64, float64, error) {
	a, ok := toFloat(actual)
	if !ok {
		return 0, 0, fmt.Errorf("expected numeric actual, got %T", actual)
	}
	w, ok := toFloat(want)
	if !ok {
		return 0, 0, fmt.Errorf("expected numeric want, got %T", want)
	}
	return a, w, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
