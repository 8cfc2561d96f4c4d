package conformance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

// TestConcurrentVerifyIsIdempotent drives eight overlapping extended-mode GETs
// against the same just-expired question, the way two admins polling a
// scoreboard at once would. Grading is guarded by Match's single mutex, so
// exactly one caller performs the scoring work; all must observe the same
// graded answers and the same resulting score. This scenario needs real
// concurrent requests, which the sequential fixture DSL in testdata/ cannot
// express, so it is written directly against net/http.
func TestConcurrentVerifyIsIdempotent(t *testing.T) {
	authServer := newFakeAuthServer()
	defer authServer.Close()

	apiServer := newConformanceServer(t, authServer.URL)
	defer apiServer.Close()

	client := apiServer.Client()
	matchID := "m-concurrent-verify"

	createBody, _ := json.Marshal(map[string]interface{}{
		"match_type": "HouseBamzy",
		"home_team":  "home_team",
		"away_team":  "away_team",
		"rounds":     1,
		"qpr":        1,
		"tpq":        []float64{2},
		"ppq":        1,
	})
	mustDo(t, client, apiServer.URL, http.MethodPut, "/matches/"+matchID, "admin_token", createBody, http.StatusCreated)
	mustDo(t, client, apiServer.URL, http.MethodPatch, "/matches/"+matchID, "admin_token", []byte(`{"state":1}`), http.StatusOK)
	mustDo(t, client, apiServer.URL, http.MethodPatch, "/matches/"+matchID, "admin_token", []byte(`{"state":2}`), http.StatusOK)

	submitBody, _ := json.Marshal(map[string]interface{}{"selected_option": 0})
	mustDo(t, client, apiServer.URL, http.MethodPost, "/matches/"+matchID, "hero_token", submitBody, http.StatusOK)

	// Wait past the 2s question duration so the time gate has opened.
	time.Sleep(2300 * time.Millisecond)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]map[string]interface{}, callers)
	statuses := make([]int, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		i := i
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, apiServer.URL+"/matches/"+matchID+"?mode=extended", nil)
			if err != nil {
				t.Errorf("build request %d: %v", i, err)
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				t.Errorf("request %d: %v", i, err)
				return
			}
			defer resp.Body.Close()
			var body map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Errorf("decode response %d: %v", i, err)
				return
			}
			statuses[i] = resp.StatusCode
			results[i] = body
		}()
	}
	wg.Wait()

	for i, status := range statuses {
		if status != http.StatusOK {
			t.Fatalf("caller %d: expected 200, got %d", i, status)
		}
	}

	first := results[0]
	firstScore := first["home_score"]
	firstAnswers, ok := first["answers"].([]interface{})
	if !ok {
		t.Fatalf("caller 0: answers was not a list: %#v", first["answers"])
	}
	if len(firstAnswers) != 1 {
		t.Fatalf("expected exactly one graded answer, got %d", len(firstAnswers))
	}
	for i, body := range results[1:] {
		if body["home_score"] != firstScore {
			t.Errorf("caller %d: home_score %v diverges from caller 0's %v", i+1, body["home_score"], firstScore)
		}
		answers, ok := body["answers"].([]interface{})
		if !ok || len(answers) != len(firstAnswers) {
			t.Errorf("caller %d: answers %#v diverges from caller 0's %#v", i+1, body["answers"], firstAnswers)
		}
	}

	// A further GET after all concurrent callers settle must still replay the
	// same cached, graded result rather than re-score the question.
	finalResp := mustDo(t, client, apiServer.URL, http.MethodGet, "/matches/"+matchID+"?mode=extended", "", nil, http.StatusOK)
	var final map[string]interface{}
	if err := json.Unmarshal(finalResp, &final); err != nil {
		t.Fatalf("decode final response: %v", err)
	}
	if final["home_score"] != firstScore {
		t.Fatalf("final replay: home_score %v diverges from %v", final["home_score"], firstScore)
	}
}

func mustDo(t *testing.T, client *http.Client, baseURL, method, path, token string, body []byte, wantStatus int) []byte {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := new(bytes.Buffer)
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body for %s %s: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d (body: %s)", method, path, wantStatus, resp.StatusCode, out.String())
	}
	return out.Bytes()
}
