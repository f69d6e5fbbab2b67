package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/izzyreal/wsbridge/internal/store"
)

const testWorkspaceJSON = `{
  "id": 1,
  "name": "Big Bank plc",
  "model": {
    "people": [
      {"id": "1", "name": "Customer", "description": "A customer of the bank.", "tags": "Element,Person",
       "relationships": [{"id": "10", "sourceId": "1", "destinationId": "2", "description": "Views account balances", "technology": "HTTPS"}]}
    ],
    "softwareSystems": [
      {"id": "2", "name": "Internet Banking", "tags": "Element,Software System",
       "containers": [
         {"id": "3", "name": "API Application", "technology": "Go", "properties": {"owner": "payments", "structurizr.dsl.identifier": "api"},
          "components": [{"id": "4", "name": "Accounts Controller", "technology": "chi"}]}
       ]}
    ]
  }
}`

func newTestState(t *testing.T) *stateStore {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "wsbridge.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &stateStore{db: db, lockTimeout: 2 * time.Minute, instanceID: "test-instance"}
}

func newTestHTTPServer(t *testing.T) (*httptest.Server, *stateStore) {
	t.Helper()
	s := newTestState(t)
	ts := httptest.NewServer(buildRouter(s))
	t.Cleanup(ts.Close)
	return ts, s
}

func mustRequest(t *testing.T, client *http.Client, method, target, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request %s %s: %v", method, target, err)
	}
	return resp
}

func putWorkspace(t *testing.T, ts *httptest.Server, path, doc, agent string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, ts.URL+path, bytes.NewBufferString(doc))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	if agent != "" {
		req.Header.Set("X-User-Agent", agent)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("put workspace: %v", err)
	}
	return resp
}

func lockForm(agent, user string) io.Reader {
	form := url.Values{"agent": {agent}}
	if user != "" {
		form.Set("user", user)
	}
	return strings.NewReader(form.Encode())
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response (status %d): %v", resp.StatusCode, err)
	}
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
