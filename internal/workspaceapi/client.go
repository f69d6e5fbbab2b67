package workspaceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/izzyreal/wsbridge/internal/protocol"
	"github.com/izzyreal/wsbridge/internal/version"
	"golang.org/x/mod/semver"
)

const (
	DefaultServerURL   = "http://127.0.0.1:8113"
	MinimumAPIVersion  = "v1.0.0"
	workspaceMediaType = "application/json; charset=UTF-8"
	maxErrorBodyBytes  = 4 * 1024
)

// APIError is a well-formed failure reported by the workspace API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("workspace api error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("workspace api error: status=%d message=%s", e.StatusCode, e.Message)
}

type Config struct {
	ServerURL   string
	APIURL      string
	WorkspaceID int64
	Branch      string
	User        string
	Agent       string
	HTTPClient  *http.Client
}

// Client talks to the workspace API on behalf of one workspace.
type Client struct {
	http        *http.Client
	serverURL   string
	apiURL      string
	workspaceID int64
	user        string
	agent       string

	mu     sync.Mutex
	branch string
}

func NewClient(cfg Config) *Client {
	serverURL := strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = serverURL + "/api"
	}
	agent := strings.TrimSpace(cfg.Agent)
	if agent == "" {
		agent = DefaultAgent()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		http:        httpClient,
		serverURL:   serverURL,
		apiURL:      apiURL,
		workspaceID: cfg.WorkspaceID,
		user:        strings.TrimSpace(cfg.User),
		agent:       agent,
		branch:      strings.TrimSpace(cfg.Branch),
	}
}

// DefaultAgent identifies this process: product token plus a random suffix
// so two clients run by the same user hold distinct locks.
func DefaultAgent() string {
	return version.Agent() + "/" + uuid.NewString()
}

func (c *Client) Agent() string      { return c.agent }
func (c *Client) WorkspaceID() int64 { return c.workspaceID }

func (c *Client) SetBranch(branch string) {
	c.mu.Lock()
	c.branch = strings.TrimSpace(branch)
	c.mu.Unlock()
}

func (c *Client) workspaceURL() string {
	c.mu.Lock()
	branch := c.branch
	c.mu.Unlock()
	u := c.apiURL + "/workspace/" + strconv.FormatInt(c.workspaceID, 10)
	if branch != "" {
		u += "/branch/" + url.PathEscape(branch)
	}
	return u
}

func (c *Client) GetWorkspace(ctx context.Context, version string) (protocol.Workspace, error) {
	u := c.workspaceURL()
	if v := strings.TrimSpace(version); v != "" {
		u += "?version=" + url.QueryEscape(v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return protocol.Workspace{}, fmt.Errorf("create get workspace request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return protocol.Workspace{}, fmt.Errorf("send get workspace request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return protocol.Workspace{}, apiErrorFromResponse(resp)
	}

	var ws protocol.Workspace
	if err := json.NewDecoder(resp.Body).Decode(&ws); err != nil {
		return protocol.Workspace{}, fmt.Errorf("decode workspace: %w", err)
	}
	return ws, nil
}

// PutWorkspace stamps ws with the modification metadata and stores it.
func (c *Client) PutWorkspace(ctx context.Context, ws *protocol.Workspace) error {
	now := time.Now().UTC()
	ws.LastModifiedDate = &now
	ws.LastModifiedAgent = c.agent
	ws.LastModifiedUser = c.user

	body, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("marshal workspace: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.workspaceURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create put workspace request: %w", err)
	}
	req.Header.Set("Content-Type", workspaceMediaType)
	req.Header.Set("X-User-Agent", ws.LastModifiedAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send put workspace request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFromResponse(resp)
	}
	var apiResp protocol.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode put workspace response: %w", err)
		}
		apiResp.Success = true
	}
	if !apiResp.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: apiResp.Message}
	}
	if apiResp.Revision > 0 {
		ws.Revision = apiResp.Revision
	}
	slog.Info("workspace stored", "workspace_id", c.workspaceID, "agent", c.agent, "revision", ws.Revision)
	return nil
}

// RenewLock asks the server to (re)acquire the edit lock for agent. A
// rejected lock is a successful call with Success false; only transport
// failures and non-2xx responses are returned as errors.
func (c *Client) RenewLock(ctx context.Context, workspaceID int64, agent string) (protocol.LockResponse, error) {
	form := url.Values{}
	form.Set("agent", agent)
	if c.user != "" {
		form.Set("user", c.user)
	}
	u := c.serverURL + "/api/workspace/" + strconv.FormatInt(workspaceID, 10) + "/lock"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, strings.NewReader(form.Encode()))
	if err != nil {
		return protocol.LockResponse{}, fmt.Errorf("create lock request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return protocol.LockResponse{}, fmt.Errorf("send lock request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return protocol.LockResponse{}, fmt.Errorf("lock rejected: status=%d body=%s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var lockResp protocol.LockResponse
	if err := json.NewDecoder(resp.Body).Decode(&lockResp); err != nil {
		return protocol.LockResponse{}, fmt.Errorf("decode lock response: %w", err)
	}
	return lockResp, nil
}

// ReleaseLock sends the unlock beacon. The response body is not inspected.
func (c *Client) ReleaseLock(ctx context.Context, workspaceID int64, agent string) error {
	u := c.serverURL + "/workspace/" + strconv.FormatInt(workspaceID, 10) + "/unlock?agent=" + url.QueryEscape(agent)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("create unlock request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send unlock request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unlock rejected: status=%d", resp.StatusCode)
	}
	return nil
}

func (c *Client) ServerInfo(ctx context.Context) (protocol.ServerInfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/server-info", nil)
	if err != nil {
		return protocol.ServerInfoResponse{}, fmt.Errorf("create server info request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return protocol.ServerInfoResponse{}, fmt.Errorf("send server info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return protocol.ServerInfoResponse{}, fmt.Errorf("server info rejected: status=%d body=%s", resp.StatusCode, bytes.TrimSpace(respBody))
	}
	var info protocol.ServerInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return protocol.ServerInfoResponse{}, fmt.Errorf("decode server info: %w", err)
	}
	return info, nil
}

// CheckCompatible fails when the server speaks an API older than this
// client needs, or a different major version.
func CheckCompatible(info protocol.ServerInfoResponse) error {
	v := strings.TrimSpace(info.APIVersion)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("server reported invalid api version %q", info.APIVersion)
	}
	if semver.Major(v) != semver.Major(MinimumAPIVersion) {
		return fmt.Errorf("server api version %s is not compatible with %s", v, MinimumAPIVersion)
	}
	if semver.Compare(v, MinimumAPIVersion) < 0 {
		return fmt.Errorf("server api version %s is older than required %s", v, MinimumAPIVersion)
	}
	return nil
}

func apiErrorFromResponse(resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var decoded protocol.APIResponse
	if err := json.Unmarshal(respBody, &decoded); err == nil && decoded.Message != "" {
		apiErr.Message = decoded.Message
	} else {
		apiErr.Message = string(bytes.TrimSpace(respBody))
	}
	return apiErr
}
