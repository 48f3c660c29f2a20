package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/registry"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// Client is a typed HTTP/JSON client for SkyShift's control-plane API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient overrides the underlying *http.Client (e.g. for custom
// timeouts or transport in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a Client against baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func objectPath(kind types.Kind, namespace, name string) (string, error) {
	d, ok := registry.Lookup(kind)
	if !ok {
		return "", fmt.Errorf("client: unknown kind %q", kind)
	}
	var b strings.Builder
	b.WriteByte('/')
	if d.Namespaced {
		if namespace == "" {
			namespace = "default"
		}
		b.WriteString(namespace)
		b.WriteByte('/')
	}
	b.WriteString(d.Plural)
	if name != "" {
		b.WriteByte('/')
		b.WriteString(name)
	}
	return b.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, skyerrors.Transient(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, skyerrors.Transient(err)
	}
	return resp, nil
}

// errorFromResponse decodes pkg/api's {"error": "...", "current_resource_version": N}
// body into a *skyerrors.Error tagged by HTTP status.
func errorFromResponse(resp *http.Response) error {
	defer resp.Body.Close()
	var body struct {
		Error          string `json:"error"`
		CurrentVersion *int64 `json:"current_resource_version"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return skyerrors.Validation(fmt.Errorf(body.Error))
	case http.StatusNotFound:
		return skyerrors.NotFound(body.Error)
	case http.StatusConflict:
		var version int64
		if body.CurrentVersion != nil {
			version = *body.CurrentVersion
		}
		return skyerrors.Conflict(body.Error, version)
	case http.StatusBadGateway:
		return skyerrors.Adapter(fmt.Errorf(body.Error))
	case http.StatusServiceUnavailable:
		return skyerrors.Transient(fmt.Errorf(body.Error))
	default:
		return skyerrors.Fatal(fmt.Errorf("%s: %s", resp.Status, body.Error))
	}
}

// Get fetches one object by kind/namespace/name into out.
func (c *Client) Get(ctx context.Context, kind types.Kind, namespace, name string, out types.Object) error {
	path, err := objectPath(kind, namespace, name)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// List fetches every object of kind in namespace as raw JSON messages, one
// per object, for the caller to unmarshal into a concrete type.
func (c *Client) List(ctx context.Context, kind types.Kind, namespace string) ([]json.RawMessage, error) {
	path, err := objectPath(kind, namespace, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}
	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, skyerrors.Fatal(err)
	}
	return items, nil
}

// Create persists a new object; obj's namespace is taken from its own
// metadata. obj is updated in place with the server-assigned resource_version.
func (c *Client) Create(ctx context.Context, obj types.Object) error {
	path, err := objectPath(obj.ObjectKind(), obj.GetMeta().Namespace, "")
	if err != nil {
		return err
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return skyerrors.Validation(err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return errorFromResponse(resp)
	}
	return json.NewDecoder(resp.Body).Decode(obj)
}

// Update writes obj with its metadata.resource_version as the CAS token.
// obj is updated in place with the new resource_version on success.
func (c *Client) Update(ctx context.Context, obj types.Object) error {
	meta := obj.GetMeta()
	path, err := objectPath(obj.ObjectKind(), meta.Namespace, meta.Name)
	if err != nil {
		return err
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return skyerrors.Validation(err)
	}
	resp, err := c.do(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return json.NewDecoder(resp.Body).Decode(obj)
}

// Delete removes kind/namespace/name.
func (c *Client) Delete(ctx context.Context, kind types.Kind, namespace, name string) error {
	path, err := objectPath(kind, namespace, name)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// GetJobLogs fetches the supplemented logs endpoint (SPEC_FULL.md §12).
func (c *Client) GetJobLogs(ctx context.Context, namespace, name string) (string, error) {
	path, err := objectPath(types.KindJob, namespace, name)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodGet, path+"/logs", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", skyerrors.Transient(err)
	}
	return string(data), nil
}
