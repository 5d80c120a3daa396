// Copyright 2025 the assetman authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
)

// 🌐 RESTClient talks to the hosted catalog over its JSON REST API. It owns
// request framing and HTTP-status classification; callers only ever see
// kind-tagged *Error values.
type RESTClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// RESTOption customizes a RESTClient
type RESTOption func(*RESTClient)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests
func WithHTTPClient(c *http.Client) RESTOption {
	return func(r *RESTClient) {
		r.http = c
	}
}

// WithCallTimeout bounds each individual remote call
func WithCallTimeout(d time.Duration) RESTOption {
	return func(r *RESTClient) {
		r.timeout = d
	}
}

// NewRESTClient builds a catalog client against baseURL, authorizing every
// request with tokens from ts.
func NewRESTClient(ctx context.Context, baseURL string, ts oauth2.TokenSource, opts ...RESTOption) (*RESTClient, error) {
	if baseURL == "" {
		return nil, errors.Errorf("catalog base URL is required")
	}
	c := &RESTClient{
		baseURL: baseURL,
		http:    oauth2.NewClient(ctx, ts),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type restAsset struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	SizeBytes  int64             `json:"sizeBytes,string,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type restAssetList struct {
	Assets        []restAsset `json:"assets"`
	NextPageToken string      `json:"nextPageToken"`
}

type restACL struct {
	Owners          []string `json:"owners,omitempty"`
	Writers         []string `json:"writers,omitempty"`
	Readers         []string `json:"readers,omitempty"`
	AllUsersCanRead bool     `json:"allUsersCanRead,omitempty"`
}

type restQuotaBucket struct {
	Usage int64 `json:"usage,string"`
	Limit int64 `json:"limit,string"`
}

type restQuota struct {
	AssetCount restQuotaBucket `json:"assetCount"`
	AssetSize  restQuotaBucket `json:"assetSize"`
}

type restTask struct {
	ID            string  `json:"id"`
	Type          string  `json:"task_type"`
	State         string  `json:"state"`
	Description   string  `json:"description"`
	CreationMs    int64   `json:"creation_timestamp_ms"`
	UpdateMs      int64   `json:"update_timestamp_ms"`
	BatchEECUSecs float64 `json:"batch_eecu_usage_seconds"`
}

type restTaskList struct {
	Tasks []restTask `json:"tasks"`
}

func (a restAsset) toAsset() *Asset {
	return &Asset{
		Path:       a.Name,
		Type:       ParseAssetType(a.Type),
		SizeBytes:  a.SizeBytes,
		Properties: a.Properties,
	}
}

func (t restTask) toStatus() TaskStatus {
	return TaskStatus{
		ID:           t.ID,
		Kind:         t.Type,
		State:        t.State,
		Description:  t.Description,
		CreatedAt:    time.UnixMilli(t.CreationMs),
		UpdatedAt:    time.UnixMilli(t.UpdateMs),
		ResourceUsed: t.BatchEECUSecs,
	}
}

// GetAsset implements Client
func (c *RESTClient) GetAsset(ctx context.Context, path string) (*Asset, error) {
	var out restAsset
	if err := c.do(ctx, http.MethodGet, c.assetURL(path), nil, &out, "getAsset", path); err != nil {
		return nil, err
	}
	return out.toAsset(), nil
}

// ListAssets implements Client, following page tokens until exhausted
func (c *RESTClient) ListAssets(ctx context.Context, parent string) ([]*Asset, error) {
	var all []*Asset
	pageToken := ""
	for {
		u := c.assetURL(parent) + ":listAssets"
		if pageToken != "" {
			u += "?pageToken=" + url.QueryEscape(pageToken)
		}
		var out restAssetList
		if err := c.do(ctx, http.MethodGet, u, nil, &out, "listAssets", parent); err != nil {
			return nil, err
		}
		for _, a := range out.Assets {
			all = append(all, a.toAsset())
		}
		if out.NextPageToken == "" {
			return all, nil
		}
		pageToken = out.NextPageToken
	}
}

// CreateAsset implements Client
func (c *RESTClient) CreateAsset(ctx context.Context, path string, typ AssetType) error {
	body := restAsset{Name: path, Type: typ.String()}
	return c.do(ctx, http.MethodPost, c.assetURL(path), body, nil, "createAsset", path)
}

// CopyAsset implements Client
func (c *RESTClient) CopyAsset(ctx context.Context, src, dst string) error {
	body := map[string]string{"destinationName": dst}
	return c.do(ctx, http.MethodPost, c.assetURL(src)+":copy", body, nil, "copyAsset", src)
}

// DeleteAsset implements Client
func (c *RESTClient) DeleteAsset(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, c.assetURL(path), nil, nil, "deleteAsset", path)
}

// GetACL implements Client
func (c *RESTClient) GetACL(ctx context.Context, path string) (*ACL, error) {
	var out restACL
	if err := c.do(ctx, http.MethodGet, c.assetURL(path)+":getAcl", nil, &out, "getAcl", path); err != nil {
		return nil, err
	}
	return &ACL{
		Owners:          out.Owners,
		Writers:         out.Writers,
		Readers:         out.Readers,
		AllUsersCanRead: out.AllUsersCanRead,
	}, nil
}

// SetACL implements Client
func (c *RESTClient) SetACL(ctx context.Context, path string, acl *ACL) error {
	body := restACL{
		Owners:          acl.Owners,
		Writers:         acl.Writers,
		Readers:         acl.Readers,
		AllUsersCanRead: acl.AllUsersCanRead,
	}
	return c.do(ctx, http.MethodPost, c.assetURL(path)+":setAcl", body, nil, "setAcl", path)
}

// DeleteProperty implements Client. The catalog removes a property when its
// value is patched to null.
func (c *RESTClient) DeleteProperty(ctx context.Context, path, key string) error {
	body := map[string]any{
		"properties": map[string]any{key: nil},
		"updateMask": "properties." + key,
	}
	return c.do(ctx, http.MethodPatch, c.assetURL(path), body, nil, "deleteProperty", path)
}

// GetQuota implements Client
func (c *RESTClient) GetQuota(ctx context.Context, root string) (*Quota, error) {
	var out restQuota
	if err := c.do(ctx, http.MethodGet, c.assetURL(root)+":getQuota", nil, &out, "getQuota", root); err != nil {
		return nil, err
	}
	return &Quota{
		AssetCount:   out.AssetCount.Usage,
		MaxAssets:    out.AssetCount.Limit,
		SizeBytes:    out.AssetSize.Usage,
		MaxSizeBytes: out.AssetSize.Limit,
	}, nil
}

// ListTasks implements Client
func (c *RESTClient) ListTasks(ctx context.Context) ([]TaskStatus, error) {
	var out restTaskList
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/tasks", nil, &out, "listTasks", ""); err != nil {
		return nil, err
	}
	statuses := make([]TaskStatus, 0, len(out.Tasks))
	for _, t := range out.Tasks {
		statuses = append(statuses, t.toStatus())
	}
	return statuses, nil
}

// GetTask implements Client
func (c *RESTClient) GetTask(ctx context.Context, id string) (*TaskStatus, error) {
	var out restTask
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/tasks/"+url.PathEscape(id), nil, &out, "getTask", id); err != nil {
		return nil, err
	}
	s := out.toStatus()
	return &s, nil
}

// CancelTask implements Client
func (c *RESTClient) CancelTask(ctx context.Context, id string) error {
	u := c.baseURL + "/v1/tasks/" + url.PathEscape(id) + ":cancel"
	return c.do(ctx, http.MethodPost, u, nil, nil, "cancelTask", id)
}

func (c *RESTClient) assetURL(path string) string {
	return c.baseURL + "/v1/assets/" + url.PathEscape(path)
}

func (c *RESTClient) do(ctx context.Context, method, u string, in, out any, op, path string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return NewError(KindInvalidArgument, op, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return NewError(KindInvalidArgument, op, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	zerolog.Ctx(ctx).Trace().Str("method", method).Str("op", op).Str("path", path).Msg("catalog call")

	resp, err := c.http.Do(req)
	if err != nil {
		return NewError(classifyTransportError(err), op, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return NewError(classifyStatus(resp.StatusCode), op, path,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return NewError(KindUnknown, op, path, errors.Errorf("decoding response: %w", err))
		}
	}
	return nil
}

// classifyStatus folds an HTTP status into the error taxonomy
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindTransient
	case status >= 500:
		return KindTransient
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusForbidden, status == http.StatusUnauthorized:
		return KindPermissionDenied
	case status == http.StatusConflict:
		return KindAlreadyExists
	case status == http.StatusBadRequest:
		return KindInvalidArgument
	default:
		return KindUnknown
	}
}

// classifyTransportError treats timeouts and temporary network failures as
// transient; anything else is unknown and not retried
func classifyTransportError(err error) ErrorKind {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTransient
	}
	return KindUnknown
}
