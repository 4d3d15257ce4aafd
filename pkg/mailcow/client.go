// Package mailcow is a minimal client for the slice of the Mailcow admin API
// the bridge drives: mailbox provisioning, mailbox custom attributes, and
// domain-admin grants.
package mailcow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

type Client struct {
	baseUrl string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

// NewClient builds a Mailcow client. Every call is bounded by timeout on top
// of whatever deadline the caller's context already carries.
func NewClient(baseUrl, apiKey string, timeout time.Duration) *Client {
	if !strings.HasSuffix(baseUrl, "/") {
		baseUrl += "/"
	}
	return &Client{
		baseUrl: baseUrl,
		apiKey:  apiKey,
		timeout: timeout,
		http:    cleanhttp.DefaultPooledClient(),
	}
}

// Mailbox is the subset of Mailcow's mailbox object the bridge reads.
type Mailbox struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Active   int    `json:"active_int"`
	Domain   string `json:"domain"`
}

// CreateMailboxParams carries the fields for add/mailbox. Address must be a
// full email address; Mailcow wants it split into local part and domain.
type CreateMailboxParams struct {
	Address     string
	DisplayName string
	Password    string
}

func splitAddress(address string) (local, domain string) {
	if at := strings.LastIndex(address, "@"); at >= 0 {
		return address[:at], address[at+1:]
	}
	return address, ""
}

// CreateMailbox provisions a mailbox with force-password-change semantics.
// A mailbox that already exists is treated as success.
func (c *Client) CreateMailbox(ctx context.Context, params CreateMailboxParams) (err error) {
	local, domain := splitAddress(params.Address)
	payload := map[string]any{
		"active":          "1",
		"domain":          domain,
		"local_part":      local,
		"name":            params.DisplayName,
		"authsource":      "mailcow",
		"password":        params.Password,
		"password2":       params.Password,
		"quota":           "3072",
		"force_pw_update": "1",
		"tls_enforce_in":  "1",
		"tls_enforce_out": "1",
		"tags":            []string{"scim"},
	}
	return c.mutate(ctx, "add/mailbox", params.Address, payload)
}

// GetMailbox returns ErrNotFound for an unknown address.
func (c *Client) GetMailbox(ctx context.Context, address string) (box *Mailbox, err error) {
	var body []byte
	if body, err = c.get(ctx, "get/mailbox/"+url.PathEscape(address), address); err != nil {
		return
	}
	var mb Mailbox
	// Mailcow answers an unknown mailbox with an empty object, not a 404.
	if er1 := json.Unmarshal(body, &mb); er1 != nil || mb.Username == "" {
		err = ErrNotFound
		return
	}
	box = &mb
	return
}

func (c *Client) ListMailboxes(ctx context.Context, domain string) (boxes []Mailbox, err error) {
	var body []byte
	if body, err = c.get(ctx, "get/mailbox/all/"+url.PathEscape(domain), domain); err != nil {
		return
	}
	// An empty domain yields "{}" instead of an empty array.
	if err = json.Unmarshal(body, &boxes); err != nil {
		boxes = nil
		err = nil
	}
	return
}

// SetCustomAttribute rewrites one custom attribute on every listed mailbox.
// Mailcow wants the attribute name repeated once per value.
func (c *Client) SetCustomAttribute(ctx context.Context, addresses []string, attribute string, values []string) (err error) {
	names := make([]string, len(values))
	for i := range values {
		names[i] = attribute
	}
	payload := map[string]any{
		"attr": map[string]any{
			"attribute": names,
			"value":     values,
		},
		"items": addresses,
	}
	return c.mutate(ctx, "edit/mailbox/custom-attribute", strings.Join(addresses, ","), payload)
}

// AddDomainAdmin grants domain-admin on domain to the given mailbox local
// part. An existing grant is success.
func (c *Client) AddDomainAdmin(ctx context.Context, localPart, domain, password string) (err error) {
	payload := map[string]any{
		"active":    "1",
		"domains":   domain,
		"username":  localPart,
		"password":  password,
		"password2": password,
	}
	return c.mutate(ctx, "add/domain-admin", localPart, payload)
}

// DeleteDomainAdmin revokes a domain-admin grant. A missing grant is success.
func (c *Client) DeleteDomainAdmin(ctx context.Context, localPart string) (err error) {
	return c.mutate(ctx, "delete/domain-admin", localPart, []string{localPart})
}

func (c *Client) get(ctx context.Context, path, target string) (body []byte, err error) {
	return c.do(ctx, http.MethodGet, path, target, nil)
}

// mutate POSTs a JSON payload and checks Mailcow's action-result array for
// danger entries. "object_exists" dangers and HTTP 409 are idempotent
// successes.
func (c *Client) mutate(ctx context.Context, path, target string, payload any) (err error) {
	var body []byte
	if body, err = c.do(ctx, http.MethodPost, path, target, payload); err != nil {
		return
	}
	return checkActionResults(path, target, body)
}

func (c *Client) do(ctx context.Context, method, path, target string, payload any) (body []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		var data []byte
		if data, err = json.Marshal(payload); err != nil {
			return
		}
		reader = bytes.NewReader(data)
	}

	var rq *http.Request
	if rq, err = http.NewRequestWithContext(ctx, method, c.baseUrl+path, reader); err != nil {
		return
	}
	rq.Header.Set("X-API-Key", c.apiKey)
	if payload != nil {
		rq.Header.Set("Content-Type", "application/json")
	}

	var rs *http.Response
	if rs, err = c.http.Do(rq); err != nil {
		err = &UpstreamError{Op: path, Target: target, Cause: err}
		return
	}
	defer rs.Body.Close()

	if body, err = io.ReadAll(rs.Body); err != nil {
		err = &UpstreamError{Op: path, Target: target, Cause: err}
		return
	}
	if rs.StatusCode == http.StatusConflict {
		// add/domain-admin answers 409 when the admin already exists.
		err = nil
		body = nil
		return
	}
	if rs.StatusCode >= 300 {
		err = &UpstreamError{Op: path, Target: target, Status: rs.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	return
}

// actionResult is one entry of Mailcow's mutation response array.
type actionResult struct {
	Type string `json:"type"`
	Msg  any    `json:"msg"`
}

func checkActionResults(op, target string, body []byte) (err error) {
	if len(body) == 0 {
		return
	}
	var results []actionResult
	if er1 := json.Unmarshal(body, &results); er1 != nil {
		var single actionResult
		if er2 := json.Unmarshal(body, &single); er2 != nil {
			return
		}
		results = []actionResult{single}
	}
	for _, r := range results {
		if r.Type != "danger" {
			continue
		}
		msg := flattenMsg(r.Msg)
		if strings.Contains(msg, "object_exists") {
			continue
		}
		return &UpstreamError{Op: op, Target: target, Detail: msg}
	}
	return
}

func flattenMsg(msg any) string {
	switch m := msg.(type) {
	case string:
		return m
	case []any:
		var parts []string
		for _, v := range m {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			} else {
				parts = append(parts, fmt.Sprintf("%v", v))
			}
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", msg)
	}
}
