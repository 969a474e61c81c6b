package dnsimple

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hostsolo/hostsolo/pkg/dns"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/httputil"
)

const (
	dnsimpleAPIURL = "https://api.dnsimple.com/v2"
	perPage        = 100
)

// Provider implements the DNS Provider interface for DNSimple
type Provider struct {
	token     string
	accountID string
	baseURL   string
	client    *retryablehttp.Client
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at another API endpoint, such as the
// DNSimple sandbox.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client.HTTPClient = c }
}

// newClient returns a client that makes exactly one attempt per request and
// hands every response, including 5xx, back to the caller.
func newClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient = httputil.CreateHTTPClient(30 * time.Second)
	c.RetryMax = 0
	c.Logger = nil
	c.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, err
	}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

// NewProvider creates a new DNSimple provider
func NewProvider(token, accountID string, opts ...Option) (*Provider, error) {
	token = strings.TrimSpace(token)
	accountID = strings.TrimSpace(accountID)
	if token == "" {
		return nil, errdefs.Invalid("DNSIMPLE_TOKEN", "DNSimple API token is required")
	}
	if accountID == "" {
		return nil, errdefs.Invalid("DNSIMPLE_ACCOUNT_ID", "DNSimple account ID is required")
	}

	p := &Provider{
		token:     token,
		accountID: accountID,
		baseURL:   dnsimpleAPIURL,
		client:    newClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// dnsimpleRecord represents a zone record in DNSimple's API
type dnsimpleRecord struct {
	ID      int64  `json:"id"`
	ZoneID  string `json:"zone_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Type    string `json:"type"`
}

type pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

func (p *Provider) recordsURL(domain string) string {
	return fmt.Sprintf("%s/%s/zones/%s/records", p.baseURL, url.PathEscape(p.accountID), url.PathEscape(domain))
}

// do sends a request and decodes the "data" envelope into out when out is non-nil.
func (p *Provider) do(ctx context.Context, op, method, endpoint string, body any, out any) error {
	var raw any
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		raw = jsonBody
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, raw)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return &errdefs.ExternalError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &errdefs.ExternalError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(bodyBytes))),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (p *Provider) listRecords(ctx context.Context, domain string, filter url.Values) ([]dnsimpleRecord, error) {
	var all []dnsimpleRecord
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range filter {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))

		var result struct {
			Data       []dnsimpleRecord `json:"data"`
			Pagination pagination       `json:"pagination"`
		}
		if err := p.do(ctx, "list records", http.MethodGet, p.recordsURL(domain)+"?"+q.Encode(), nil, &result); err != nil {
			return nil, err
		}
		all = append(all, result.Data...)

		if result.Pagination.TotalPages <= page {
			return all, nil
		}
	}
}

// ListRecords lists all DNS records for a domain
func (p *Provider) ListRecords(ctx context.Context, domain string) ([]*dns.Record, error) {
	recs, err := p.listRecords(ctx, domain, nil)
	if err != nil {
		return nil, err
	}

	records := make([]*dns.Record, len(recs))
	for i, r := range recs {
		records[i] = toRecord(domain, r)
	}
	return records, nil
}

// UpsertRecord creates the record, or patches content and TTL of the
// existing record with the same name and type.
func (p *Provider) UpsertRecord(ctx context.Context, req dns.UpsertRecordRequest) (*dns.Record, error) {
	existing, err := p.find(ctx, req.Domain, req.Name, req.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to look up record: %w", err)
	}

	ttl := dns.TTLOrDefault(req.TTL)
	var result struct {
		Data dnsimpleRecord `json:"data"`
	}

	if existing != nil {
		body := map[string]any{
			"content": req.Value,
			"ttl":     ttl,
		}
		endpoint := fmt.Sprintf("%s/%d", p.recordsURL(req.Domain), existing.ID)
		if err := p.do(ctx, "update record", http.MethodPatch, endpoint, body, &result); err != nil {
			return nil, err
		}
		return toRecord(req.Domain, result.Data), nil
	}

	body := map[string]any{
		"name":    toWireName(req.Name),
		"type":    string(req.Type),
		"content": req.Value,
		"ttl":     ttl,
	}
	if err := p.do(ctx, "create record", http.MethodPost, p.recordsURL(req.Domain), body, &result); err != nil {
		return nil, err
	}
	return toRecord(req.Domain, result.Data), nil
}

// DeleteRecord removes a DNS record from DNSimple
func (p *Provider) DeleteRecord(ctx context.Context, domain, name string, recordType dns.RecordType) error {
	existing, err := p.find(ctx, domain, name, recordType)
	if err != nil {
		return fmt.Errorf("failed to look up record: %w", err)
	}
	if existing == nil {
		// Record doesn't exist - consider this success
		return nil
	}

	endpoint := fmt.Sprintf("%s/%d", p.recordsURL(domain), existing.ID)
	return p.do(ctx, "delete record", http.MethodDelete, endpoint, nil, nil)
}

func (p *Provider) find(ctx context.Context, domain, name string, recordType dns.RecordType) (*dnsimpleRecord, error) {
	wire := toWireName(name)
	filter := url.Values{}
	filter.Set("name", wire)
	filter.Set("type", string(recordType))

	recs, err := p.listRecords(ctx, domain, filter)
	if err != nil {
		return nil, err
	}
	// The name filter is exact, but check anyway in case the API ignores it.
	for i := range recs {
		if recs[i].Name == wire && recs[i].Type == string(recordType) {
			return &recs[i], nil
		}
	}
	return nil, nil
}

// DNSimple represents the apex as an empty name.
func toWireName(name string) string {
	if name == dns.ApexName {
		return ""
	}
	return name
}

func toRecord(domain string, r dnsimpleRecord) *dns.Record {
	name := r.Name
	if name == "" {
		name = dns.ApexName
	}
	return &dns.Record{
		ID:     strconv.FormatInt(r.ID, 10),
		Domain: domain,
		Name:   name,
		Type:   dns.RecordType(r.Type),
		Value:  r.Content,
		TTL:    r.TTL,
	}
}
