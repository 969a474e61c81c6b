package hetzner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/hostsolo/hostsolo/pkg/dns"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/httputil"
)

// Provider implements the DNS Provider interface on the Hetzner Cloud DNS
// API. A record maps to the RRSet with the same name and type.
type Provider struct {
	client *hcloud.Client
	// Cache zones to avoid repeated lookups
	zones map[string]*hcloud.Zone
}

// NewProvider creates a new Hetzner DNS provider. An empty endpoint uses the
// public Cloud API. Extra options are applied last.
func NewProvider(apiToken, endpoint string, opts ...hcloud.ClientOption) (*Provider, error) {
	apiToken = strings.TrimSpace(apiToken)
	if apiToken == "" {
		return nil, errdefs.Invalid("HETZNER_DNS_TOKEN", "Hetzner Cloud API token is required")
	}

	options := []hcloud.ClientOption{
		hcloud.WithToken(apiToken),
		hcloud.WithApplication("hostsolo", ""),
		hcloud.WithHTTPClient(httputil.CreateHTTPClient(30 * time.Second)),
		hcloud.WithRetryOpts(hcloud.RetryOpts{MaxRetries: 0}),
		hcloud.WithPollOpts(hcloud.PollOpts{BackoffFunc: hcloud.ConstantBackoff(500 * time.Millisecond)}),
	}
	if endpoint != "" {
		options = append(options, hcloud.WithEndpoint(endpoint))
	}
	options = append(options, opts...)

	return &Provider{
		client: hcloud.NewClient(options...),
		zones:  make(map[string]*hcloud.Zone),
	}, nil
}

// ListRecords lists all DNS records for a domain, one per RRSet value.
func (p *Provider) ListRecords(ctx context.Context, domain string) ([]*dns.Record, error) {
	zone, err := p.zone(ctx, domain)
	if err != nil {
		return nil, err
	}

	rrsets, err := p.client.Zone.AllRRSets(ctx, zone)
	if err != nil {
		return nil, external("list records", nil, err)
	}

	var records []*dns.Record
	for _, rrset := range rrsets {
		for _, rec := range rrset.Records {
			records = append(records, toRecord(domain, zone, rrset, rec.Value))
		}
	}
	return records, nil
}

// UpsertRecord creates the RRSet, or replaces the value and TTL of the
// existing RRSet with the same name and type.
func (p *Provider) UpsertRecord(ctx context.Context, req dns.UpsertRecordRequest) (*dns.Record, error) {
	zone, err := p.zone(ctx, req.Domain)
	if err != nil {
		return nil, err
	}

	existing, err := p.find(ctx, zone, req.Name, req.Type)
	if err != nil {
		return nil, err
	}

	ttl := dns.TTLOrDefault(req.TTL)
	values := []hcloud.ZoneRRSetRecord{{Value: req.Value}}

	if existing == nil {
		result, resp, err := p.client.Zone.CreateRRSet(ctx, zone, hcloud.ZoneRRSetCreateOpts{
			Name:    req.Name,
			Type:    hcloud.ZoneRRSetType(req.Type),
			TTL:     &ttl,
			Records: values,
		})
		if err != nil {
			return nil, external("create record", resp, err)
		}
		if err := p.wait(ctx, "create record", result.Action); err != nil {
			return nil, err
		}
		result.RRSet.TTL = &ttl
		return toRecord(req.Domain, zone, result.RRSet, req.Value), nil
	}

	actions := make([]*hcloud.Action, 0, 2)
	action, resp, err := p.client.Zone.SetRRSetRecords(ctx, existing, hcloud.ZoneRRSetSetRecordsOpts{Records: values})
	if err != nil {
		return nil, external("update record", resp, err)
	}
	actions = append(actions, action)

	if existing.TTL == nil || *existing.TTL != ttl {
		action, resp, err := p.client.Zone.ChangeRRSetTTL(ctx, existing, hcloud.ZoneRRSetChangeTTLOpts{TTL: &ttl})
		if err != nil {
			return nil, external("update record ttl", resp, err)
		}
		actions = append(actions, action)
	}
	if err := p.wait(ctx, "update record", actions...); err != nil {
		return nil, err
	}

	existing.TTL = &ttl
	return toRecord(req.Domain, zone, existing, req.Value), nil
}

// DeleteRecord removes the RRSet with the given name and type
func (p *Provider) DeleteRecord(ctx context.Context, domain, name string, recordType dns.RecordType) error {
	zone, err := p.zone(ctx, domain)
	if err != nil {
		return err
	}

	existing, err := p.find(ctx, zone, name, recordType)
	if err != nil {
		return err
	}
	if existing == nil {
		// Record doesn't exist - consider this success
		return nil
	}

	result, resp, err := p.client.Zone.DeleteRRSet(ctx, existing)
	if err != nil {
		return external("delete record", resp, err)
	}
	return p.wait(ctx, "delete record", result.Action)
}

func (p *Provider) find(ctx context.Context, zone *hcloud.Zone, name string, recordType dns.RecordType) (*hcloud.ZoneRRSet, error) {
	rrset, resp, err := p.client.Zone.GetRRSetByNameAndType(ctx, zone, name, hcloud.ZoneRRSetType(recordType))
	if err != nil {
		return nil, external("get record", resp, err)
	}
	if rrset != nil {
		rrset.Zone = zone
	}
	return rrset, nil
}

// zone returns the zone for a domain, using cache if available
func (p *Provider) zone(ctx context.Context, domain string) (*hcloud.Zone, error) {
	if zone, ok := p.zones[domain]; ok {
		return zone, nil
	}

	zone, resp, err := p.client.Zone.GetByName(ctx, domain)
	if err != nil {
		return nil, external("get zone", resp, err)
	}
	if zone == nil {
		return nil, &errdefs.NotFoundError{Kind: "DNS zone", Name: domain, Hint: "Create the zone in the Hetzner Console first"}
	}
	p.zones[domain] = zone
	return zone, nil
}

func (p *Provider) wait(ctx context.Context, op string, actions ...*hcloud.Action) error {
	if err := p.client.Action.WaitFor(ctx, actions...); err != nil {
		return external(op, nil, err)
	}
	return nil
}

func external(op string, resp *hcloud.Response, err error) error {
	ext := &errdefs.ExternalError{Op: op, Err: err}
	var apiErr hcloud.Error
	if resp == nil && errors.As(err, &apiErr) {
		resp = apiErr.Response()
	}
	if resp != nil && resp.Response != nil {
		ext.Status = resp.StatusCode
	}
	return ext
}

func toRecord(domain string, zone *hcloud.Zone, rrset *hcloud.ZoneRRSet, value string) *dns.Record {
	ttl := zone.TTL
	if rrset.TTL != nil {
		ttl = *rrset.TTL
	}
	return &dns.Record{
		ID:     rrset.ID,
		Domain: domain,
		Name:   rrset.Name,
		Type:   dns.RecordType(rrset.Type),
		Value:  value,
		TTL:    ttl,
	}
}
