package none

import (
	"context"

	"github.com/hostsolo/hostsolo/pkg/dns"
)

// Provider is a no-op DNS provider that doesn't manage any DNS records
// Use this when records are managed by hand at the registrar
type Provider struct{}

// NewProvider creates a new no-op DNS provider
func NewProvider() *Provider {
	return &Provider{}
}

// ListRecords is a no-op that returns an empty list
func (p *Provider) ListRecords(ctx context.Context, domain string) ([]*dns.Record, error) {
	return []*dns.Record{}, nil
}

// UpsertRecord echoes the request back without making changes
func (p *Provider) UpsertRecord(ctx context.Context, req dns.UpsertRecordRequest) (*dns.Record, error) {
	return &dns.Record{
		ID:     "none",
		Domain: req.Domain,
		Name:   req.Name,
		Type:   req.Type,
		Value:  req.Value,
		TTL:    dns.TTLOrDefault(req.TTL),
	}, nil
}

// DeleteRecord is a no-op that always succeeds
func (p *Provider) DeleteRecord(ctx context.Context, domain, name string, recordType dns.RecordType) error {
	return nil
}
