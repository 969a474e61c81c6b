package dns

import (
	"context"
	"strings"
)

// Provider defines the interface for DNS management
type Provider interface {
	// ListRecords lists all DNS records for a domain
	ListRecords(ctx context.Context, domain string) ([]*Record, error)

	// UpsertRecord creates the record or updates the existing one with the
	// same name and type.
	UpsertRecord(ctx context.Context, req UpsertRecordRequest) (*Record, error)

	// DeleteRecord removes a DNS record. Deleting a record that does not
	// exist succeeds.
	DeleteRecord(ctx context.Context, domain, name string, recordType RecordType) error
}

// ApexName is the record name used for the zone apex.
const ApexName = "@"

// DefaultTTL is used when a request carries no TTL.
const DefaultTTL = 3600

// UpsertRecordRequest contains parameters for creating or updating a DNS record
type UpsertRecordRequest struct {
	Domain string     // The zone (e.g., "example.com")
	Name   string     // The record name, "@" for the apex
	Type   RecordType // A, AAAA, CNAME, etc.
	Value  string     // IP address or target
	TTL    int        // Time-to-live in seconds (0 = DefaultTTL)
}

// Record represents a DNS record
type Record struct {
	ID     string     // Provider-specific record ID
	Domain string     // The zone
	Name   string     // The record name, "@" for the apex
	Type   RecordType // Record type
	Value  string     // IP address or target
	TTL    int        // Time-to-live in seconds
}

// FQDN returns the fully qualified name of the record.
func (r *Record) FQDN() string {
	if r.Name == ApexName || r.Name == "" {
		return r.Domain
	}
	return r.Name + "." + r.Domain
}

// RecordType represents the type of DNS record
type RecordType string

const (
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypeTXT   RecordType = "TXT"
	RecordTypeMX    RecordType = "MX"
)

// TTLOrDefault returns ttl, or DefaultTTL when ttl is not positive.
func TTLOrDefault(ttl int) int {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// NormalizeName maps the empty name to "@" and trims a trailing zone suffix
// so "www.example.com" and "www" address the same record.
func NormalizeName(name, domain string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if name == "" || name == domain {
		return ApexName
	}
	return strings.TrimSuffix(name, "."+domain)
}
