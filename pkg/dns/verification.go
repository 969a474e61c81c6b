package dns

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// VerificationResult contains the result of checking that a hostname
// resolves to the expected address
type VerificationResult struct {
	Hostname   string   // The name that was looked up
	ExpectedIP string   // The address the record should point at
	ActualIPs  []string // Addresses found
	Resolved   bool     // Whether ExpectedIP is among ActualIPs
	Source     string   // "system" or the DoH endpoint that answered
	Error      error    // Any error that occurred during lookup
}

// Verifier looks up A records, falling back to DNS-over-HTTPS when the
// system resolver fails or has not picked up the change yet.
type Verifier struct {
	// LookupHost defaults to net.DefaultResolver.LookupHost.
	LookupHost func(ctx context.Context, host string) ([]string, error)
	// DoHEndpoints are JSON DoH resolvers queried in order.
	DoHEndpoints []string
	Client       *http.Client
}

// DefaultDoHEndpoints are public resolvers speaking the JSON DoH dialect.
var DefaultDoHEndpoints = []string{
	"https://dns.google/resolve",
	"https://cloudflare-dns.com/dns-query",
}

// NewVerifier returns a Verifier using the system resolver and public DoH.
func NewVerifier() *Verifier {
	return &Verifier{
		LookupHost:   net.DefaultResolver.LookupHost,
		DoHEndpoints: DefaultDoHEndpoints,
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// dohResponse represents the JSON response from DNS-over-HTTPS providers
type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	Data string `json:"data"`
}

const dohTypeA = 1

// Verify checks whether hostname resolves to expectedIP.
func (v *Verifier) Verify(ctx context.Context, hostname, expectedIP string) *VerificationResult {
	result := &VerificationResult{Hostname: hostname, ExpectedIP: expectedIP}

	lookup := v.LookupHost
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}

	// Tier 1: system resolver, short timeout
	sysCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	addrs, err := lookup(sysCtx, hostname)
	cancel()
	if err == nil && contains(addrs, expectedIP) {
		result.ActualIPs = addrs
		result.Resolved = true
		result.Source = "system"
		return result
	}

	// Tier 2: DNS-over-HTTPS bypasses local caches
	dohAddrs, source, dohErr := v.lookupViaDoH(ctx, hostname)
	if dohErr != nil {
		if err == nil {
			result.ActualIPs = addrs
			result.Source = "system"
			return result
		}
		result.Error = fmt.Errorf("all DNS lookup methods failed for %s: %w", hostname, dohErr)
		return result
	}

	result.ActualIPs = dohAddrs
	result.Source = source
	result.Resolved = contains(dohAddrs, expectedIP)
	return result
}

func (v *Verifier) lookupViaDoH(ctx context.Context, hostname string) ([]string, string, error) {
	client := v.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	var lastErr error
	for _, endpoint := range v.DoHEndpoints {
		q := url.Values{}
		q.Set("name", hostname)
		q.Set("type", "A")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Accept", "application/dns-json")

		addrs, err := doDoH(client, req)
		if err != nil {
			lastErr = err
			continue
		}
		return addrs, endpoint, nil
	}

	if lastErr != nil {
		return nil, "", fmt.Errorf("all DoH providers failed: %w", lastErr)
	}
	return nil, "", fmt.Errorf("no DoH providers available")
}

func doDoH(client *http.Client, req *http.Request) ([]string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH provider returned status %d", resp.StatusCode)
	}

	var dohResp dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&dohResp); err != nil {
		return nil, err
	}
	// Status 3 is NXDOMAIN: a valid answer with no addresses.
	if dohResp.Status != 0 && dohResp.Status != 3 {
		return nil, fmt.Errorf("DoH response status: %d", dohResp.Status)
	}

	var addrs []string
	for _, answer := range dohResp.Answer {
		if answer.Type == dohTypeA {
			addrs = append(addrs, strings.TrimSpace(answer.Data))
		}
	}
	return addrs, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FormatVerificationResult returns a human-readable string describing the verification result
func FormatVerificationResult(result *VerificationResult) string {
	var sb strings.Builder

	if result.Error != nil {
		sb.WriteString(fmt.Sprintf("Error verifying %s: %s\n", result.Hostname, result.Error))
		return sb.String()
	}

	if result.Resolved {
		sb.WriteString(fmt.Sprintf("%s resolves to %s (%s)\n", result.Hostname, result.ExpectedIP, result.Source))
		return sb.String()
	}

	actual := "nothing"
	if len(result.ActualIPs) > 0 {
		actual = strings.Join(result.ActualIPs, ", ")
	}
	sb.WriteString(fmt.Sprintf("%s does not resolve to %s yet\n", result.Hostname, result.ExpectedIP))
	sb.WriteString(fmt.Sprintf("  Found: %s\n", actual))
	return sb.String()
}
