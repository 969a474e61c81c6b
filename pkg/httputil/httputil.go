// Package httputil provides the shared HTTP client and public address
// detection used when pointing DNS records at this host.
package httputil

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"
)

// IsRestrictedEnvironment detects if we're running in a restricted environment
// like Termux/Android where the system certificate pool is unreliable
func IsRestrictedEnvironment() bool {
	if os.Getenv("TERMUX_VERSION") != "" {
		return true
	}
	if runtime.GOOS == "linux" {
		if _, err := os.Stat("/system/bin/app_process"); err == nil {
			return true
		}
	}
	return false
}

// CreateHTTPClient creates an HTTP client that falls back to well-known CA
// bundle locations when the system pool cannot be loaded.
func CreateHTTPClient(timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}

	rootCAs, err := x509.SystemCertPool()
	if err != nil || rootCAs == nil || IsRestrictedEnvironment() {
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		for _, certPath := range GetCertPaths() {
			if certs, err := os.ReadFile(certPath); err == nil {
				rootCAs.AppendCertsFromPEM(certs)
			}
		}
	}

	client.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{RootCAs: rootCAs},
	}
	return client
}

// GetCertPaths returns common certificate file locations across different distros
func GetCertPaths() []string {
	return []string{
		"/data/data/com.termux/files/usr/etc/tls/cert.pem",
		"/etc/ssl/certs/ca-certificates.crt", // Debian/Ubuntu/Gentoo/Arch
		"/etc/pki/tls/certs/ca-bundle.crt",   // Fedora/RHEL
		"/etc/ssl/ca-bundle.pem",             // OpenSUSE
		"/etc/ssl/cert.pem",                  // Alpine/OpenBSD
		"/usr/local/share/certs/ca-root-nss.crt",
	}
}

// PublicIPServices return the caller's address as plain text.
var PublicIPServices = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
}

// IPDetector finds the public IPv4 address of this host.
type IPDetector struct {
	Services []string
	Client   *http.Client
	// Timeout bounds each individual service attempt.
	Timeout time.Duration
}

// NewIPDetector returns a detector using PublicIPServices.
func NewIPDetector() *IPDetector {
	return &IPDetector{
		Services: PublicIPServices,
		Client:   CreateHTTPClient(10 * time.Second),
		Timeout:  5 * time.Second,
	}
}

// DetectPublicIP asks each service in order and returns the first valid
// IPv4 answer.
func DetectPublicIP(ctx context.Context) (string, error) {
	return NewIPDetector().Detect(ctx)
}

// Detect tries each service in order.
func (d *IPDetector) Detect(ctx context.Context) (string, error) {
	var lastErr error
	for _, serviceURL := range d.Services {
		ip, err := d.query(ctx, serviceURL)
		if err == nil {
			return ip, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no services configured")
	}
	return "", fmt.Errorf("public IP detection failed for all services: %w", lastErr)
}

func (d *IPDetector) query(ctx context.Context, serviceURL string) (string, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", serviceURL, err)
	}
	req.Header.Set("User-Agent", "hostsolo/1.0")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", serviceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("service %s returned status %d", serviceURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", serviceURL, err)
	}

	addr := strings.TrimSpace(string(body))
	if !IsValidIPv4(addr) {
		return "", fmt.Errorf("service %s returned invalid IPv4 address: %q", serviceURL, addr)
	}
	return addr, nil
}

// IsValidIPv4 checks if a string is a valid IPv4 address
func IsValidIPv4(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.To4() != nil && !strings.Contains(addr, ":")
}
