// Package updater checks GitHub for newer hostsolo releases.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/httputil"
	"github.com/hostsolo/hostsolo/pkg/updater/version"
)

const (
	// ReleasesURL is the GitHub API endpoint for the latest release.
	ReleasesURL = "https://api.github.com/repos/hostsolo/hostsolo/releases/latest"
	timeout     = 10 * time.Second
)

// GitHubRelease represents the GitHub API response for a release
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// UpdateInfo contains information about an available update
type UpdateInfo struct {
	CurrentVersion string
	LatestVersion  string
	UpdateURL      string
	DownloadURL    string // asset for this platform, empty when not published
	Available      bool
}

// Updater handles version checking
type Updater struct {
	currentVersion string
	url            string
	client         *http.Client
}

// NewUpdater creates a new Updater instance
func NewUpdater(currentVersion string) *Updater {
	return &Updater{
		currentVersion: currentVersion,
		url:            ReleasesURL,
		client:         httputil.CreateHTTPClient(timeout),
	}
}

// WithURL points the updater at another releases endpoint.
func (u *Updater) WithURL(url string) *Updater {
	u.url = url
	return u
}

// CheckForUpdate checks if a new version is available
func (u *Updater) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set user agent to avoid rate limiting
	req.Header.Set("User-Agent", "hostsolo-updater")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, &errdefs.ExternalError{Op: "check for updates", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &errdefs.ExternalError{
			Op:     "check for updates",
			Status: resp.StatusCode,
			Err:    errors.New(strings.TrimSpace(string(body))),
		}
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(u.currentVersion, "v")

	info := &UpdateInfo{
		CurrentVersion: current,
		LatestVersion:  latest,
		UpdateURL:      release.HTMLURL,
		// Development builds are never offered an update.
		Available: version.IsRelease(current) && version.Compare(latest, current) > 0,
	}

	want := BinaryName()
	for _, a := range release.Assets {
		if a.Name == want {
			info.DownloadURL = a.BrowserDownloadURL
			break
		}
	}

	return info, nil
}

// BinaryName is the release asset name for the running platform.
func BinaryName() string {
	return fmt.Sprintf("hostsolo-%s-%s", runtime.GOOS, runtime.GOARCH)
}
