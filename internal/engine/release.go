// Package engine installs the dyad engine binary: it resolves the latest
// release, downloads and extracts the archive, places the binary, and
// verifies it. Progress is published as line events on the install output
// topic; the setup dialog only ever sees those events and the boolean
// outcome of Run.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// httpTimeout is the maximum time for the GitHub API request.
const httpTimeout = 10 * time.Second

// Release describes a resolved engine release.
type Release struct {
	Version  string
	AssetURL string
}

// StateEntry records the installed engine version, persisted as YAML next
// to the binary.
type StateEntry struct {
	InstalledAt      time.Time `yaml:"installed_at"`
	InstalledVersion string    `yaml:"installed_version"`
}

// githubRelease is a partial response from the GitHub releases API.
type githubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// resolveLatest queries the releases API at apiURL and picks the asset for
// the current platform.
func resolveLatest(ctx context.Context, client *http.Client, apiURL string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release API returned %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("empty tag_name in release response")
	}

	want := platformSuffix()
	for _, asset := range release.Assets {
		if strings.Contains(asset.Name, want) {
			return &Release{
				Version:  strings.TrimPrefix(release.TagName, "v"),
				AssetURL: asset.BrowserDownloadURL,
			}, nil
		}
	}
	return nil, fmt.Errorf("no release asset for %s", want)
}

// platformSuffix is the asset-name fragment identifying the current platform.
func platformSuffix() string {
	return runtime.GOOS + "_" + runtime.GOARCH
}

// releaseAPIURL builds the latest-release endpoint for an "owner/name" repo.
func releaseAPIURL(repo string) string {
	return fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", repo)
}

// isNewer returns true if latest is a newer semver than current. Both are
// bare versions without a "v" prefix. Unparseable versions are never
// considered newer.
func isNewer(latest, current string) bool {
	latestParts := parseSemver(latest)
	currentParts := parseSemver(current)

	if latestParts == nil || currentParts == nil {
		return false
	}

	for i := range 3 {
		if latestParts[i] > currentParts[i] {
			return true
		}
		if latestParts[i] < currentParts[i] {
			return false
		}
	}
	return false
}

// parseSemver parses "MAJOR.MINOR.PATCH" into a 3-element []int.
// Returns nil if parsing fails.
func parseSemver(v string) []int {
	// Strip any pre-release suffix (e.g. "1.2.3-beta.1" → "1.2.3")
	if idx := strings.IndexByte(v, '-'); idx != -1 {
		v = v[:idx]
	}

	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return nil
	}

	result := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		result[i] = n
	}
	return result
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// readState reads the installed-version state file.
func readState(path string) (*StateEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry StateEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// writeState atomically writes the state file (write to temp, rename).
func writeState(path string, entry StateEntry) error {
	data, err := yaml.Marshal(entry)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
