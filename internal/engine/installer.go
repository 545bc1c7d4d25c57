package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/shlex"

	"github.com/0xalgebra/dyad/internal/bus"
	"github.com/0xalgebra/dyad/internal/logger"
)

// TopicInstallOutput is the event channel the installer publishes progress
// lines on. The setup dialog subscribes to it while open.
const TopicInstallOutput = "engine:install-output"

// progressBarWidth is the character width of the download progress bar.
const progressBarWidth = 20

// copyBufferSize is the download copy chunk; progress is re-evaluated per chunk.
const copyBufferSize = 32 * 1024

// stateFileName records the installed engine version inside the install dir.
const stateFileName = "engine-state.yaml"

// Config describes where the engine comes from and where it goes.
type Config struct {
	// Repo is the "owner/name" GitHub repository publishing engine releases.
	Repo string

	// ReleaseAPIURL overrides the release endpoint derived from Repo.
	// Used by tests; empty means the GitHub API.
	ReleaseAPIURL string

	// InstallDir is the directory the binary is placed in.
	InstallDir string

	// BinaryName is the engine executable's file name.
	BinaryName string

	// VerifyCmd is an optional command run after placement, with the
	// placed binary's path appended as the final argument. Empty skips
	// verification.
	VerifyCmd string
}

// Installer downloads, extracts, places, and verifies the engine binary.
// It is the external collaborator behind the setup dialog's start-install
// call; all user-visible progress goes through the bus.
type Installer struct {
	cfg    Config
	bus    *bus.Bus
	client *http.Client
}

// New creates an Installer publishing on b.
func New(cfg Config, b *bus.Bus) *Installer {
	return &Installer{
		cfg: cfg,
		bus: b,
		// No overall timeout: large downloads are bounded by ctx, and the
		// release API request carries its own per-request context.
		client: &http.Client{},
	}
}

// Run performs one install attempt. The bool result distinguishes the
// "unsuccessful but already narrated on the stream" outcome (false, nil)
// from a raised failure (false, err); (true, nil) means the engine is in
// place.
func (i *Installer) Run(ctx context.Context) (bool, error) {
	if err := os.MkdirAll(i.cfg.InstallDir, 0o755); err != nil {
		return false, fmt.Errorf("creating install dir: %w", err)
	}

	lock := flock.New(filepath.Join(i.cfg.InstallDir, ".install.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquiring install lock: %w", err)
	}
	if !locked {
		return false, errors.New("another engine install is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Msg("failed to release install lock")
		}
	}()

	release, err := i.resolve(ctx)
	if err != nil {
		return false, err
	}

	binPath := filepath.Join(i.cfg.InstallDir, i.cfg.BinaryName)
	if i.upToDate(release, binPath) {
		i.emit("", false)
		i.emit("✓ Engine v"+release.Version+" is already installed", false)
		return true, nil
	}

	archivePath, cleanup, err := i.download(ctx, release)
	if err != nil {
		return false, err
	}
	defer cleanup()

	if err := i.place(archivePath, binPath); err != nil {
		return false, err
	}

	if i.cfg.VerifyCmd != "" {
		ok, err := i.verify(ctx, binPath)
		if err != nil {
			return false, err
		}
		if !ok {
			// The verify output on the stream already explains the failure.
			return false, nil
		}
	}

	if err := writeState(filepath.Join(i.cfg.InstallDir, stateFileName), StateEntry{
		InstalledAt:      nowUTC(),
		InstalledVersion: release.Version,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to record installed engine version")
	}

	i.emit("", false)
	i.emit("✓ Engine v"+release.Version+" installed", false)
	return true, nil
}

// resolve finds the latest release for this platform.
func (i *Installer) resolve(ctx context.Context) (*Release, error) {
	apiURL := i.cfg.ReleaseAPIURL
	if apiURL == "" {
		apiURL = releaseAPIURL(i.cfg.Repo)
	}

	i.emit("Step 1: Resolving latest engine release", false)
	i.emit("$ GET "+apiURL, false)

	apiCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	release, err := resolveLatest(apiCtx, i.client, apiURL)
	if err != nil {
		return nil, fmt.Errorf("resolving release: %w", err)
	}
	i.emit("✓ Latest release: v"+release.Version, false)
	return release, nil
}

// upToDate reports whether the recorded install already satisfies release.
func (i *Installer) upToDate(release *Release, binPath string) bool {
	entry, err := readState(filepath.Join(i.cfg.InstallDir, stateFileName))
	if err != nil || entry.InstalledVersion == "" {
		return false
	}
	if isNewer(release.Version, entry.InstalledVersion) {
		return false
	}
	_, err = os.Stat(binPath)
	return err == nil
}

// download fetches the release asset into a temp file, emitting in-place
// progress lines while the transfer runs.
func (i *Installer) download(ctx context.Context, release *Release) (string, func(), error) {
	i.emit("---", false)
	i.emit("Step 2: Downloading engine v"+release.Version, false)
	i.emit("$ curl -L "+release.AssetURL, false)

	req, err := http.NewRequestWithContext(ctx, "GET", release.AssetURL, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("downloading asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("asset download returned %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "dyad-engine-*.tar.gz")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if err := i.copyWithProgress(tmp, resp.Body, resp.ContentLength); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("downloading asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}

	i.emit("✓ Download complete", false)
	return tmp.Name(), cleanup, nil
}

// copyWithProgress copies body to dst, emitting a redrawn progress line as
// percentages advance. Unknown sizes fall back to a byte counter.
func (i *Installer) copyWithProgress(dst io.Writer, body io.Reader, total int64) error {
	buf := make([]byte, copyBufferSize)
	var written int64
	lastPct := -1

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			written += int64(n)

			if total > 0 {
				pct := int(written * 100 / total)
				if pct != lastPct {
					i.emit(progressLine(pct), true)
					lastPct = pct
				}
			} else {
				i.emit(fmt.Sprintf("Progress: %d KB", written/1024), true)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// progressLine formats "Progress: NN% [#####     ]".
func progressLine(pct int) string {
	if pct > 100 {
		pct = 100
	}
	filled := pct * progressBarWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(" ", progressBarWidth-filled)
	return fmt.Sprintf("Progress: %d%% [%s]", pct, bar)
}

// place extracts the binary from the archive and installs it with 0755.
func (i *Installer) place(archivePath, binPath string) error {
	i.emit("---", false)
	i.emit("Step 3: Extracting archive", false)

	stageDir, err := os.MkdirTemp("", "dyad-engine-stage-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stageDir)

	extracted, err := extractBinary(archivePath, i.cfg.BinaryName, stageDir)
	if err != nil {
		return fmt.Errorf("extracting archive: %w", err)
	}
	i.emit("✓ Extracted "+i.cfg.BinaryName, false)

	i.emit("---", false)
	i.emit("Step 4: Placing binary in "+i.cfg.InstallDir, false)

	// Rename can cross filesystems between temp and install dir; fall
	// back to a copy when it does.
	if err := os.Rename(extracted, binPath); err != nil {
		if err := copyFile(extracted, binPath); err != nil {
			return fmt.Errorf("placing binary: %w", err)
		}
	}
	if err := os.Chmod(binPath, 0o755); err != nil {
		return fmt.Errorf("setting binary permissions: %w", err)
	}
	i.emit("✓ Installed to "+binPath, false)
	return nil
}

// verify runs the configured verify command with the binary path appended,
// streaming its combined output to the bus. Returns false when the command
// exits non-zero.
func (i *Installer) verify(ctx context.Context, binPath string) (bool, error) {
	i.emit("---", false)
	i.emit("Step 5: Verifying installation", false)

	args, err := shlex.Split(i.cfg.VerifyCmd)
	if err != nil || len(args) == 0 {
		return false, fmt.Errorf("invalid verify command %q: %w", i.cfg.VerifyCmd, err)
	}
	args = append(args, binPath)

	i.emit("$ "+strings.Join(args, " "), false)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return false, err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("starting verify command: %w", err)
	}

	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		i.emit(scanner.Text(), false)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			i.emit(fmt.Sprintf("✗ Verification failed (exit %d)", exitErr.ExitCode()), false)
			return false, nil
		}
		return false, fmt.Errorf("verify command: %w", err)
	}

	i.emit("✓ Verified", false)
	return true, nil
}

// emit publishes one output line event.
func (i *Installer) emit(line string, inProgress bool) {
	i.bus.Publish(TopicInstallOutput, bus.InstallOutput{Line: line, InProgress: inProgress})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
