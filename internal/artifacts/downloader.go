package artifacts

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Downloader acquires build artifacts (model file, warehouse file) over HTTP
// at service startup. Acquisition is eager and one-time: a missing artifact
// with no URL, or a failed download, is fatal to startup. No retries.
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader creates a downloader with the given per-request timeout.
func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// EnsureFile makes sure the artifact exists locally. An already-present file
// is used as-is; otherwise it is downloaded from url into path.
func (d *Downloader) EnsureFile(path, url, friendlyName string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		log.Info().
			Str("artifact", friendlyName).
			Str("path", path).
			Msg("Artifact already present, skipping download")
		return nil
	}

	if url == "" {
		return fmt.Errorf("%s is missing at %s and no download URL is configured", friendlyName, path)
	}

	start := time.Now()
	log.Info().
		Str("artifact", friendlyName).
		Str("url", url).
		Str("path", path).
		Msg("Downloading artifact")

	if err := d.download(path, url); err != nil {
		return fmt.Errorf("download %s: %w", friendlyName, err)
	}

	log.Info().
		Str("artifact", friendlyName).
		Dur("elapsed", time.Since(start)).
		Msg("Artifact downloaded")
	return nil
}

func (d *Downloader) download(path, url string) error {
	resp, err := d.httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	// Write to a temp file first so a failed transfer never leaves a
	// truncated artifact behind.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("move artifact into place: %w", err)
	}
	return nil
}
