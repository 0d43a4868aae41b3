// Package source loads transaction snapshots from their upstream homes: a
// local CSV file or a remote CSV endpoint.
package source

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adilkhz/paysight/internal/dataset"
	httpClient "github.com/adilkhz/paysight/internal/platform/http"
)

// RemoteClient fetches CSV snapshots over HTTP with retries and rate
// limiting.
type RemoteClient struct {
	url        string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// RemoteOptions holds options for creating a RemoteClient.
type RemoteOptions struct {
	URL            string
	RequestTimeout time.Duration
}

// NewRemote creates a snapshot fetcher for a remote CSV endpoint.
func NewRemote(opts RemoteOptions) *RemoteClient {
	return &RemoteClient{
		url: opts.URL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout: opts.RequestTimeout,
		}),
		logger: log.With().Str("component", "snapshot_source").Logger(),
	}
}

// Fetch downloads and parses the remote snapshot.
func (c *RemoteClient) Fetch(ctx context.Context) (*dataset.Snapshot, error) {
	c.logger.Debug().Str("url", c.url).Msg("fetching snapshot")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	snap, err := dataset.LoadCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	c.logger.Info().Int("rows", snap.Len()).Msg("snapshot fetched")
	return snap, nil
}

// LoadFile reads a snapshot from a local CSV file.
func LoadFile(path string) (*dataset.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	snap, err := dataset.LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot file %s: %w", path, err)
	}
	return snap, nil
}
