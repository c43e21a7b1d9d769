package storage

import (
	"alcyxob/workout-playlist/internal/config"
	"alcyxob/workout-playlist/internal/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

const defaultStreamAPIBase = "https://api.cloudflare.com/client/v4"

// streamBackend serves clips hosted on Cloudflare Stream. Key is the video UID.
type streamBackend struct {
	httpClient     *http.Client
	apiBase        string
	accountID      string
	apiToken       string
	customerDomain string
}

// streamVideoResponse is the subset of the Stream "video details" payload we read.
type streamVideoResponse struct {
	Success bool `json:"success"`
	Result  struct {
		UID           string `json:"uid"`
		ReadyToStream bool   `json:"readyToStream"`
		Status        struct {
			State string `json:"state"`
		} `json:"status"`
	} `json:"result"`
}

// NewStreamBackend creates the Cloudflare Stream backend. httpClient carries
// the probe timeout; nil uses http.DefaultClient.
func NewStreamBackend(cfg config.StreamConfig, httpClient *http.Client) (Backend, error) {
	if cfg.AccountID == "" || cfg.CustomerDomain == "" {
		return nil, errors.New("stream account id and customer domain are required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultStreamAPIBase
	}
	return &streamBackend{
		httpClient:     httpClient,
		apiBase:        strings.TrimRight(apiBase, "/"),
		accountID:      cfg.AccountID,
		apiToken:       cfg.APIToken,
		customerDomain: strings.TrimRight(cfg.CustomerDomain, "/"),
	}, nil
}

// Exists asks the Stream API whether the video is ready to stream.
func (s *streamBackend) Exists(ctx context.Context, ref domain.StorageRef) (bool, error) {
	if ref.Key == "" {
		return false, ErrEmptyReference
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/stream/%s", s.apiBase, url.PathEscape(s.accountID), url.PathEscape(ref.Key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	if s.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("stream api: unexpected status %d", resp.StatusCode)
	}

	var body streamVideoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("stream api: decode: %w", err)
	}
	return body.Success && body.Result.ReadyToStream, nil
}

// PlaybackURL returns the HLS manifest URL on the customer subdomain.
func (s *streamBackend) PlaybackURL(_ context.Context, ref domain.StorageRef) (string, error) {
	if ref.Key == "" {
		return "", ErrEmptyReference
	}
	base := s.customerDomain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/%s/manifest/video.m3u8", base, url.PathEscape(ref.Key)), nil
}
