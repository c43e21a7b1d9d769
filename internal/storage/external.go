package storage

import (
	"alcyxob/workout-playlist/internal/domain"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// externalBackend serves clips hosted anywhere reachable by a plain URL.
type externalBackend struct {
	httpClient *http.Client
}

// NewExternalBackend creates the backend for clips with a direct URL.
func NewExternalBackend(httpClient *http.Client) Backend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &externalBackend{httpClient: httpClient}
}

// Exists sends a HEAD request. Hosts that refuse HEAD get a one-byte ranged GET.
func (e *externalBackend) Exists(ctx context.Context, ref domain.StorageRef) (bool, error) {
	if ref.URL == "" {
		return false, ErrEmptyReference
	}

	status, err := e.probe(ctx, http.MethodHead, ref.URL)
	if err != nil {
		return false, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		if status, err = e.probe(ctx, http.MethodGet, ref.URL); err != nil {
			return false, err
		}
	}

	switch {
	case status >= 200 && status < 400:
		return true, nil
	case status == http.StatusNotFound || status == http.StatusGone || status == http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("external probe: unexpected status %d", status)
	}
}

func (e *externalBackend) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// PlaybackURL passes the stored URL through unchanged.
func (e *externalBackend) PlaybackURL(_ context.Context, ref domain.StorageRef) (string, error) {
	if ref.URL == "" {
		return "", ErrEmptyReference
	}
	return ref.URL, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
