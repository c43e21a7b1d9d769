package storage

import (
	"alcyxob/workout-playlist/internal/config"
	"alcyxob/workout-playlist/internal/domain"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	gobreaker "github.com/sony/gobreaker/v2"
)

type fakeBackend struct {
	calls  int
	exists bool
	err    error
	url    string
}

func (f *fakeBackend) Exists(_ context.Context, _ domain.StorageRef) (bool, error) {
	f.calls++
	return f.exists, f.err
}

func (f *fakeBackend) PlaybackURL(_ context.Context, ref domain.StorageRef) (string, error) {
	return f.url + ref.Key, nil
}

func clipFor(provider domain.StorageProvider, key string) domain.VideoClip {
	return domain.VideoClip{ID: "c1", Kind: domain.KindInstruction, Storage: domain.StorageRef{Provider: provider, Key: key}}
}

func TestRouterDispatchesByProvider(t *testing.T) {
	r2 := &fakeBackend{exists: true, url: "https://r2/"}
	stream := &fakeBackend{exists: false, url: "https://stream/"}
	router := NewRouter(map[domain.StorageProvider]Backend{
		domain.ProviderR2:     r2,
		domain.ProviderStream: stream,
	}, DefaultBreakerSettings, nil)

	ok, err := router.Exists(context.Background(), clipFor(domain.ProviderR2, "a.mp4"))
	if err != nil || !ok {
		t.Fatalf("r2 exists: got %v, %v", ok, err)
	}
	ok, err = router.Exists(context.Background(), clipFor(domain.ProviderStream, "uid"))
	if err != nil || ok {
		t.Fatalf("stream exists: got %v, %v", ok, err)
	}
	if r2.calls != 1 || stream.calls != 1 {
		t.Errorf("unexpected call counts r2=%d stream=%d", r2.calls, stream.calls)
	}

	url, err := router.PlaybackURL(context.Background(), clipFor(domain.ProviderStream, "uid"))
	if err != nil || url != "https://stream/uid" {
		t.Errorf("playback url: %q, %v", url, err)
	}

	_, err = router.Exists(context.Background(), clipFor(domain.ProviderExternal, ""))
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestRouterEmptyReferenceSkipsBackend(t *testing.T) {
	r2 := &fakeBackend{exists: true}
	router := NewRouter(map[domain.StorageProvider]Backend{domain.ProviderR2: r2}, DefaultBreakerSettings, nil)

	ok, err := router.Exists(context.Background(), clipFor(domain.ProviderR2, ""))
	if ok || err != nil {
		t.Errorf("empty ref: got %v, %v", ok, err)
	}
	if r2.calls != 0 {
		t.Errorf("backend should not be probed for an empty ref")
	}
}

func TestRouterBreakerOpensAfterFailures(t *testing.T) {
	failing := &fakeBackend{err: errors.New("connection reset")}
	settings := BreakerSettings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 3, FailureRatio: 0.5}
	router := NewRouter(map[domain.StorageProvider]Backend{domain.ProviderR2: failing}, settings, nil)

	for i := 0; i < 3; i++ {
		if _, err := router.Exists(context.Background(), clipFor(domain.ProviderR2, "k")); err == nil {
			t.Fatalf("probe %d: expected error", i)
		}
	}
	if state, _ := router.BreakerState(domain.ProviderR2); state != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %v", state)
	}

	_, err := router.Exists(context.Background(), clipFor(domain.ProviderR2, "k"))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if failing.calls != 3 {
		t.Errorf("open breaker must not reach the backend, calls=%d", failing.calls)
	}
}

func TestExternalBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.mp4":
			w.WriteHeader(http.StatusOK)
		case "/nohead.mp4":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if r.Header.Get("Range") != "bytes=0-0" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusPartialContent)
		case "/broken.mp4":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	backend := NewExternalBackend(srv.Client())
	tests := []struct {
		path    string
		want    bool
		wantErr bool
	}{
		{"/ok.mp4", true, false},
		{"/nohead.mp4", true, false},
		{"/gone.mp4", false, false},
		{"/broken.mp4", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := backend.Exists(context.Background(), domain.StorageRef{Provider: domain.ProviderExternal, URL: srv.URL + tt.path})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("exists = %v, want %v", got, tt.want)
			}
		})
	}

	url, err := backend.PlaybackURL(context.Background(), domain.StorageRef{Provider: domain.ProviderExternal, URL: "https://cdn.example.com/a.mp4"})
	if err != nil || url != "https://cdn.example.com/a.mp4" {
		t.Errorf("playback url passthrough: %q, %v", url, err)
	}
}

func TestStreamBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/stream/ready"):
			_, _ = w.Write([]byte(`{"success":true,"result":{"uid":"ready","readyToStream":true}}`))
		case strings.HasSuffix(r.URL.Path, "/stream/encoding"):
			_, _ = w.Write([]byte(`{"success":true,"result":{"uid":"encoding","readyToStream":false,"status":{"state":"inprogress"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	backend, err := NewStreamBackend(config.StreamConfig{
		AccountID:      "acct",
		APIToken:       "tok",
		APIBaseURL:     srv.URL,
		CustomerDomain: "customer-xyz.cloudflarestream.com",
	}, srv.Client())
	if err != nil {
		t.Fatalf("NewStreamBackend: %v", err)
	}

	for key, want := range map[string]bool{"ready": true, "encoding": false, "missing": false} {
		got, err := backend.Exists(context.Background(), domain.StorageRef{Provider: domain.ProviderStream, Key: key})
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if got != want {
			t.Errorf("%s: exists = %v, want %v", key, got, want)
		}
	}

	url, err := backend.PlaybackURL(context.Background(), domain.StorageRef{Provider: domain.ProviderStream, Key: "ready"})
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://customer-xyz.cloudflarestream.com/ready/manifest/video.m3u8" {
		t.Errorf("manifest url: %s", url)
	}
}

type fakeObjectAPI struct {
	err error
}

func (f fakeObjectAPI) HeadObject(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{}, f.err
}

func TestR2BackendExists(t *testing.T) {
	ref := domain.StorageRef{Provider: domain.ProviderR2, Key: "clips/push-ups/instruction.mp4"}

	present := &r2Backend{client: fakeObjectAPI{}, bucketName: "clips"}
	if ok, err := present.Exists(context.Background(), ref); !ok || err != nil {
		t.Errorf("present: %v, %v", ok, err)
	}

	missing := &r2Backend{client: fakeObjectAPI{err: &types.NotFound{}}, bucketName: "clips"}
	if ok, err := missing.Exists(context.Background(), ref); ok || err != nil {
		t.Errorf("missing: %v, %v", ok, err)
	}

	failing := &r2Backend{client: fakeObjectAPI{err: errors.New("dial tcp: timeout")}, bucketName: "clips"}
	if _, err := failing.Exists(context.Background(), ref); err == nil {
		t.Error("transport error must surface")
	}

	public := &r2Backend{bucketName: "clips", publicBaseURL: "https://media.example.com/"}
	url, err := public.PlaybackURL(context.Background(), ref)
	if err != nil || url != "https://media.example.com/clips/push-ups/instruction.mp4" {
		t.Errorf("public url: %q, %v", url, err)
	}
}
