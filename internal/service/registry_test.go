package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/aGallea/smart-phone/internal/config"
	"github.com/aGallea/smart-phone/internal/observe"
	"github.com/aGallea/smart-phone/pkg/provider/llm"
	llmmock "github.com/aGallea/smart-phone/pkg/provider/llm/mock"
	sttmock "github.com/aGallea/smart-phone/pkg/provider/stt/mock"
)

// testSection builds a config section with the given provider selected.
func testSection(t *testing.T, capability, provider string) config.Section {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	raw := []byte(`{"` + capability + `": {"provider": "` + provider + `"}}`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return store.Section(capability)
}

// quietMetrics returns a Metrics instance that does not touch the global
// OTel provider.
func quietMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newTestSTT(t *testing.T, p *sttmock.Provider, factoryErr error) *STT {
	t.Helper()
	r := NewSTT(WithMetrics(quietMetrics(t)))
	err := r.Register("mock", func(_ context.Context, _ config.Section) (Provider[[]byte, string], error) {
		if factoryErr != nil {
			return nil, factoryErr
		}
		return WrapSTT(p), nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return r
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewSTT(WithMetrics(quietMetrics(t)))
	factory := func(_ context.Context, _ config.Section) (Provider[[]byte, string], error) {
		return WrapSTT(&sttmock.Provider{}), nil
	}
	if err := r.Register("mock", factory); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := r.Register("mock", factory); !errors.Is(err, ErrDuplicateProvider) {
		t.Errorf("second Register() error = %v, want ErrDuplicateProvider", err)
	}
}

func TestInitializeAndInvoke(t *testing.T) {
	mock := &sttmock.Provider{Transcript: "turn on the lights"}
	r := newTestSTT(t, mock, nil)

	if r.Available() {
		t.Error("registry available before Initialize")
	}
	if err := r.Initialize(context.Background(), testSection(t, "stt", "mock")); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !r.Available() {
		t.Fatal("registry not available after Initialize")
	}

	got, err := r.Invoke(context.Background(), []byte("fake-wav"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got != "turn on the lights" {
		t.Errorf("Invoke() = %q, want transcript", got)
	}

	status := r.Status()
	if status.ActiveProvider != "mock" || !status.Available || status.Capability != "stt" {
		t.Errorf("Status() = %+v", status)
	}
}

func TestInitializeUnknownProvider(t *testing.T) {
	r := newTestSTT(t, &sttmock.Provider{}, nil)

	err := r.Initialize(context.Background(), testSection(t, "stt", "nope"))
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("Initialize() error = %v, want ErrProviderNotRegistered", err)
	}
	if r.Available() {
		t.Error("registry available after failed Initialize")
	}
}

func TestInitializeFactoryFailureLeavesUnavailable(t *testing.T) {
	boom := errors.New("bad credentials")
	r := newTestSTT(t, nil, boom)

	err := r.Initialize(context.Background(), testSection(t, "stt", "mock"))
	if !errors.Is(err, boom) {
		t.Fatalf("Initialize() error = %v, want wrapped factory error", err)
	}
	if r.Available() {
		t.Error("registry available after factory failure")
	}

	// And the capability stays dark without a network attempt.
	if _, err := r.Invoke(context.Background(), []byte("x")); !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("Invoke() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestInvokeUnavailableMakesNoProviderCall(t *testing.T) {
	mock := &sttmock.Provider{Transcript: "hi"}
	r := newTestSTT(t, mock, nil)

	out, err := r.Invoke(context.Background(), []byte("x"))
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("Invoke() error = %v, want ErrServiceUnavailable", err)
	}
	if out != "" {
		t.Errorf("Invoke() = %q, want zero value", out)
	}
	if mock.CallCount() != 0 {
		t.Errorf("provider called %d times while unavailable", mock.CallCount())
	}
}

func TestInvokeProviderErrorSoftFails(t *testing.T) {
	mock := &sttmock.Provider{TranscribeErr: errors.New("upstream 500")}
	r := newTestSTT(t, mock, nil)
	if err := r.Initialize(context.Background(), testSection(t, "stt", "mock")); err != nil {
		t.Fatal(err)
	}

	out, err := r.Invoke(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Invoke() error = %v, want nil on provider failure", err)
	}
	if out != "" {
		t.Errorf("Invoke() = %q, want empty result", out)
	}
	// The error does not flip availability: the next request still tries.
	if !r.Available() {
		t.Error("registry became unavailable after a request error")
	}
	if mock.CallCount() != 1 {
		t.Errorf("provider calls = %d, want 1", mock.CallCount())
	}
}

func TestCleanupIdempotent(t *testing.T) {
	mock := &sttmock.Provider{Transcript: "hi"}
	r := newTestSTT(t, mock, nil)
	if err := r.Initialize(context.Background(), testSection(t, "stt", "mock")); err != nil {
		t.Fatal(err)
	}

	if err := r.Cleanup(); err != nil {
		t.Fatalf("first Cleanup() error = %v", err)
	}
	if err := r.Cleanup(); err != nil {
		t.Fatalf("second Cleanup() error = %v", err)
	}
	if mock.CloseCalls != 1 {
		t.Errorf("Close called %d times, want 1", mock.CloseCalls)
	}
	if r.Available() {
		t.Error("registry available after Cleanup")
	}
	if _, err := r.Invoke(context.Background(), []byte("x")); !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("Invoke() after Cleanup error = %v, want ErrServiceUnavailable", err)
	}
}

func TestReinitializeClosesPrevious(t *testing.T) {
	mock := &sttmock.Provider{Transcript: "hi"}
	r := newTestSTT(t, mock, nil)
	section := testSection(t, "stt", "mock")

	if err := r.Initialize(context.Background(), section); err != nil {
		t.Fatal(err)
	}
	if err := r.Initialize(context.Background(), section); err != nil {
		t.Fatal(err)
	}
	if mock.CloseCalls != 1 {
		t.Errorf("previous provider Close calls = %d, want 1", mock.CloseCalls)
	}
	if !r.Available() {
		t.Error("registry unavailable after re-Initialize")
	}
}

func TestConcurrentInvoke(t *testing.T) {
	mock := &llmmock.Provider{Response: "ok"}
	r := NewLLM(WithMetrics(quietMetrics(t)))
	err := r.Register("mock", func(_ context.Context, _ config.Section) (Provider[llm.Request, string], error) {
		return WrapLLM(mock), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Initialize(context.Background(), testSection(t, "llm", "mock")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Invoke(context.Background(), llm.Request{UserInput: "hello"})
			if err != nil || out != "ok" {
				t.Errorf("Invoke() = %q, %v", out, err)
			}
		}()
	}
	wg.Wait()

	if mock.CallCount() != 16 {
		t.Errorf("provider calls = %d, want 16", mock.CallCount())
	}
}
