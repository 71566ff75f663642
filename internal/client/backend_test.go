package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aGallea/smart-phone/pkg/audio"
)

func TestTranscribeUploadsMultipart(t *testing.T) {
	wav := audio.EncodeWAV(make([]byte, 960), audio.SampleRate, audio.Channels)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stt" {
			t.Errorf("path = %q, want /api/stt", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		got, _ := io.ReadAll(file)
		if len(got) != len(wav) {
			t.Errorf("uploaded %d bytes, want %d", len(got), len(wav))
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "open the door"})
	}))
	defer srv.Close()

	b := NewBackend(srv.URL)
	got, err := b.Transcribe(context.Background(), wav)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "open the door" {
		t.Errorf("Transcribe() = %q", got)
	}
}

func TestTranscribeEmptyPayloadNoNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	b := NewBackend(srv.URL)
	_, err := b.Transcribe(context.Background(), nil)
	if !errors.Is(err, ErrInvalidAudioPayload) {
		t.Fatalf("Transcribe() error = %v, want ErrInvalidAudioPayload", err)
	}
	if called {
		t.Error("request sent despite empty payload")
	}
}

func TestGenerateSendsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserInput string         `json:"user_input"`
			Context   map[string]any `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.UserInput != "status report" {
			t.Errorf("user_input = %q", body.UserInput)
		}
		if body.Context["battery"] != float64(42) {
			t.Errorf("context = %v", body.Context)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "all systems nominal"})
	}))
	defer srv.Close()

	b := NewBackend(srv.URL)
	got, err := b.Generate(context.Background(), "status report", map[string]any{"battery": 42})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "all systems nominal" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	wav := audio.EncodeWAV(make([]byte, 1920), audio.SampleRate, audio.Channels)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text  string `json:"text"`
			Voice string `json:"voice"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Voice != "nova" {
			t.Errorf("voice = %q", body.Voice)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	}))
	defer srv.Close()

	b := NewBackend(srv.URL)
	got, err := b.Synthesize(context.Background(), "hello", "nova")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !audio.IsWAV(got) {
		t.Error("Synthesize() did not return WAV audio")
	}
}

func TestBackendErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "service unavailable: llm"})
	}))
	defer srv.Close()

	b := NewBackend(srv.URL)
	_, err := b.Generate(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("Generate() returned nil error for 503")
	}
	if !strings.Contains(err.Error(), "service unavailable: llm") {
		t.Errorf("error = %q, want backend message included", err)
	}
}

func TestTimeoutMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	b := NewBackend(srv.URL, WithTimeout(20*time.Millisecond))
	_, err := b.Generate(context.Background(), "hi", nil)
	if !errors.Is(err, ErrRequestTimeout) {
		t.Errorf("Generate() error = %v, want ErrRequestTimeout", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer srv.Close()

	if err := NewBackend(srv.URL).Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}
