// Package google provides an STT provider backed by Google Cloud
// Speech-to-Text synchronous recognition.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/aGallea/smart-phone/pkg/audio"
)

// config holds optional configuration for the provider.
type config struct {
	credentialsFile string
	language        string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithCredentialsFile points the client at a service-account JSON file
// instead of application default credentials.
func WithCredentialsFile(path string) Option {
	return func(c *config) {
		c.credentialsFile = path
	}
}

// WithLanguage sets the BCP-47 recognition language (default "en-US").
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// Provider implements stt.Provider using the Google Cloud Speech API.
type Provider struct {
	client   *speech.Client
	language string
}

// New constructs a new Google STT Provider. The client is created eagerly
// so that credential problems surface at initialization time rather than
// on the first utterance.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	cfg := &config{language: "en-US"}
	for _, o := range opts {
		o(cfg)
	}

	var clientOpts []option.ClientOption
	if cfg.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.credentialsFile))
	}

	client, err := speech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("google: create speech client: %w", err)
	}
	return &Provider{client: client, language: cfg.language}, nil
}

// Transcribe implements stt.Provider. The WAV envelope is stripped because
// LINEAR16 recognition expects headerless PCM.
func (p *Provider) Transcribe(ctx context.Context, wav []byte) (string, error) {
	pcm, format, err := audio.DecodeWAV(wav)
	if err != nil {
		return "", fmt.Errorf("google: decode audio: %w", err)
	}

	resp, err := p.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(format.SampleRate),
			LanguageCode:    p.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return "", fmt.Errorf("google: recognize: %w", err)
	}

	var sb strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(result.Alternatives[0].Transcript)
	}
	return strings.TrimSpace(sb.String()), nil
}

// Close implements stt.Provider.
func (p *Provider) Close() error {
	return p.client.Close()
}
