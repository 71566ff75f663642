package service

import (
	"context"
	"errors"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/aGallea/smart-phone/internal/config"
	"github.com/aGallea/smart-phone/pkg/provider/llm"
	llmanthropic "github.com/aGallea/smart-phone/pkg/provider/llm/anthropic"
	llmanyllm "github.com/aGallea/smart-phone/pkg/provider/llm/anyllm"
	llmollama "github.com/aGallea/smart-phone/pkg/provider/llm/ollama"
	llmopenai "github.com/aGallea/smart-phone/pkg/provider/llm/openai"
	sttgoogle "github.com/aGallea/smart-phone/pkg/provider/stt/google"
	sttopenai "github.com/aGallea/smart-phone/pkg/provider/stt/openai"
	"github.com/aGallea/smart-phone/pkg/provider/tts"
	ttselevenlabs "github.com/aGallea/smart-phone/pkg/provider/tts/elevenlabs"
	ttsopenai "github.com/aGallea/smart-phone/pkg/provider/tts/openai"
)

// RegisterBuiltinSTT registers the stock speech-to-text factories.
func RegisterBuiltinSTT(r *STT) error {
	return errors.Join(
		r.Register("openai", func(_ context.Context, cfg config.Section) (Provider[[]byte, string], error) {
			p, err := sttopenai.New(
				cfg.GetString("openai_api_key", ""),
				cfg.GetString("model", ""),
				sttopenai.WithLanguage(cfg.GetString("language", "en-US")),
			)
			if err != nil {
				return nil, err
			}
			return WrapSTT(p), nil
		}),
		r.Register("google", func(ctx context.Context, cfg config.Section) (Provider[[]byte, string], error) {
			var opts []sttgoogle.Option
			if creds := cfg.GetString("google_credentials_file", ""); creds != "" {
				opts = append(opts, sttgoogle.WithCredentialsFile(creds))
			}
			opts = append(opts, sttgoogle.WithLanguage(cfg.GetString("language", "en-US")))
			p, err := sttgoogle.New(ctx, opts...)
			if err != nil {
				return nil, err
			}
			return WrapSTT(p), nil
		}),
	)
}

// RegisterBuiltinTTS registers the stock text-to-speech factories.
func RegisterBuiltinTTS(r *TTS) error {
	return errors.Join(
		r.Register("openai", func(_ context.Context, cfg config.Section) (Provider[tts.Request, []byte], error) {
			p, err := ttsopenai.New(
				cfg.GetString("openai_api_key", ""),
				cfg.GetString("model", ""),
				ttsopenai.WithVoice(cfg.GetString("voice", "alloy")),
			)
			if err != nil {
				return nil, err
			}
			return WrapTTS(p), nil
		}),
		r.Register("elevenlabs", func(_ context.Context, cfg config.Section) (Provider[tts.Request, []byte], error) {
			var opts []ttselevenlabs.Option
			if voice := cfg.GetString("voice", ""); voice != "" {
				opts = append(opts, ttselevenlabs.WithVoice(voice))
			}
			if model := cfg.GetString("model", ""); model != "" {
				opts = append(opts, ttselevenlabs.WithModel(model))
			}
			p, err := ttselevenlabs.New(cfg.GetString("elevenlabs_api_key", ""), opts...)
			if err != nil {
				return nil, err
			}
			return WrapTTS(p), nil
		}),
	)
}

// RegisterBuiltinLLM registers the stock language model factories. The
// gemini, deepseek, mistral, and groq names share the any-llm backend.
func RegisterBuiltinLLM(r *LLM) error {
	errs := []error{
		r.Register("openai", func(_ context.Context, cfg config.Section) (Provider[llm.Request, string], error) {
			p, err := llmopenai.New(
				cfg.GetString("openai_api_key", ""),
				cfg.GetString("model", ""),
				llmopenai.WithSystemPrompt(cfg.GetString("system_prompt", "")),
				llmopenai.WithMaxTokens(cfg.GetInt("max_tokens", 0)),
				llmopenai.WithTemperature(cfg.GetFloat("temperature", 0)),
			)
			if err != nil {
				return nil, err
			}
			return WrapLLM(p), nil
		}),
		r.Register("anthropic", func(_ context.Context, cfg config.Section) (Provider[llm.Request, string], error) {
			opts := []llmanthropic.Option{
				llmanthropic.WithSystemPrompt(cfg.GetString("system_prompt", "")),
			}
			if mt := cfg.GetInt("max_tokens", 0); mt > 0 {
				opts = append(opts, llmanthropic.WithMaxTokens(mt))
			}
			p, err := llmanthropic.New(
				cfg.GetString("anthropic_api_key", ""),
				cfg.GetString("model", ""),
				opts...,
			)
			if err != nil {
				return nil, err
			}
			return WrapLLM(p), nil
		}),
		r.Register("ollama", func(_ context.Context, cfg config.Section) (Provider[llm.Request, string], error) {
			opts := []llmollama.Option{
				llmollama.WithSystemPrompt(cfg.GetString("system_prompt", "")),
				llmollama.WithMaxTokens(cfg.GetInt("max_tokens", 0)),
				llmollama.WithTemperature(cfg.GetFloat("temperature", 0)),
			}
			if host := cfg.GetString("host", ""); host != "" {
				opts = append(opts, llmollama.WithHost(host))
			}
			p, err := llmollama.New(cfg.GetString("model", ""), opts...)
			if err != nil {
				return nil, err
			}
			return WrapLLM(p), nil
		}),
	}

	for _, backend := range []string{"gemini", "deepseek", "mistral", "groq"} {
		backend := backend
		errs = append(errs, r.Register(backend, func(_ context.Context, cfg config.Section) (Provider[llm.Request, string], error) {
			opts := []llmanyllm.Option{
				llmanyllm.WithSystemPrompt(cfg.GetString("system_prompt", "")),
				llmanyllm.WithMaxTokens(cfg.GetInt("max_tokens", 0)),
				llmanyllm.WithTemperature(cfg.GetFloat("temperature", 0)),
			}
			var backendOpts []anyllmlib.Option
			if key := cfg.GetString(backend+"_api_key", ""); key != "" {
				backendOpts = append(backendOpts, anyllmlib.WithAPIKey(key))
			}
			p, err := llmanyllm.New(backend, cfg.GetString("model", ""), opts, backendOpts...)
			if err != nil {
				return nil, err
			}
			return WrapLLM(p), nil
		}))
	}

	return errors.Join(errs...)
}
