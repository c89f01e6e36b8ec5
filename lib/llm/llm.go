// Package llm wraps the text-generation providers used to answer attribute
// questions. Every provider reduces to Complete: a system prompt plus a
// conversation in, one text reply out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/IvanKyuu/university-crawl/lib/restyutil"
	"github.com/IvanKyuu/university-crawl/lib/retry"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("unicrawl/lib/llm")

// ErrMissingCredential is returned by constructors when no API key is available.
var ErrMissingCredential = errors.New("missing llm credential")

// ErrEmptyResponse is returned when the provider replied without any text.
var ErrEmptyResponse = errors.New("empty llm response")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
	// Temperature is sent as is, 0 asks for the most deterministic reply.
	Temperature float64
	// JSON asks the provider for a JSON document when it supports that.
	JSON bool
}

func (r Request) maxTokens() int {
	if r.MaxTokens <= 0 {
		return 1024
	}
	return r.MaxTokens
}

// Provider is a text-generation backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a provider. APIKey falls back to the
// provider's environment variable.
type Config struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"-"`
	// Dump receives HTTP exchanges of resty based providers when debug
	// logging is on.
	Dump restyutil.InstrumentOutput `json:"-"`
}

// New builds the provider named by cfg.Provider: "anthropic" (default),
// "gemini" or "openai".
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic", "claude":
		return NewAnthropic(cfg)
	case "gemini", "google":
		return NewGemini(ctx, cfg)
	case "openai", "gpt":
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// classifyStatus marks rate limits and server errors as transient.
func classifyStatus(status int, err error) error {
	if status == 429 || status >= 500 {
		return retry.Transient(err)
	}
	return err
}

// classifyNetwork marks connection level failures as transient.
func classifyNetwork(err error) error {
	var netErr net.Error
	var opErr *net.OpError
	if errors.As(err, &netErr) || errors.As(err, &opErr) {
		return retry.Transient(err)
	}
	return err
}

// TrimFence removes a surrounding markdown code fence, models like to wrap
// JSON answers in one even when asked not to.
func TrimFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		text = text[newline+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
