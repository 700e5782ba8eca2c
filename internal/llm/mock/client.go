package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/travel-insurance-bot/internal/llm"
)

// Client - фейковый LLM для тестов. Безопасен для параллельных агентов.
type Client struct {
	Response string
	Error    error
	Delay    time.Duration
	// Responder, если задан, выбирает ответ по промпту
	Responder func(system, prompt string) (string, error)

	mu       sync.Mutex
	calls    []LLMCall
	lastCall LLMCall
}

type LLMCall struct {
	System string
	Prompt string
}

func New() *Client {
	return &Client{
		Response: "{}",
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.Response = response
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) WithResponder(fn func(system, prompt string) (string, error)) *Client {
	c.Responder = fn
	return c
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	call := LLMCall{System: system, Prompt: prompt}
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.lastCall = call
	c.mu.Unlock()

	if c.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.Delay):
		}
	}

	if c.Responder != nil {
		return c.Responder(system, prompt)
	}
	if c.Error != nil {
		return "", c.Error
	}
	return c.Response, nil
}

func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *Client) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCall.Prompt
}

func (c *Client) Calls() []LLMCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LLMCall, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.lastCall = LLMCall{}
}

var _ llm.Client = (*Client)(nil)
