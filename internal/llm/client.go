package llm

import (
	"context"
	"errors"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
	ErrNoJSON        = errors.New("no JSON object in response")
)

// Client - минимальный контракт LLM: system + user prompt -> текст.
// Ответ агенты ждут в виде JSON, разбирает его DecodeJSON.
type Client interface {
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// ClientFunc - функция как Client, удобно для тестов и оберток
type ClientFunc func(ctx context.Context, system, prompt string) (string, error)

func (f ClientFunc) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}
