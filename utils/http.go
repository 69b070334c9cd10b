package utils

import (
	"net/http"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

type HTTPClientOption func(*http.Client)

func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *http.Client) {
		c.Timeout = timeout
	}
}

func NewHTTPClient(opts ...HTTPClientOption) *http.Client {
	client := &http.Client{
		Timeout: defaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// DefaultHTTPClient 带默认超时的共享客户端
var DefaultHTTPClient = NewHTTPClient()
