package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a signature server.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

type Option func(*Client)

// WithAuthToken sets the session token sent as bearer token.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type urlBuilder struct {
	base       string
	path       string
	pathParams map[string]string
	query      url.Values
}

func (c *Client) url() *urlBuilder {
	return &urlBuilder{
		base:       c.baseURL,
		pathParams: make(map[string]string),
		query:      make(url.Values),
	}
}

func (b *urlBuilder) setPath(path string) *urlBuilder {
	b.path = path
	return b
}

// setPathParam replaces the {name} segment of the path.
func (b *urlBuilder) setPathParam(name, value string) *urlBuilder {
	b.pathParams[name] = value
	return b
}

func (b *urlBuilder) addQueryParam(key string, value any) *urlBuilder {
	b.query.Add(key, fmt.Sprint(value))
	return b
}

func (b *urlBuilder) build() string {
	path := strings.ReplaceAll(b.path, "{$}", "")
	for name, value := range b.pathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	u := b.base + path
	if len(b.query) > 0 {
		u += "?" + b.query.Encode()
	}
	return u
}
