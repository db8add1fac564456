// Package clients holds the typed HTTP clients for the catalog, membership
// and loan stores. Every call is bounded by the client timeout, carries the
// caller's bearer credential and maps HTTP statuses onto the loan error
// taxonomy, so nothing above this package looks at status codes.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"library-system/pkg/circuitbreaker"
	"library-system/pkg/loans"
)

type tokenKey struct{}

// WithToken attaches the bearer credential forwarded to every store call.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

func newClient(baseURL string, timeout time.Duration, maxFailures int, cooldown time.Duration) client {
	return client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New(maxFailures, cooldown, loans.IsUnavailable),
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// do performs one request against the store. entity names what a 404 refers
// to ("book", "member", "loan") so NotFound errors read correctly.
func (c *client) do(ctx context.Context, method, path, entity string, headers map[string]string, body, out interface{}) error {
	run := func() error {
		var buf *bytes.Buffer
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return loans.Internal("failed to encode request body")
			}
			buf = bytes.NewBuffer(data)
		} else {
			buf = bytes.NewBuffer(nil)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
		if err != nil {
			return loans.Internal("failed to create request")
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := tokenFrom(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return loans.Unavailable(entity + " store unreachable")
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return loans.Unauthenticated("credential rejected by " + entity + " store")
		case resp.StatusCode == http.StatusNotFound:
			return loans.NotFound(entity)
		case resp.StatusCode == http.StatusConflict:
			var eb errorBody
			if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Error != "" {
				return loans.Conflict(eb.Error)
			}
			return loans.Conflict("conflict")
		case resp.StatusCode >= http.StatusInternalServerError:
			return loans.Unavailable(entity + " store error")
		case resp.StatusCode >= http.StatusBadRequest:
			var eb errorBody
			if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Error != "" {
				return loans.Internal(eb.Error)
			}
			return loans.Internal("request rejected by " + entity + " store")
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return loans.Internal("failed to decode " + entity + " store response")
			}
		}
		return nil
	}

	err := c.breaker.Execute(run)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return loans.Unavailable(entity + " store circuit open")
	}
	return err
}
