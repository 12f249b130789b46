package service

import (
	"context"
	"net/http"

	"taskboard-api/core/constants"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: constants.HTTPClientTimeout}
}

// doWithRetry performs one request with a single retry on transport-level
// failure. Application errors (any HTTP status) are returned to the caller
// untouched and never retried. build must return a fresh request each call
// so bodies are re-readable on the retry.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req.WithContext(ctx))
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
