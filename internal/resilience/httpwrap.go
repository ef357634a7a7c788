package resilience

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// HTTPClient sends each request exactly once under an optional per-call
// timeout. Transport errors and 5xx responses are recorded on Monitor as
// failures; the response itself is always handed back to the caller.
type HTTPClient struct {
	Client  *http.Client
	Monitor *Monitor
	Timeout time.Duration
}

// Do executes the request. The timeout also covers reading the body and is
// released when the body is closed.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	resp, err := cl.send(ctx, req)
	if cl.Monitor != nil {
		cl.Monitor.Record(ctx, err == nil && resp.StatusCode < http.StatusInternalServerError)
	}
	return resp, err
}

func (cl HTTPClient) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Timeout <= 0 {
		return cl.Client.Do(req.WithContext(ctx))
	}
	callCtx, cancel := context.WithTimeout(ctx, cl.Timeout)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
