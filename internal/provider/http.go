package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"
	"resty.dev/v3"

	"github.com/vk/checkrig/internal/ctxlog"
)

// HTTPOptions tunes the bounded retry policy of the HTTP collaborator.
type HTTPOptions struct {
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
}

// DefaultHTTPOptions matches the shell-level HTTP checks this engine
// replaces: a handful of attempts with a fixed delay.
func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		Timeout:   10 * time.Second,
		Retries:   3,
		RetryWait: 2 * time.Second,
	}
}

// HTTPQuery serves the "http" data source for check blocks: it performs a
// GET/HEAD request and exposes the response status and body. Transport
// failures that survive the retry policy are ExternalErrors, never folded
// into expected-failure semantics.
type HTTPQuery struct {
	client *resty.Client
}

// NewHTTPQuery builds the collaborator with its retry policy baked into
// the shared client.
func NewHTTPQuery(opts HTTPOptions) *HTTPQuery {
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait)
	return &HTTPQuery{client: client}
}

// Close releases the underlying client.
func (h *HTTPQuery) Close() error { return h.client.Close() }

// Query implements Querier for kind "http". Arguments: url (required),
// method (optional, GET or HEAD).
func (h *HTTPQuery) Query(ctx context.Context, kind string, args map[string]cty.Value) (cty.Value, error) {
	if kind != "http" {
		return cty.NilVal, fmt.Errorf("%q: %w", kind, ErrNoSuchDataSource)
	}

	url, ok := stringArg(args, "url")
	if !ok {
		return cty.NilVal, fmt.Errorf(`data source "http" requires a string "url" argument`)
	}

	method := "GET"
	if m, ok := stringArg(args, "method"); ok {
		method = strings.ToUpper(m)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("HTTP data lookup starting.", "url", url, "method", method)

	req := h.client.R().SetContext(ctx)
	var (
		res *resty.Response
		err error
	)
	switch method {
	case "GET":
		res, err = req.Get(url)
	case "HEAD":
		res, err = req.Head(url)
	default:
		return cty.NilVal, fmt.Errorf(`data source "http": unsupported method %q`, method)
	}
	if err != nil {
		return cty.NilVal, &ExternalError{Op: "query", Kind: "http", Err: err}
	}

	logger.Debug("HTTP data lookup finished.", "url", url, "status", res.StatusCode())
	return cty.ObjectVal(map[string]cty.Value{
		"url":         cty.StringVal(url),
		"status_code": cty.NumberIntVal(int64(res.StatusCode())),
		"body":        cty.StringVal(res.String()),
	}), nil
}
