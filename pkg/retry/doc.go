// Package retry retries transient failures with backoff.
//
// It is used for search result page requests, where a 429 or 5xx from the
// search engine is worth another attempt. Image fetches inside a batch are
// never retried: the batch deadline bounds them instead.
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	body, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context) ([]byte, error) {
//		return client.Get(ctx, pageURL)
//	})
//
// Typed errors from pkg/errors decide retryability: network, timeout,
// rate limit and server errors are retried, everything else is returned
// immediately.
package retry
