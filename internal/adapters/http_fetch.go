package adapters

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"taskforge/internal/shared"
)

const defaultFetchTimeout = 60 * time.Second
const defaultFetchRetries = 3

// HTTPFetcher downloads remote artifact files. Transient failures
// (network errors, 5xx responses) are retried a bounded number of times
// with exponential backoff; other HTTP errors are permanent. A 404 on
// an optional file (signature, metadata) is reported as not found
// rather than an error.
type HTTPFetcher struct {
	Client  *http.Client
	Retries uint64
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: defaultFetchTimeout},
		Retries: defaultFetchRetries,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, optional bool) ([]byte, bool, error) {
	var data []byte
	var notFound bool

	operation := func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.Client.Do(request)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusNotFound:
			notFound = true
			return nil
		case resp.StatusCode >= 500:
			return shared.HTTPStatusError(resp.StatusCode, url)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(shared.HTTPStatusError(resp.StatusCode, url))
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		data = body
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.Retries)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch remote file").
			WithCause(err)
	}
	if notFound {
		if optional {
			log.Ctx(ctx).Debug().Str("url", url).Msg("optional remote file absent")
			return nil, false, nil
		}
		return nil, false, nil
	}
	return data, true, nil
}
