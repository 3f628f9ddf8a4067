package narrative

import (
    "context"
    "errors"
    "fmt"
    "time"

    xhttp "FxCockpit/pkg/http"
)

// httpBase is the shared foundation for REST narrative providers.
// It centralizes client construction, auth headers and JSON POST handling.
type httpBase struct {
    url     string
    headers map[string]string
    client  *xhttp.Client
}

func newHTTPBase(url string, timeout time.Duration, headers map[string]string, opts ...xhttp.ClientOption) *httpBase {
    if timeout <= 0 {
        timeout = 30 * time.Second
    }
    opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
    return &httpBase{
        url:     url,
        headers: headers,
        client:  xhttp.NewClient(opts...),
    }
}

// PostJSON posts payload to the provider URL and decodes the JSON answer into dest.
func (b *httpBase) PostJSON(ctx context.Context, payload interface{}, dest interface{}) error {
    if b.client == nil || b.url == "" {
        return fmt.Errorf("narrative http client not initialized")
    }
    headers := map[string]string{"Content-Type": "application/json"}
    for k, v := range b.headers {
        headers[k] = v
    }
    return b.client.SendAndParse(ctx, &xhttp.RequestOptions{
        Method:  xhttp.MethodPost,
        URL:     b.url,
        Headers: headers,
        Body:    payload,
    }, dest)
}

// PostJSONWithRetry retries rate-limited and 5xx answers up to attempts times.
func (b *httpBase) PostJSONWithRetry(ctx context.Context, payload interface{}, dest interface{}, attempts int) error {
    if attempts <= 1 {
        return b.PostJSON(ctx, payload, dest)
    }
    var err error
    for i := 1; i <= attempts; i++ {
        err = b.PostJSON(ctx, payload, dest)
        if err == nil || !retryable(err) || i == attempts {
            return err
        }
        select {
        case <-time.After(time.Duration(i) * 200 * time.Millisecond):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return err
}

func retryable(err error) bool {
    var se *xhttp.StatusError
    if errors.As(err, &se) {
        return se.Retryable()
    }
    return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
