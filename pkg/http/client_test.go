package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		switch r.URL.Query().Get("status") {
		case "429":
			w.WriteHeader(http.StatusTooManyRequests)
		case "400":
			http.Error(w, "bad symbol", http.StatusBadRequest)
		default:
			_, _ = w.Write([]byte(`{"symbol":"GC=F"}`))
		}
	}))
	defer srv.Close()

	c := NewClient()
	call := func(status string, dest interface{}) error {
		return c.SendAndParse(context.Background(), &RequestOptions{
			Method:      MethodGet,
			URL:         srv.URL,
			Headers:     map[string]string{"x-api-key": "k"},
			QueryParams: map[string][]string{"status": {status}},
		}, dest)
	}

	var out struct {
		Symbol string `json:"symbol"`
	}
	require.NoError(t, call("", &out))
	assert.Equal(t, "GC=F", out.Symbol)

	tests := []struct {
		status    string
		code      int
		retryable bool
	}{
		{"429", http.StatusTooManyRequests, true},
		{"400", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		err := call(tt.status, nil)
		var se *StatusError
		require.True(t, errors.As(err, &se), tt.status)
		assert.Equal(t, tt.code, se.StatusCode)
		assert.Equal(t, tt.retryable, se.Retryable())
	}
}
