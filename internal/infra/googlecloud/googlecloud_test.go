package googlecloud_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService serves handler and returns client options pointing at it.
func fakeService(t *testing.T, handler http.HandlerFunc) []option.ClientOption {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return []option.ClientOption{
		option.WithEndpoint(server.URL + "/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	}
}

var ctx = context.Background()
