package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/nao1215/pathscan/internal/model"
)

// TestClientGet tests basic fetching behavior.
func TestClientGet(t *testing.T) {
	t.Parallel()

	t.Run("returns status, body and content type", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html><body>hello</body></html>")) //nolint:errcheck
		}))
		defer server.Close()

		client := NewClient()
		result, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", result.StatusCode)
		}
		if !strings.Contains(result.Body, "hello") {
			t.Errorf("expected body to contain 'hello', got %q", result.Body)
		}
		if !strings.Contains(result.ContentType, "text/html") {
			t.Errorf("expected HTML content type, got %q", result.ContentType)
		}
	})

	t.Run("non-2xx responses are results, not errors", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("<html>denied, see <a href=\"/contact\">contact</a></html>")) //nolint:errcheck
		}))
		defer server.Close()

		client := NewClient()
		result, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.StatusCode != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", result.StatusCode)
		}
		if !strings.Contains(result.Body, "/contact") {
			t.Error("expected error page body to be readable")
		}
	})

	t.Run("sends browser headers", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotAccept string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotAccept = r.Header.Get("Accept")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient()
		if _, err := client.Get(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(gotUA, "Firefox") {
			t.Errorf("expected browser User-Agent, got %q", gotUA)
		}
		if !strings.Contains(gotAccept, "text/html") {
			t.Errorf("expected Accept header, got %q", gotAccept)
		}
	})

	t.Run("sends custom headers and cookie", func(t *testing.T) {
		t.Parallel()

		var gotHeader, gotCookie string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Get("X-Custom")
			gotCookie = r.Header.Get("Cookie")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(
			WithHeaders(map[string]string{"X-Custom": "value1"}),
			WithCookie("session=abc123"),
		)
		if _, err := client.Get(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotHeader != "value1" {
			t.Errorf("expected custom header, got %q", gotHeader)
		}
		if gotCookie != "session=abc123" {
			t.Errorf("expected cookie header, got %q", gotCookie)
		}
	})

	t.Run("follows redirects and reports the final URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/end", http.StatusFound)
		})
		mux.HandleFunc("/end", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("arrived")) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		client := NewClient()
		result, err := client.Get(context.Background(), server.URL+"/start")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.HasSuffix(result.URL, "/end") {
			t.Errorf("expected final URL to end in /end, got %q", result.URL)
		}
		if result.Body != "arrived" {
			t.Errorf("expected redirect target body, got %q", result.Body)
		}
	})

	t.Run("truncates bodies over the configured cap", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 10_000))) //nolint:errcheck
		}))
		defer server.Close()

		client := NewClient(WithMaxBodySize(100))
		result, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Body) != 100 {
			t.Errorf("expected body truncated to 100 bytes, got %d", len(result.Body))
		}
	})
}

// TestClientGetContentEncodings tests manual decoding of compressed bodies.
func TestClientGetContentEncodings(t *testing.T) {
	t.Parallel()

	const page = "<html><body><a href=\"/hidden\">link</a></body></html>"

	t.Run("decodes gzip bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			_, _ = gz.Write([]byte(page)) //nolint:errcheck
			_ = gz.Close()                //nolint:errcheck
		}))
		defer server.Close()

		client := NewClient()
		result, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Body != page {
			t.Errorf("expected decoded gzip body, got %q", result.Body)
		}
	})

	t.Run("decodes brotli bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Encoding", "br")
			br := brotli.NewWriter(w)
			_, _ = br.Write([]byte(page)) //nolint:errcheck
			_ = br.Close()                //nolint:errcheck
		}))
		defer server.Close()

		client := NewClient()
		result, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Body != page {
			t.Errorf("expected decoded brotli body, got %q", result.Body)
		}
	})

	t.Run("decodes deflate bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Encoding", "deflate")
			fl, err := flate.NewWriter(w, flate.DefaultCompression)
			if err != nil {
				return
			}
			_, _ = fl.Write([]byte(page)) //nolint:errcheck
			_ = fl.Close()                //nolint:errcheck
		}))
		defer server.Close()

		client := NewClient()
		result, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Body != page {
			t.Errorf("expected decoded deflate body, got %q", result.Body)
		}
	})
}

// TestClientGetCharsetDecode tests conversion of non-UTF-8 bodies.
func TestClientGetCharsetDecode(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" with an ISO-8859-1 encoded é byte.
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xE9}) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient()
	result, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Body != "café" {
		t.Errorf("expected decoded UTF-8 body %q, got %q", "café", result.Body)
	}
}

// TestClientGetFailures tests transport-level failures.
func TestClientGetFailures(t *testing.T) {
	t.Parallel()

	t.Run("times out on slow servers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(500 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(WithTimeout(50 * time.Millisecond))
		_, err := client.Get(context.Background(), server.URL)
		if err == nil {
			t.Fatal("expected timeout error")
		}
		if kind := ClassifyError(err); kind != model.ErrorKindTimeout {
			t.Errorf("expected timeout kind, got %v", kind)
		}
	})

	t.Run("reports refused connections", func(t *testing.T) {
		t.Parallel()

		// Claim a port, then close the listener so the port is dead.
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		addr := listener.Addr().String()
		_ = listener.Close() //nolint:errcheck

		client := NewClient(WithTimeout(2 * time.Second))
		_, err = client.Get(context.Background(), "http://"+addr+"/")
		if err == nil {
			t.Fatal("expected connection error")
		}
		if kind := ClassifyError(err); kind != model.ErrorKindConnection {
			t.Errorf("expected connection kind, got %v", kind)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(500 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewClient()
		if _, err := client.Get(ctx, server.URL); err == nil {
			t.Fatal("expected error for canceled context")
		}
	})
}

// TestClientInsecureTLS tests the TLS verification bypass.
func TestClientInsecureTLS(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("secure")) //nolint:errcheck
	}))
	defer server.Close()

	t.Run("self-signed certificate fails with verification on", func(t *testing.T) {
		t.Parallel()

		client := NewClient()
		if _, err := client.Get(context.Background(), server.URL); err == nil {
			t.Fatal("expected certificate verification error")
		}
	})

	t.Run("self-signed certificate passes with verification off", func(t *testing.T) {
		t.Parallel()

		client := NewClient(WithInsecureTLS(true))
		result, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Body != "secure" {
			t.Errorf("expected body 'secure', got %q", result.Body)
		}
	})
}

// TestClassifyError tests error kind classification.
func TestClassifyError(t *testing.T) {
	t.Parallel()

	t.Run("nil error is none", func(t *testing.T) {
		t.Parallel()
		if kind := ClassifyError(nil); kind != model.ErrorKindNone {
			t.Errorf("expected none, got %v", kind)
		}
	})

	t.Run("deadline exceeded is timeout", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("fetch: %w", context.DeadlineExceeded)
		if kind := ClassifyError(err); kind != model.ErrorKindTimeout {
			t.Errorf("expected timeout, got %v", kind)
		}
	})

	t.Run("dns failure is connection", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("fetch: %w", &net.DNSError{Err: "no such host", Name: "missing.invalid"})
		if kind := ClassifyError(err); kind != model.ErrorKindConnection {
			t.Errorf("expected connection, got %v", kind)
		}
	})

	t.Run("timed-out dial is timeout, not connection", func(t *testing.T) {
		t.Parallel()
		err := &net.OpError{Op: "dial", Err: &timeoutError{}}
		if kind := ClassifyError(err); kind != model.ErrorKindTimeout {
			t.Errorf("expected timeout, got %v", kind)
		}
	})

	t.Run("generic error is other", func(t *testing.T) {
		t.Parallel()
		if kind := ClassifyError(errors.New("boom")); kind != model.ErrorKindOther {
			t.Errorf("expected other, got %v", kind)
		}
	})
}

// timeoutError implements net.Error with Timeout() == true.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
