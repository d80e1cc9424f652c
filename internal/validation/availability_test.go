package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signupflow/internal/signal"
)

// await blocks until task completes or the test times out.
func await[T any](t *testing.T, task signal.Task[T]) (T, error) {
	t.Helper()

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	task(func(v T, err error) { ch <- outcome{v, err} })

	select {
	case o := <-ch:
		return o.v, o.err
	case <-time.After(5 * time.Second):
		t.Fatal("task did not complete")
		var zero T
		return zero, nil
	}
}

func TestStaticAvailability_CaseInsensitive(t *testing.T) {
	s := NewStaticAvailability("Admin", " root ", "")

	for name, want := range map[string]bool{
		"admin": false,
		"ADMIN": false,
		"root":  false,
		"alice": true,
		"":      true,
	} {
		got, done, err := settle(s.UsernameAvailable(name))
		require.True(t, done)
		require.NoError(t, err)
		assert.Equal(t, want, got, "username %q", name)
	}
}

func TestHTTPAvailability_Statuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/") {
		case "taken":
			w.WriteHeader(http.StatusOK)
		case "free":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	h := NewHTTPAvailability(srv.URL+"/", srv.Client())

	available, err := await(t, h.UsernameAvailable("free"))
	require.NoError(t, err)
	assert.True(t, available)

	available, err = await(t, h.UsernameAvailable("taken"))
	require.NoError(t, err)
	assert.False(t, available)

	_, err = await(t, h.UsernameAvailable("flaky"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestHTTPAvailability_EscapesUsername(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	h := NewHTTPAvailability(srv.URL, srv.Client())
	_, err := await(t, h.UsernameAvailable("a/b c"))
	require.NoError(t, err)
	assert.Equal(t, "/a%2Fb%20c", gotPath)
}

func TestHTTPAvailability_CancelAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	h := NewHTTPAvailability(srv.URL, srv.Client())

	errs := make(chan error, 1)
	cancel := h.UsernameAvailable("slow")(func(_ bool, err error) { errs <- err })
	cancel()

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled lookup did not return")
	}
}

func TestHTTPAvailability_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := NewHTTPAvailability(url, nil)
	_, err := await(t, h.UsernameAvailable("alice"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "availability lookup")
}
