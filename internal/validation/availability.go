package validation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/signupflow/internal/signal"
)

// StaticAvailability treats a fixed set of usernames as taken. Matching is
// case-insensitive (Unicode case folding). Answers are immediate.
type StaticAvailability struct {
	taken map[string]bool
}

// NewStaticAvailability creates a checker where every name in taken is
// unavailable.
func NewStaticAvailability(taken ...string) *StaticAvailability {
	s := &StaticAvailability{
		taken: make(map[string]bool, len(taken)),
	}
	for _, name := range taken {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s.taken[fold(name)] = true
	}
	return s
}

// UsernameAvailable reports whether username is not in the taken set.
func (s *StaticAvailability) UsernameAvailable(username string) signal.Task[bool] {
	return signal.Just(!s.taken[fold(username)])
}

// fold builds a fresh Caser per call: Casers are stateful and must not be
// shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

// HTTPAvailability asks a profile server whether a username exists.
// A 404 for BaseURL/<username> means the name is free, a 200 means it is
// taken, and any other status or transport failure is an error.
type HTTPAvailability struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPAvailability creates a checker against baseURL using client, or
// http.DefaultClient when client is nil.
func NewHTTPAvailability(baseURL string, client *http.Client) *HTTPAvailability {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAvailability{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

// UsernameAvailable performs the lookup on its own goroutine. Cancelling
// the Task aborts the request.
func (h *HTTPAvailability) UsernameAvailable(username string) signal.Task[bool] {
	return signal.Go(func(ctx context.Context) (bool, error) {
		return h.lookup(ctx, username)
	})
}

func (h *HTTPAvailability) lookup(ctx context.Context, username string) (bool, error) {
	target := h.BaseURL + "/" + url.PathEscape(username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("build availability request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("availability lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return true, nil
	case http.StatusOK:
		return false, nil
	default:
		return false, fmt.Errorf("availability lookup: unexpected status %d", resp.StatusCode)
	}
}
