package signup

import (
	"errors"
	"sync"

	"github.com/roach88/signupflow/internal/signal"
)

// ErrDismissed is the failure of a prompt closed without picking an action.
var ErrDismissed = errors.New("prompt dismissed")

// Prompt is one acknowledgement awaiting the user.
type Prompt struct {
	Message      string
	CancelAction string
	Actions      []string

	done func(string, error)
}

// PromptQueue is a Wireframe for text front ends. Prompts queue up in the
// order they are shown; Acknowledge and Dismiss settle the oldest one.
//
// Thread-safety: all methods are safe for concurrent use.
type PromptQueue struct {
	mu      sync.Mutex
	pending []*Prompt
	onShow  func(Prompt)
}

// NewPromptQueue creates a queue. onShow, if not nil, is called with every
// new prompt; it must not block.
func NewPromptQueue(onShow func(Prompt)) *PromptQueue {
	return &PromptQueue{onShow: onShow}
}

// PromptFor queues a prompt. Cancelling the Task withdraws it.
func (q *PromptQueue) PromptFor(message, cancelAction string, actions []string) signal.Task[string] {
	return func(done func(string, error)) func() {
		p := &Prompt{
			Message:      message,
			CancelAction: cancelAction,
			Actions:      append([]string(nil), actions...),
			done:         done,
		}

		q.mu.Lock()
		q.pending = append(q.pending, p)
		onShow := q.onShow
		q.mu.Unlock()

		if onShow != nil {
			onShow(*p)
		}
		return func() { q.remove(p) }
	}
}

// Pending returns the prompts still waiting, oldest first.
func (q *PromptQueue) Pending() []Prompt {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Prompt, len(q.pending))
	for i, p := range q.pending {
		out[i] = *p
	}
	return out
}

// Acknowledge settles the oldest prompt with its cancel action. It returns
// false when nothing is pending.
func (q *PromptQueue) Acknowledge() bool {
	p := q.pop()
	if p == nil {
		return false
	}
	p.done(p.CancelAction, nil)
	return true
}

// Dismiss fails the oldest prompt with ErrDismissed.
func (q *PromptQueue) Dismiss() bool {
	p := q.pop()
	if p == nil {
		return false
	}
	p.done("", ErrDismissed)
	return true
}

func (q *PromptQueue) pop() *Prompt {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	p := q.pending[0]
	q.pending = q.pending[1:]
	return p
}

func (q *PromptQueue) remove(p *Prompt) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, cur := range q.pending {
		if cur == p {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}
