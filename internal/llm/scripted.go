package llm

import (
	"context"
	"fmt"
	"sync"
)

// Scripted is a Completer that replays queued responses and records every
// request it receives. With an empty queue it echoes the last user message,
// which makes it usable as an offline stand-in during local development.
type Scripted struct {
	mu       sync.Mutex
	queue    []scriptedStep
	requests []Request
	// keep bounds requests; negative keeps everything.
	keep int
}

type scriptedStep struct {
	resp Response
	err  error
}

// NewScripted returns a Completer that answers with the given responses in order.
func NewScripted(responses ...Response) *Scripted {
	s := &Scripted{keep: -1}
	for _, r := range responses {
		s.queue = append(s.queue, scriptedStep{resp: r})
	}
	return s
}

// Push queues another response.
func (s *Scripted) Push(resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptedStep{resp: resp})
}

// Fail queues an error.
func (s *Scripted) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptedStep{err: err})
}

// LimitRequests keeps only the n most recent requests. Zero stops recording,
// which is what a long-running server wants.
func (s *Scripted) LimitRequests(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keep = n
	s.trim()
}

func (s *Scripted) trim() {
	if s.keep >= 0 && len(s.requests) > s.keep {
		s.requests = append([]Request(nil), s.requests[len(s.requests)-s.keep:]...)
	}
}

// Requests returns a copy of the requests received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Scripted) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keep != 0 {
		s.requests = append(s.requests, req)
		s.trim()
	}
	if len(s.queue) == 0 {
		return Response{Content: fmt.Sprintf("You said: %q", lastUserMessage(req.Messages)), FinishReason: "stop"}, nil
	}
	step := s.queue[0]
	s.queue = s.queue[1:]
	return step.resp, step.err
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
