package bsplice

import (
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
)

// node is the part of the output produced by one request. Its items are either data or the node of a nested request,
// in stream order.
type node struct {
	items []item
	done  bool
}

type item struct {
	data  []byte
	child *node
}

// stream is the output of a main request and all of its nested requests. Everything is written to the client in
// stream order: data queued behind a nested request that is still running waits for it.
type stream struct {
	mu          sync.Mutex
	w           http.ResponseWriter
	root        *node
	ended       bool // the main request's end-of-stream reached the output
	wroteHeader bool
	flush       bool
	nested      int
	err         error
}

func newStream(w http.ResponseWriter, root *node) *stream {
	return &stream{w: w, root: root}
}

// insert appends a new nested node to parent at its current end.
func (s *stream) insert(parent *node) *node {
	s.mu.Lock()
	defer s.mu.Unlock()
	child := &node{}
	parent.items = append(parent.items, item{child: child})

	return child
}

// reserve counts one more nested request, it fails when the limit is reached. A limit <= 0 disables the check.
func (s *stream) reserve(limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 && s.nested >= limit {
		return false
	}
	s.nested++

	return true
}

// complete marks a node as done and writes whatever became writable.
func (s *stream) complete(n *node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.done = true
	s.drain(s.root)

	return s.err
}

// finish is called once the main request's handler and all nested requests returned. It reports whether the main
// request ever signalled the end of its stream.
func (s *stream) finish() (terminated bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root.done = true
	s.drain(s.root)
	if s.w != nil && s.err == nil {
		if err := http.NewResponseController(s.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.err = errors.Wrap(err, "flush response")
		}
	}

	return s.ended, s.err
}

// drain writes the longest writable prefix of n, it reports whether n is done and fully written.
func (s *stream) drain(n *node) bool {
	for len(n.items) > 0 {
		it := n.items[0]
		if it.child != nil {
			if !s.drain(it.child) {
				return false
			}
		} else {
			s.write(it.data)
		}
		n.items[0] = item{}
		n.items = n.items[1:]
	}

	return n.done
}

func (s *stream) write(p []byte) {
	if s.w == nil || s.err != nil {
		return
	}

	if _, err := s.w.Write(p); err != nil {
		s.err = errors.Wrap(err, "write response")
	}
}

// outputHeader is the last header stage: it sends the main request's status and header to the client. Headers of
// nested requests are dropped, only their body is part of the output.
func outputHeader(r *Request) error {
	if !r.IsMain() {
		return nil
	}

	s := r.stream
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wroteHeader || s.w == nil {
		return nil
	}
	s.wroteHeader = true

	dst := s.w.Header()
	for k, v := range r.header {
		dst[k] = append([]string(nil), v...)
	}
	s.w.WriteHeader(r.status)

	return nil
}

// outputBody is the last body stage: it queues the delivery in the request's node and writes what it can.
func outputBody(r *Request, in Chain) error {
	s := r.stream
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range in {
		if len(b.Data) > 0 && !r.main.headerOnly {
			r.node.items = append(r.node.items, item{data: b.Data})
		}
		if b.Flush {
			s.flush = true
		}
		if b.Last {
			r.node.done = true
			if r.IsMain() {
				s.ended = true
			}
		}
	}

	s.drain(s.root)
	if s.flush && s.w != nil && s.err == nil {
		s.flush = false
		if err := http.NewResponseController(s.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.err = errors.Wrap(err, "flush response")
		}
	}

	return s.err
}
