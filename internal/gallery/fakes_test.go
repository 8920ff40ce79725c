package gallery

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// fakeSession serves canned GET bodies and HEAD statuses.
type fakeSession struct {
	mu       sync.Mutex
	pages    map[string]Response
	getErr   error
	statuses map[string]int
	headErrs map[string]error
	delays   map[string]time.Duration
	probed   []string
	closed   bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:    map[string]Response{},
		statuses: map[string]int{},
		headErrs: map[string]error{},
		delays:   map[string]time.Duration{},
	}
}

func (f *fakeSession) Get(_ context.Context, url string) (Response, error) {
	if f.getErr != nil {
		return Response{}, f.getErr
	}
	resp, ok := f.pages[url]
	if !ok {
		return Response{URL: url, StatusCode: http.StatusNotFound}, nil
	}
	return resp, nil
}

func (f *fakeSession) Head(ctx context.Context, url string) (int, error) {
	f.mu.Lock()
	f.probed = append(f.probed, url)
	delay := f.delays[url]
	err := f.headErrs[url]
	status, ok := f.statuses[url]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err != nil {
		return 0, err
	}
	if !ok {
		return http.StatusNotFound, nil
	}
	return status, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) probes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.probed...)
}

func (f *fakeSession) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeOpener struct {
	session *fakeSession
	err     error
	opened  int
}

func (o *fakeOpener) Open(context.Context) (Session, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.opened++
	return o.session, nil
}

type fakeRenderer struct {
	resp  Response
	err   error
	calls int
}

func (r *fakeRenderer) Render(_ context.Context, url string) (Response, error) {
	r.calls++
	if r.err != nil {
		return Response{}, r.err
	}
	resp := r.resp
	resp.URL = url
	return resp, nil
}

type statusDetector struct {
	status int
}

func (d statusDetector) IsChallenge(resp Response) bool {
	return resp.StatusCode == d.status
}

var errBoom = errors.New("boom")
