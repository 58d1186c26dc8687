package install

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Process is a running external command whose standard output can be
// observed while it runs.
type Process struct {
	cancel  context.CancelFunc
	done    chan struct{}
	stdout  io.Writer
	wrapErr func(error) error

	// sendMu is held while output is handed to subscribers, so finish
	// cannot close a channel that is being sent on.
	sendMu   sync.Mutex
	stopping chan struct{}

	mu     sync.Mutex
	err    error
	output bytes.Buffer
	subs   []chan []byte
	closed bool
}

// Start runs name with args in dir. Standard output is copied to stdout (if
// not nil) and to every subscriber; standard error goes to stderr.
func Start(ctx context.Context, dir string, stdin io.Reader, stdout, stderr io.Writer, name string, args ...string) (*Process, error) {
	return start(ctx, dir, stdin, stdout, stderr, nil, name, args...)
}

func start(ctx context.Context, dir string, stdin io.Reader, stdout, stderr io.Writer, wrapErr func(error) error, name string, args ...string) (*Process, error) {
	ctx, cancel := context.WithCancel(ctx)
	p := newProcess(cancel, stdout, wrapErr)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = stdin
	cmd.Stdout = writerFunc(p.write)
	cmd.Stderr = stderr
	// Children that outlive a killed generator must not hold Wait forever.
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}

	go func() {
		p.finish(cmd.Wait())
	}()
	return p, nil
}

func newProcess(cancel context.CancelFunc, stdout io.Writer, wrapErr func(error) error) *Process {
	return &Process{
		cancel:   cancel,
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
		stdout:   stdout,
		wrapErr:  wrapErr,
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

func (p *Process) write(b []byte) (int, error) {
	chunk := bytes.Clone(b)
	if p.stdout != nil {
		_, _ = p.stdout.Write(chunk)
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	p.output.Write(chunk)
	subs := append([]chan []byte(nil), p.subs...)
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- chunk:
		case <-p.stopping:
			// Output still has what the subscriber missed.
			return len(b), nil
		}
	}
	return len(b), nil
}

func (p *Process) finish(err error) {
	p.cancel()
	if err != nil && p.wrapErr != nil {
		err = p.wrapErr(err)
	}

	// A write can outlive the process when a subscriber stalls; release it
	// before closing the channels it sends on.
	close(p.stopping)
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	p.err = err
	p.closed = true
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
	p.mu.Unlock()

	close(p.done)
}

// Subscribe returns a channel that first receives everything written so far
// and then each new chunk of output. It is closed when the process exits.
// Subscribers must keep reading or the process output stalls; chunks still
// undelivered when the process exits are dropped.
func (p *Process) Subscribe() <-chan []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan []byte, 64)
	if p.output.Len() > 0 {
		ch <- bytes.Clone(p.output.Bytes())
	}
	if p.closed {
		close(ch)
		return ch
	}
	p.subs = append(p.subs, ch)
	return ch
}

// Output returns everything the process has written to standard output so far.
func (p *Process) Output() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.output.Bytes())
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process exits and returns its error, if any.
func (p *Process) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Cancel kills the process. Wait still reports how it ended.
func (p *Process) Cancel() {
	p.cancel()
}
