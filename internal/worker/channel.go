package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"galley/internal/rules"
)

var (
	// ErrChannelClosed is returned for requests issued after Close.
	ErrChannelClosed = errors.New("worker channel closed")
	// ErrAborted resolves a pending request withdrawn by supersession.
	ErrAborted = errors.New("analysis request aborted")
	// ErrWorkerExited resolves every request pending when the worker died.
	ErrWorkerExited = errors.New("analysis worker exited")
)

// LintRequest is one text slice for the remote rule set.
type LintRequest struct {
	Text     string
	FileKind string
	FilePath string
	Rules    rules.Overrides
}

type outcome struct {
	messages []RuleMessage
	err      error
}

// Pending is an in-flight request. The id is known before the first await
// so callers can register it for cancellation.
type Pending struct {
	ID int64
	ch chan outcome
	c  *Channel
}

// Await blocks for the result. Context cancellation aborts the request.
func (p *Pending) Await(ctx context.Context) ([]RuleMessage, error) {
	select {
	case o := <-p.ch:
		return o.messages, o.err
	case <-ctx.Done():
		p.c.Abort(p.ID)
		return nil, ctx.Err()
	}
}

// Channel owns the worker process. The process starts lazily on the first
// request and is reused until it exits or the channel closes; after an
// unexpected exit the next request starts a fresh one.
type Channel struct {
	argv []string
	log  zerolog.Logger

	nextID atomic.Int64

	mu       sync.Mutex
	pending  map[int64]chan outcome
	proc     *workerProc
	attached bool
	closed   bool
}

type workerProc struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	writeMu sync.Mutex
	enc     *json.Encoder

	// exited closes once the read loop has reaped the process; waitErr is
	// valid after that. Wait is called exactly once, by the read loop.
	exited  chan struct{}
	waitErr error
}

func (p *workerProc) write(env Envelope) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.enc.Encode(env)
}

// NewChannel builds a channel that will run argv as its worker process.
// An empty argv selects the in-process mode: the host runs on a goroutine
// of this process, still reached only through the message pipe.
func NewChannel(argv []string, log zerolog.Logger) *Channel {
	return &Channel{
		argv:    argv,
		log:     log,
		pending: make(map[int64]chan outcome),
	}
}

// Attach builds a channel over an existing transport instead of spawning
// anything, for workers whose lifecycle someone else owns. The channel
// does not respawn an attached worker after it exits.
func Attach(stdin io.WriteCloser, stdout io.Reader, log zerolog.Logger) *Channel {
	c := NewChannel(nil, log)
	c.attached = true
	proc := &workerProc{
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		exited: make(chan struct{}),
	}
	c.proc = proc
	go c.readLoop(proc, stdout)
	return c
}

// Issue assigns the next id, registers it as pending and posts the
// request. It never blocks on the worker's progress.
func (c *Channel) Issue(req LintRequest) (*Pending, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrChannelClosed
	}
	if err := c.ensureProcLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	proc := c.proc
	id := c.nextID.Add(1)
	ch := make(chan outcome, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	env := Envelope{
		Command:    CmdLint,
		ID:         id,
		Text:       req.Text,
		FileKind:   req.FileKind,
		FilePath:   req.FilePath,
		RuleConfig: req.Rules,
	}
	if err := proc.write(env); err != nil {
		c.workerDied(err)
		return nil, fmt.Errorf("post lint request: %w", err)
	}
	return &Pending{ID: id, ch: ch, c: c}, nil
}

// Abort withdraws one id. The pending await resolves with ErrAborted and
// the worker is told to drop the job from its active set; a result that
// still arrives for the id is discarded by the read loop.
func (c *Channel) Abort(id int64) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	proc := c.proc
	c.mu.Unlock()

	if ok {
		ch <- outcome{err: ErrAborted}
	}
	if proc != nil {
		if err := proc.write(Envelope{Command: CmdAbort, ID: id}); err != nil {
			c.log.Debug().Err(err).Int64("id", id).Msg("abort not delivered")
		}
	}
}

// AbortAll withdraws every pending id and reports how many there were.
func (c *Channel) AbortAll() int {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.pending))
	chans := make([]chan outcome, 0, len(c.pending))
	for id, ch := range c.pending {
		ids = append(ids, id)
		chans = append(chans, ch)
	}
	c.pending = make(map[int64]chan outcome)
	proc := c.proc
	c.mu.Unlock()

	for _, ch := range chans {
		ch <- outcome{err: ErrAborted}
	}
	if proc != nil {
		for _, id := range ids {
			if err := proc.write(Envelope{Command: CmdAbort, ID: id}); err != nil {
				break
			}
		}
	}
	return len(ids)
}

// closeGrace is how long Close waits for the worker to exit on its own
// after stdin closes.
var closeGrace = 2 * time.Second

// Close fails the remaining requests, closes the worker's stdin and waits
// briefly for a clean exit before killing it. A transport with no process
// behind it (attached or in-process) cannot be killed; after the grace
// Close stops waiting and leaves the read loop to end whenever the peer
// closes its side.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	proc := c.proc
	c.proc = nil
	chans := make([]chan outcome, 0, len(c.pending))
	for _, ch := range c.pending {
		chans = append(chans, ch)
	}
	c.pending = make(map[int64]chan outcome)
	c.mu.Unlock()

	for _, ch := range chans {
		ch <- outcome{err: ErrChannelClosed}
	}
	if proc == nil {
		return nil
	}
	_ = proc.stdin.Close()

	select {
	case <-proc.exited:
	case <-time.After(closeGrace):
		if proc.cmd == nil {
			return nil
		}
		_ = proc.cmd.Process.Kill()
		<-proc.exited
	}
	return proc.waitErr
}

func (c *Channel) ensureProcLocked() error {
	if c.proc != nil {
		return nil
	}
	if c.attached {
		return ErrWorkerExited
	}
	if len(c.argv) == 0 {
		return c.startInProcessLocked()
	}
	cmd := exec.Command(c.argv[0], c.argv[1:]...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	proc := &workerProc{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		exited: make(chan struct{}),
	}
	c.proc = proc
	c.log.Info().Int("pid", cmd.Process.Pid).Msg("analysis worker started")
	go c.readLoop(proc, stdout)
	return nil
}

// startInProcessLocked runs a host goroutine wired over in-memory pipes.
// The channel side is identical to the subprocess case, including the
// respawn after the host returns.
func (c *Channel) startInProcessLocked() error {
	clientIn, hostOut := io.Pipe()
	hostIn, clientOut := io.Pipe()
	h := NewHost(hostIn, hostOut, c.log)
	go func() {
		if err := h.Run(context.Background()); err != nil {
			c.log.Error().Err(err).Msg("in-process worker stopped")
		}
		_ = hostOut.Close()
	}()
	proc := &workerProc{
		stdin:  clientOut,
		enc:    json.NewEncoder(clientOut),
		exited: make(chan struct{}),
	}
	c.proc = proc
	c.log.Info().Msg("in-process analysis worker started")
	go c.readLoop(proc, clientIn)
	return nil
}

func (c *Channel) readLoop(proc *workerProc, stdout io.Reader) {
	dec := json.NewDecoder(stdout)
	for {
		var env Envelope
		if err := dec.Decode(&env); err != nil {
			if proc.cmd != nil {
				proc.waitErr = proc.cmd.Wait()
			}
			close(proc.exited)
			switch {
			case proc.waitErr != nil:
				c.workerDied(proc.waitErr)
			case errors.Is(err, io.EOF):
				c.workerDied(nil)
			default:
				c.workerDied(err)
			}
			return
		}
		switch env.Command {
		case CmdLintResult:
			var msgs []RuleMessage
			if env.Result != nil {
				msgs = env.Result.Messages
			}
			c.resolve(env.ID, outcome{messages: msgs})
		case CmdError:
			c.resolve(env.ID, outcome{err: fmt.Errorf("rule engine: %s", env.Error)})
		case CmdLog:
			c.log.Debug().Str("origin", "worker").Msg(env.Message)
		default:
			c.log.Warn().Str("command", string(env.Command)).Msg("unknown worker message")
		}
	}
}

// resolve hands the outcome to the awaiting request. Ids missing from the
// pending map were aborted in the meantime; their late results are
// dropped here, which is the client half of race-safe cancellation.
func (c *Channel) resolve(id int64, o outcome) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		c.log.Debug().Int64("id", id).Msg("dropping result for superseded request")
		return
	}
	ch <- o
}

// workerDied clears the process slot so the next request respawns, and
// fails everything that was still pending.
func (c *Channel) workerDied(cause error) {
	c.mu.Lock()
	if c.proc == nil {
		c.mu.Unlock()
		return
	}
	c.proc = nil
	chans := make([]chan outcome, 0, len(c.pending))
	for _, ch := range c.pending {
		chans = append(chans, ch)
	}
	c.pending = make(map[int64]chan outcome)
	c.mu.Unlock()

	for _, ch := range chans {
		ch <- outcome{err: ErrWorkerExited}
	}
	if cause != nil {
		c.log.Error().Err(cause).Int("failed", len(chans)).Msg("analysis worker exited")
	} else {
		c.log.Info().Msg("analysis worker closed its stream")
	}
}
