package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"galley/internal/diag"
	"galley/internal/rules"
	"galley/internal/textutil"
)

// Host is the worker side of the channel: it reads requests from in,
// runs the remote rule set and writes results to out. Jobs execute one at
// a time on a single goroutine while the read loop keeps consuming, so an
// abort can land while its job is still queued or running.
type Host struct {
	in  io.Reader
	out io.Writer
	log zerolog.Logger

	writeMu sync.Mutex
	enc     *json.Encoder

	mu     sync.Mutex
	active map[int64]bool
}

func NewHost(in io.Reader, out io.Writer, log zerolog.Logger) *Host {
	return &Host{
		in:     in,
		out:    out,
		log:    log,
		enc:    json.NewEncoder(out),
		active: make(map[int64]bool),
	}
}

// Run serves until in reaches EOF or the context is cancelled between
// messages. Queued jobs drain before it returns.
func (h *Host) Run(ctx context.Context) error {
	jobs := make(chan Envelope, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for env := range jobs {
			h.process(env)
		}
	}()

	dec := json.NewDecoder(h.in)
	var loopErr error
	for {
		if ctx.Err() != nil {
			loopErr = ctx.Err()
			break
		}
		var env Envelope
		if err := dec.Decode(&env); err != nil {
			if !errors.Is(err, io.EOF) {
				loopErr = fmt.Errorf("read request: %w", err)
			}
			break
		}
		switch env.Command {
		case CmdLint:
			h.mark(env.ID)
			jobs <- env
		case CmdAbort:
			if h.clear(env.ID) {
				h.log.Debug().Int64("id", env.ID).Msg("job withdrawn")
			}
		default:
			h.log.Warn().Str("command", string(env.Command)).Msg("unknown request")
		}
	}

	close(jobs)
	<-done
	return loopErr
}

func (h *Host) mark(id int64) {
	h.mu.Lock()
	h.active[id] = true
	h.mu.Unlock()
}

// clear removes id from the active set, reporting whether it was there.
func (h *Host) clear(id int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active[id] {
		return false
	}
	delete(h.active, id)
	return true
}

func (h *Host) isActive(id int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active[id]
}

func (h *Host) process(env Envelope) {
	if !h.isActive(env.ID) {
		h.log.Debug().Int64("id", env.ID).Msg("job aborted before start")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if h.clear(env.ID) {
				h.send(Envelope{Command: CmdError, ID: env.ID, Error: fmt.Sprint(r)})
			}
		}
	}()

	_, remote := rules.Configure(env.RuleConfig)
	lines := textutil.SplitLines(env.Text)
	ds := rules.Run(remote, lines, 0)
	diag.Sort(ds)
	msgs := MessagesFromDiagnostics(ds)

	// The check-and-clear just before posting is the worker half of
	// race-safe cancellation: an abort that arrived mid-run wins here.
	if !h.clear(env.ID) {
		h.send(Envelope{Command: CmdLog, Message: fmt.Sprintf("result for aborted job %d dropped", env.ID)})
		return
	}
	h.send(Envelope{Command: CmdLintResult, ID: env.ID, Result: &LintResult{Messages: msgs}})
}

func (h *Host) send(env Envelope) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.enc.Encode(env); err != nil {
		h.log.Error().Err(err).Msg("write response")
	}
}
