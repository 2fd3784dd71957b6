package lint

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"galley/internal/diag"
	"galley/internal/linediff"
	"galley/internal/mask"
	"galley/internal/region"
	"galley/internal/rules"
	"galley/internal/textutil"
	"galley/internal/worker"
)

// Status is the coarse engine state surfaced to the editor.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusError     Status = "error"
)

// Publisher receives the orchestrator's output. Cycles run on their own
// goroutines, so implementations must be safe for concurrent use.
type Publisher interface {
	Publish(doc string, diags []diag.Diagnostic)
	Clear(doc string)
	Status(s Status)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, []diag.Diagnostic) {}
func (nopPublisher) Clear(string)                      {}
func (nopPublisher) Status(Status)                     {}

// Options configure an Orchestrator.
type Options struct {
	// WorkerCommand is the argv of the analysis worker. Empty means the
	// worker runs in-process.
	WorkerCommand []string
	// Channel overrides the worker channel the orchestrator builds from
	// WorkerCommand. Tests attach scripted workers through this.
	Channel *worker.Channel
	// ContextLines widens every analysis region by this many lines.
	ContextLines int
	// MaxDiagnostics caps the published set per document. Zero means no
	// cap.
	MaxDiagnostics int
	// LintOnAutoSave lets editor auto-saves trigger analysis.
	LintOnAutoSave bool
	Rules          rules.Overrides
	Publisher      Publisher
	Logger         zerolog.Logger
}

// settings is the per-cycle snapshot of everything Reconfigure may
// change; a cycle keeps the snapshot it started with.
type settings struct {
	selector  region.Selector
	local     []*rules.Rule
	hasRemote bool
	overrides rules.Overrides
	maxDiags  int
	autoSave  bool
}

func newSettings(contextLines, maxDiags int, autoSave bool, ov rules.Overrides) settings {
	local, remote := rules.Configure(ov)
	return settings{
		selector:  region.Selector{ContextLines: contextLines},
		local:     local,
		hasRemote: len(remote) > 0,
		overrides: ov,
		maxDiags:  maxDiags,
		autoSave:  autoSave,
	}
}

// Orchestrator runs analysis cycles. Each trigger supersedes whatever was
// running: the previous cycle's context is cancelled and every registered
// request id is aborted, for all documents, so at most one cycle owns the
// diagnostic surface at a time.
type Orchestrator struct {
	channel *worker.Channel
	cache   *Cache
	pub     Publisher
	log     zerolog.Logger

	mu        sync.Mutex
	cfg       settings
	seq       uint64
	cancel    context.CancelFunc
	activeDoc string
	inflight  map[string]int64
	closed    bool
	wg        sync.WaitGroup
}

func New(opts Options) *Orchestrator {
	pub := opts.Publisher
	if pub == nil {
		pub = nopPublisher{}
	}
	ch := opts.Channel
	if ch == nil {
		ch = worker.NewChannel(opts.WorkerCommand, opts.Logger)
	}
	return &Orchestrator{
		channel:  ch,
		cache:    NewCache(),
		pub:      pub,
		log:      opts.Logger,
		cfg:      newSettings(opts.ContextLines, opts.MaxDiagnostics, opts.LintOnAutoSave, opts.Rules),
		inflight: make(map[string]int64),
	}
}

// Cache exposes the in-memory store, mainly so a persisted cache can seed
// it before the first cycle.
func (o *Orchestrator) Cache() *Cache { return o.cache }

// Reconfigure swaps the tunable settings. The running cycle finishes on
// the snapshot it started with; the next trigger picks these up.
func (o *Orchestrator) Reconfigure(contextLines, maxDiagnostics int, autoSave bool, ov rules.Overrides) {
	cfg := newSettings(contextLines, maxDiagnostics, autoSave, ov)
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()
}

// AnalyzeNow runs the explicit command trigger.
func (o *Orchestrator) AnalyzeNow(doc, text string) {
	o.trigger(doc, text, "command")
}

// DocumentSaved runs the save trigger. Saves produced by the editor's
// auto-save are skipped unless configured in.
func (o *Orchestrator) DocumentSaved(doc, text string, autoSave bool) {
	o.mu.Lock()
	allowed := o.cfg.autoSave
	o.mu.Unlock()
	if autoSave && !allowed {
		o.log.Debug().Str("doc", doc).Msg("auto-save trigger skipped")
		return
	}
	o.trigger(doc, text, "save")
}

// SetActiveDocument records the editor's focused document. Focus changes
// never trigger analysis; running cycles consult this to notice that
// their document lost focus.
func (o *Orchestrator) SetActiveDocument(doc string) {
	o.mu.Lock()
	o.activeDoc = doc
	o.mu.Unlock()
}

func (o *Orchestrator) ActiveDocument() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeDoc
}

// DocumentClosed drops the document's entry and clears its surface.
func (o *Orchestrator) DocumentClosed(doc string) {
	o.cache.Evict(doc)
	o.pub.Clear(doc)
}

// Close cancels the running cycle, waits for it to unwind and shuts the
// worker down.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
	return o.channel.Close()
}

// trigger supersedes the running cycle and starts a new one for doc.
func (o *Orchestrator) trigger(doc, text, reason string) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.seq++
	seq := o.seq
	cfg := o.cfg
	if o.cancel != nil {
		o.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	stale := make([]int64, 0, len(o.inflight))
	for d, id := range o.inflight {
		stale = append(stale, id)
		delete(o.inflight, d)
	}
	o.wg.Add(1)
	o.mu.Unlock()

	for _, id := range stale {
		o.channel.Abort(id)
	}
	o.log.Debug().Str("doc", doc).Str("reason", reason).Uint64("cycle", seq).Msg("analysis triggered")
	go func() {
		defer o.wg.Done()
		o.runCycle(ctx, seq, cfg, doc, text)
	}()
}

func (o *Orchestrator) runCycle(ctx context.Context, seq uint64, cfg settings, doc, text string) {
	start := time.Now()
	o.pub.Status(StatusAnalyzing)

	lines := textutil.SplitLines(textutil.NormalizeNewlines(text))
	if len(lines) == 1 && lines[0] == "" {
		o.finishCycle(seq, doc, lines, nil, "empty", start)
		return
	}

	prev, cached := o.cache.Get(doc)
	var (
		regs []region.Region
		old  []diag.Diagnostic
		mode string
	)
	if cached {
		mode = "incremental"
		old = prev.Diagnostics
		var changed *region.Region
		if delta, ok := linediff.Diff(prev.Lines, lines); ok {
			changed = &delta
		}
		regs = cfg.selector.Select(lines, changed, prev.Diagnostics)
		if len(regs) == 0 {
			o.finishCycle(seq, doc, lines, old, "unchanged", start)
			return
		}
	} else {
		mode = "full"
		regs = []region.Region{region.New(0, len(lines)-1)}
	}

	fresh := make([]diag.Diagnostic, 0, 16)
	focused := o.ActiveDocument()
	for i, reg := range regs {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && o.ActiveDocument() != focused {
			o.log.Debug().Str("doc", doc).Msg("analysis abandoned after focus change")
			o.republishOld(seq, doc, prev, cached)
			return
		}
		ds, err := o.analyzeRegion(ctx, seq, cfg, doc, lines, reg)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, worker.ErrAborted) {
				return
			}
			o.log.Error().Err(err).Str("doc", doc).Stringer("region", reg).Msg("analysis failed")
			o.pub.Status(StatusError)
			o.republishOld(seq, doc, prev, cached)
			return
		}
		fresh = append(fresh, ds...)
	}

	merged := Merge(old, fresh, regs)
	if cfg.maxDiags > 0 && len(merged) > cfg.maxDiags {
		bag := diag.NewBag(cfg.maxDiags)
		for _, d := range merged {
			if !bag.Add(d) {
				break
			}
		}
		merged = bag.Items()
	}
	o.finishCycle(seq, doc, lines, merged, mode, start)
}

// analyzeRegion masks the region's slice and runs both rule halves over
// it: the local rules here, the remote ones through the worker. Line
// positions come back region-relative and are shifted to the document.
func (o *Orchestrator) analyzeRegion(ctx context.Context, seq uint64, cfg settings, doc string, lines []string, reg region.Region) ([]diag.Diagnostic, error) {
	state := mask.StateBefore(lines, reg.Start)
	masked := mask.Lines(lines[reg.Start:reg.End+1], state)

	out := rules.Run(cfg.local, masked, reg.Start)
	if !cfg.hasRemote {
		return out, nil
	}

	p, err := o.channel.Issue(worker.LintRequest{
		Text:     textutil.JoinLines(masked),
		FileKind: fileKind(doc),
		FilePath: doc,
		Rules:    cfg.overrides,
	})
	if err != nil {
		return nil, err
	}
	o.register(seq, doc, p.ID)
	msgs, err := p.Await(ctx)
	o.unregister(doc, p.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range worker.DiagnosticsFromMessages(msgs) {
		d.StartLine += reg.Start
		d.EndLine += reg.Start
		out = append(out, d)
	}
	return out, nil
}

// finishCycle swaps the cache entry and publishes, unless a later trigger
// superseded this cycle in the meantime. Partial results never reach
// here; the cycle either completed every region or bailed above.
func (o *Orchestrator) finishCycle(seq uint64, doc string, lines []string, ds []diag.Diagnostic, mode string, start time.Time) {
	o.mu.Lock()
	superseded := seq != o.seq
	if !superseded {
		delete(o.inflight, doc)
	}
	o.mu.Unlock()
	if superseded {
		return
	}
	o.cache.Put(doc, Entry{Lines: lines, Diagnostics: ds})
	o.pub.Publish(doc, ds)
	o.pub.Status(StatusIdle)
	o.log.Info().
		Str("doc", doc).
		Str("mode", mode).
		Int("diagnostics", len(ds)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis published")
}

// republishOld restores the previous diagnostic set after an aborted
// cycle, so the surface never shows a half-updated state.
func (o *Orchestrator) republishOld(seq uint64, doc string, prev Entry, cached bool) {
	o.mu.Lock()
	superseded := seq != o.seq
	o.mu.Unlock()
	if superseded || !cached {
		return
	}
	o.pub.Publish(doc, prev.Diagnostics)
}

// register records the in-flight request id for doc, unless the cycle
// has already been superseded; a successor must not inherit stale ids.
func (o *Orchestrator) register(seq uint64, doc string, id int64) {
	o.mu.Lock()
	if seq == o.seq {
		o.inflight[doc] = id
	}
	o.mu.Unlock()
}

func (o *Orchestrator) unregister(doc string, id int64) {
	o.mu.Lock()
	if o.inflight[doc] == id {
		delete(o.inflight, doc)
	}
	o.mu.Unlock()
}

func fileKind(doc string) string {
	switch strings.ToLower(filepath.Ext(doc)) {
	case ".md", ".markdown":
		return "md"
	default:
		return "txt"
	}
}
