// Package lsp is galley's editor surface: a subset of the Language
// Server Protocol over stdio. The server keeps the text model in sync
// with the editor and forwards triggers to the lint orchestrator;
// analysis itself never runs on the protocol goroutine.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"galley/internal/config"
	"galley/internal/diag"
	"galley/internal/lint"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// LintCommand is the workspace/executeCommand id for an explicit run.
const LintCommand = "galley.lint"

// ServerOptions configure the galley language server.
type ServerOptions struct {
	Config config.Config
	Logger zerolog.Logger
	// NewOrchestrator overrides how the engine is built; the server
	// passes itself as the publisher. Tests substitute in-process
	// engines here.
	NewOrchestrator func(pub lint.Publisher) *lint.Orchestrator
}

// Server handles stdio JSON-RPC for galley.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	log    zerolog.Logger
	orch   *lint.Orchestrator

	mu                sync.Mutex
	cfg               config.Config
	workspaceRoot     string
	docs              map[string]string
	versions          map[string]int
	saveReasons       map[string]int
	published         map[string]struct{}
	lastTouched       string
	shutdownRequested bool
}

// NewServer constructs a server speaking on in/out.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	s := &Server{
		in:          bufio.NewReader(in),
		out:         bufio.NewWriter(out),
		log:         opts.Logger,
		cfg:         opts.Config,
		docs:        make(map[string]string),
		versions:    make(map[string]int),
		saveReasons: make(map[string]int),
		published:   make(map[string]struct{}),
	}
	build := opts.NewOrchestrator
	if build == nil {
		build = func(pub lint.Publisher) *lint.Orchestrator {
			return lint.New(lint.Options{
				WorkerCommand:  workerArgv(opts.Config),
				ContextLines:   opts.Config.Lint.ContextLines,
				MaxDiagnostics: opts.Config.Lint.MaxDiagnostics,
				LintOnAutoSave: opts.Config.Lint.LintOnAutoSave,
				Rules:          opts.Config.Lint.Rules,
				Publisher:      pub,
				Logger:         opts.Logger,
			})
		}
	}
	s.orch = build(s)
	return s
}

// workerArgv resolves the analysis worker command: the configured
// override, or this same executable running its worker subcommand. An
// empty result selects the in-process worker.
func workerArgv(cfg config.Config) []string {
	if len(cfg.Worker.Command) > 0 {
		return cfg.Worker.Command
	}
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	return []string{exe, "worker"}
}

// Run serves requests until exit or read failure. The orchestrator and
// its worker are shut down before returning.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if err := s.orch.Close(); err != nil {
			s.log.Warn().Err(err).Msg("orchestrator close")
		}
	}()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.log.Warn().Err(err).Msg("unparseable message")
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		s.mu.Lock()
		requested := s.shutdownRequested
		s.mu.Unlock()
		if requested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/willSave":
		return s.handleWillSave(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "galley/activeDocument":
		return s.handleActiveDocument(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, -32601, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, -32602, "invalid params")
		}
	}
	root := ""
	if params.RootURI != "" {
		root = uriToPath(params.RootURI)
	}
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				WillSave:  true,
				Save: saveOptions{
					IncludeText: true,
				},
			},
			ExecuteCommandProvider: executeCommandOptions{
				Commands: []string{LintCommand},
			},
		},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	uris := make([]string, 0, len(s.published))
	for uri := range s.published {
		uris = append(uris, uri)
	}
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	for _, uri := range uris {
		if err := s.sendPublish(uri, nil); err != nil {
			s.log.Warn().Err(err).Msg("clear diagnostics")
		}
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var settings struct {
		Galley config.Settings `json:"galley"`
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.log.Warn().Err(err).Msg("unparseable settings")
		return
	}
	s.mu.Lock()
	s.cfg.Apply(settings.Galley)
	cfg := s.cfg
	s.mu.Unlock()
	s.orch.Reconfigure(cfg.Lint.ContextLines, cfg.Lint.MaxDiagnostics, cfg.Lint.LintOnAutoSave, cfg.Lint.Rules)
	s.log.Debug().Msg("settings applied")
}

func (s *Server) handleExecuteCommand(msg *rpcMessage) error {
	var params executeCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	if params.Command != LintCommand {
		return s.sendError(msg.ID, -32601, "unknown command")
	}
	uri := ""
	if len(params.Arguments) > 0 {
		_ = json.Unmarshal(params.Arguments[0], &uri)
		uri = canonicalURI(uri)
	}
	s.mu.Lock()
	if uri == "" {
		uri = s.lastTouched
	}
	text, open := s.docs[uri]
	enabled := s.cfg.Lint.Enabled
	s.mu.Unlock()
	if !open {
		return s.sendError(msg.ID, -32602, "document not open")
	}
	if enabled {
		s.orch.AnalyzeNow(uri, text)
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.docs[uri] = params.TextDocument.Text
	s.versions[uri] = params.TextDocument.Version
	s.lastTouched = uri
	s.mu.Unlock()
	s.orch.SetActiveDocument(uri)
	return nil
}

// handleDidChange only updates the text model. Typing never triggers
// analysis; saves and explicit commands do.
func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	text := s.docs[uri]
	s.docs[uri] = applyChanges(text, params.ContentChanges)
	s.versions[uri] = params.TextDocument.Version
	s.lastTouched = uri
	s.mu.Unlock()
	return nil
}

// handleWillSave records the save reason; the didSave that follows uses
// it to tell a manual save from the editor's auto-save.
func (s *Server) handleWillSave(msg *rpcMessage) error {
	var params willSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.saveReasons[uri] = params.Reason
	s.mu.Unlock()
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	if params.Text != nil {
		s.docs[uri] = *params.Text
	}
	text := s.docs[uri]
	reason, sawReason := s.saveReasons[uri]
	delete(s.saveReasons, uri)
	s.lastTouched = uri
	enabled := s.cfg.Lint.Enabled
	s.mu.Unlock()

	if !enabled {
		return nil
	}
	autoSave := sawReason && (reason == saveReasonAfterDelay || reason == saveReasonFocusOut)
	s.orch.DocumentSaved(uri, text, autoSave)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.docs, uri)
	delete(s.versions, uri)
	delete(s.saveReasons, uri)
	if s.lastTouched == uri {
		s.lastTouched = ""
	}
	s.mu.Unlock()
	s.orch.DocumentClosed(uri)
	return nil
}

func (s *Server) handleActiveDocument(msg *rpcMessage) error {
	var params activeDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.URI)
	s.mu.Lock()
	if _, open := s.docs[uri]; open {
		s.lastTouched = uri
	}
	s.mu.Unlock()
	s.orch.SetActiveDocument(uri)
	return nil
}

// Publish implements lint.Publisher on the protocol side.
func (s *Server) Publish(doc string, ds []diag.Diagnostic) {
	list := make([]lspDiagnostic, 0, len(ds))
	for _, d := range ds {
		list = append(list, lspDiagnostic{
			Range: lspRange{
				Start: position{Line: d.StartLine, Character: d.StartCol},
				End:   position{Line: d.EndLine, Character: d.EndCol},
			},
			Severity: d.Severity.LSPCode(),
			Code:     d.Rule,
			Source:   "galley",
			Message:  d.Message,
		})
	}
	s.mu.Lock()
	s.published[doc] = struct{}{}
	s.mu.Unlock()
	if err := s.sendPublish(doc, list); err != nil {
		s.log.Warn().Err(err).Str("doc", doc).Msg("publish diagnostics")
	}
}

// Clear implements lint.Publisher.
func (s *Server) Clear(doc string) {
	s.mu.Lock()
	_, had := s.published[doc]
	delete(s.published, doc)
	s.mu.Unlock()
	if !had {
		return
	}
	if err := s.sendPublish(doc, nil); err != nil {
		s.log.Warn().Err(err).Str("doc", doc).Msg("clear diagnostics")
	}
}

// Status implements lint.Publisher, driving the editor's indicator
// through the galley/status notification.
func (s *Server) Status(st lint.Status) {
	state := "ok"
	switch st {
	case lint.StatusAnalyzing:
		state = "running"
	case lint.StatusError:
		state = "error"
	}
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  "galley/status",
		"params":  statusParams{State: state},
	}
	if err := s.send(msg); err != nil {
		s.log.Warn().Err(err).Msg("status notification")
	}
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/publishDiagnostics",
		"params": publishDiagnosticsParams{
			URI:         uri,
			Diagnostics: list,
		},
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
