package lsp

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"galley/internal/config"
	"galley/internal/lint"
)

// testClient drives a server over in-memory pipes. The server runs on
// its own goroutine with an in-process analysis worker, so round trips
// are real but hermetic.
type testClient struct {
	t      *testing.T
	w      io.Writer
	r      *bufio.Reader
	nextID int
	done   chan error
}

func startServer(t *testing.T, cfg config.Config) *testClient {
	t.Helper()
	clientOut, serverIn := io.Pipe()
	serverOut, clientIn := io.Pipe()
	srv := NewServer(clientOut, clientIn, ServerOptions{
		Config: cfg,
		Logger: zerolog.Nop(),
		NewOrchestrator: func(pub lint.Publisher) *lint.Orchestrator {
			return lint.New(lint.Options{
				ContextLines:   cfg.Lint.ContextLines,
				MaxDiagnostics: cfg.Lint.MaxDiagnostics,
				LintOnAutoSave: cfg.Lint.LintOnAutoSave,
				Rules:          cfg.Lint.Rules,
				Publisher:      pub,
				Logger:         zerolog.Nop(),
			})
		},
	})
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(t.Context())
	}()
	t.Cleanup(func() {
		_ = serverIn.Close()
		_ = serverOut.Close()
	})
	return &testClient{t: t, w: serverIn, r: bufio.NewReader(serverOut), done: done}
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		c.t.Fatal(err)
	}
	payload, err := json.Marshal(rpcMessage{JSONRPC: "2.0", Method: method, Params: raw})
	if err != nil {
		c.t.Fatal(err)
	}
	if err := writeMessage(c.w, payload); err != nil {
		c.t.Fatalf("write %s: %v", method, err)
	}
}

func (c *testClient) request(method string, params any) json.RawMessage {
	c.t.Helper()
	c.nextID++
	id, _ := json.Marshal(c.nextID)
	raw, err := json.Marshal(params)
	if err != nil {
		c.t.Fatal(err)
	}
	payload, err := json.Marshal(rpcMessage{JSONRPC: "2.0", ID: id, Method: method, Params: raw})
	if err != nil {
		c.t.Fatal(err)
	}
	if err := writeMessage(c.w, payload); err != nil {
		c.t.Fatalf("write %s: %v", method, err)
	}
	return id
}

// next reads one message from the server.
func (c *testClient) next() map[string]json.RawMessage {
	c.t.Helper()
	payload, err := readMessage(c.r)
	if err != nil {
		c.t.Fatalf("read server message: %v", err)
	}
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.t.Fatalf("parse server message: %v", err)
	}
	return msg
}

// waitNotification skips unrelated messages until method arrives and
// returns its params.
func (c *testClient) waitNotification(method string) json.RawMessage {
	c.t.Helper()
	for {
		msg := c.next()
		var got string
		_ = json.Unmarshal(msg["method"], &got)
		if got == method {
			return msg["params"]
		}
	}
}

// waitResponse skips notifications until the response for id arrives.
func (c *testClient) waitResponse(id json.RawMessage) json.RawMessage {
	c.t.Helper()
	for {
		msg := c.next()
		if raw, ok := msg["id"]; ok && string(raw) == string(id) {
			if errRaw, bad := msg["error"]; bad {
				c.t.Fatalf("server error response: %s", errRaw)
			}
			return msg["result"]
		}
	}
}

func (c *testClient) waitPublish(uri string) []lspDiagnostic {
	c.t.Helper()
	for {
		raw := c.waitNotification("textDocument/publishDiagnostics")
		var params publishDiagnosticsParams
		if err := json.Unmarshal(raw, &params); err != nil {
			c.t.Fatal(err)
		}
		if params.URI == uri {
			return params.Diagnostics
		}
	}
}

const testURI = "file:///drafts/ch01.md"

func openDoc(c *testClient, text string) {
	c.notify("textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: testURI, Version: 1, Text: text},
	})
}

func saveDoc(c *testClient, reason int, text string) {
	if reason != 0 {
		c.notify("textDocument/willSave", willSaveTextDocumentParams{
			TextDocument: textDocumentIdentifier{URI: testURI},
			Reason:       reason,
		})
	}
	c.notify("textDocument/didSave", didSaveTextDocumentParams{
		TextDocument: textDocumentIdentifier{URI: testURI},
		Text:         &text,
	})
}

func TestInitializeShutdownExit(t *testing.T) {
	c := startServer(t, config.Default())
	id := c.request("initialize", initializeParams{RootURI: "file:///drafts"})
	var result initializeResult
	if err := json.Unmarshal(c.waitResponse(id), &result); err != nil {
		t.Fatal(err)
	}
	sync := result.Capabilities.TextDocumentSync
	if !sync.OpenClose || sync.Change != 2 || !sync.WillSave || !sync.Save.IncludeText {
		t.Errorf("capabilities = %+v", sync)
	}

	id = c.request("shutdown", nil)
	c.waitResponse(id)
	c.notify("exit", nil)

	select {
	case err := <-c.done:
		if !errors.Is(err, ErrExit) {
			t.Errorf("Run() = %v, want ErrExit", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestManualSavePublishesDiagnostics(t *testing.T) {
	c := startServer(t, config.Default())
	openDoc(c, "# heading\n\nfoo　bar!baz\n")
	saveDoc(c, saveReasonManual, "# heading\n\nfoo　bar!baz\n")

	diags := c.waitPublish(testURI)
	found := false
	for _, d := range diags {
		if d.Code == "punct-spacing" && d.Range.Start.Line == 2 {
			found = true
			if d.Source != "galley" || d.Severity != 1 {
				t.Errorf("diagnostic = %+v, want source galley severity 1", d)
			}
		}
	}
	if !found {
		t.Fatalf("published %+v, want punct-spacing on line 2", diags)
	}
}

func TestAutoSaveSuppressedByConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Lint.LintOnAutoSave = false
	c := startServer(t, cfg)
	openDoc(c, "foo!bar\n")

	// An after-delay save must not analyze; the explicit command right
	// after it produces the first (and only) publication.
	saveDoc(c, saveReasonAfterDelay, "foo!bar\n")
	c.request("workspace/executeCommand", executeCommandParams{Command: LintCommand})

	diags := c.waitPublish(testURI)
	if len(diags) == 0 || diags[0].Code != "punct-spacing" {
		t.Errorf("command publication = %+v", diags)
	}
}

func TestDidChangeOnlyUpdatesModel(t *testing.T) {
	c := startServer(t, config.Default())
	openDoc(c, "foo!bar\n")
	// The change fixes the issue; didChange itself must not analyze.
	c.notify("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: testURI, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{Text: "foo! bar\n"}},
	})
	// A didSave without includeText analyzes the stored model.
	c.notify("textDocument/didSave", didSaveTextDocumentParams{
		TextDocument: textDocumentIdentifier{URI: testURI},
	})
	diags := c.waitPublish(testURI)
	if len(diags) != 0 {
		t.Errorf("published %+v, want the fixed text to be analyzed", diags)
	}
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	c := startServer(t, config.Default())
	openDoc(c, "foo!bar\n")
	saveDoc(c, saveReasonManual, "foo!bar\n")
	if diags := c.waitPublish(testURI); len(diags) == 0 {
		t.Fatal("expected diagnostics before close")
	}

	c.notify("textDocument/didClose", didCloseTextDocumentParams{
		TextDocument: textDocumentIdentifier{URI: testURI},
	})
	if diags := c.waitPublish(testURI); len(diags) != 0 {
		t.Errorf("close published %+v, want an empty set", diags)
	}
}

func TestConfigurationOverlayDisablesRule(t *testing.T) {
	c := startServer(t, config.Default())
	c.notify("workspace/didChangeConfiguration", didChangeConfigurationParams{
		Settings: json.RawMessage(`{"galley":{"rules":{"punct-spacing":false}}}`),
	})
	openDoc(c, "foo!bar\n")
	saveDoc(c, saveReasonManual, "foo!bar\n")
	diags := c.waitPublish(testURI)
	for _, d := range diags {
		if d.Code == "punct-spacing" {
			t.Errorf("disabled rule still published: %+v", d)
		}
	}
}

func TestStatusNotifications(t *testing.T) {
	c := startServer(t, config.Default())
	openDoc(c, "clean text\n")
	saveDoc(c, saveReasonManual, "clean text\n")

	raw := c.waitNotification("galley/status")
	var st statusParams
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatal(err)
	}
	if st.State != "running" && st.State != "ok" {
		t.Errorf("status = %q, want running or ok", st.State)
	}
}
