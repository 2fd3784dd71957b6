package lint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"galley/internal/diag"
)

// Bump when the payload format changes; stale entries then read as misses.
const diskCacheSchemaVersion uint16 = 1

// Digest identifies a document's content, sha256 over its bytes.
type Digest [sha256.Size]byte

// HashContent computes the digest the disk cache keys results by.
func HashContent(text []byte) Digest {
	return sha256.Sum256(text)
}

// DiskCache persists per-file diagnostic sets between one-shot runs, so
// an unchanged file skips analysis entirely. Entries live under the XDG
// cache dir, one msgpack file per document path. Thread-safe; a nil
// *DiskCache is a valid no-op cache.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type diskPayload struct {
	Schema      uint16
	ContentHash Digest
	Diagnostics []storedDiag
}

// storedDiag narrows positions to uint32; documents longer than that do
// not round-trip and simply miss.
type storedDiag struct {
	Rule      string
	Severity  uint8
	Message   string
	StartLine uint32
	StartCol  uint32
	EndLine   uint32
	EndCol    uint32
}

// OpenDiskCache initializes a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt uses an explicit directory instead of the XDG default.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(docPath string) string {
	key := sha256.Sum256([]byte(docPath))
	return filepath.Join(c.dir, "docs", hex.EncodeToString(key[:])+".mp")
}

// Put stores the diagnostic set for a document at its current content
// hash. The write is atomic: temp file in the same directory, then
// rename.
func (c *DiskCache) Put(docPath string, hash Digest, ds []diag.Diagnostic) error {
	if c == nil {
		return nil
	}
	payload := diskPayload{
		Schema:      diskCacheSchemaVersion,
		ContentHash: hash,
		Diagnostics: make([]storedDiag, 0, len(ds)),
	}
	for _, d := range ds {
		sd, err := storeDiag(d)
		if err != nil {
			return err
		}
		payload.Diagnostics = append(payload.Diagnostics, sd)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(docPath)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get returns the cached diagnostics for a document, provided the stored
// content hash still matches. Mismatched schema or hash is a miss, not
// an error.
func (c *DiskCache) Get(docPath string, hash Digest) ([]diag.Diagnostic, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(docPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	var payload diskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if payload.Schema != diskCacheSchemaVersion || payload.ContentHash != hash {
		return nil, false, nil
	}
	ds := make([]diag.Diagnostic, 0, len(payload.Diagnostics))
	for _, sd := range payload.Diagnostics {
		ds = append(ds, loadDiag(sd))
	}
	return ds, true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

func storeDiag(d diag.Diagnostic) (storedDiag, error) {
	startLine, err := safecast.Conv[uint32](d.StartLine)
	if err != nil {
		return storedDiag{}, fmt.Errorf("cache position: %w", err)
	}
	startCol, err := safecast.Conv[uint32](d.StartCol)
	if err != nil {
		return storedDiag{}, fmt.Errorf("cache position: %w", err)
	}
	endLine, err := safecast.Conv[uint32](d.EndLine)
	if err != nil {
		return storedDiag{}, fmt.Errorf("cache position: %w", err)
	}
	endCol, err := safecast.Conv[uint32](d.EndCol)
	if err != nil {
		return storedDiag{}, fmt.Errorf("cache position: %w", err)
	}
	return storedDiag{
		Rule:      d.Rule,
		Severity:  uint8(d.Severity),
		Message:   d.Message,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   endLine,
		EndCol:    endCol,
	}, nil
}

func loadDiag(sd storedDiag) diag.Diagnostic {
	return diag.Diagnostic{
		Rule:      sd.Rule,
		Severity:  diag.Severity(sd.Severity),
		Message:   sd.Message,
		StartLine: int(sd.StartLine),
		StartCol:  int(sd.StartCol),
		EndLine:   int(sd.EndLine),
		EndCol:    int(sd.EndCol),
	}
}
