package driver

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"gard/internal/diag"
	"gard/internal/source"
)

// diskSchema меняется вместе с форматом DiskPayload; старые записи считаются промахом.
const diskSchema uint16 = 2

// DiskCache keeps check results between runs, one msgpack file per content
// hash. Writes go through a temp file and a rename, so concurrent readers
// never see a partial entry.
type DiskCache struct {
	dir string
}

// DiskPayload is what one checked file leaves behind.
type DiskPayload struct {
	Schema      uint16           `msgpack:"v"`
	Path        string           `msgpack:"path"`
	Imports     []string         `msgpack:"imports,omitempty"`
	FmtChecked  bool             `msgpack:"fmt,omitempty"`
	Diagnostics []DiskDiagnostic `msgpack:"diags,omitempty"`
}

// DiskDiagnostic is a diagnostic with its span reduced to offsets; the file
// is implied by the entry.
type DiskDiagnostic struct {
	Severity uint8  `msgpack:"sev"`
	Code     uint16 `msgpack:"code"`
	Message  string `msgpack:"msg"`
	Start    uint32 `msgpack:"start"`
	End      uint32 `msgpack:"end"`
}

// OpenDiskCache opens <user cache dir>/<app>.
func OpenDiskCache(app string) (*DiskCache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt uses dir as the cache root.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// entry раскладывает ключи по 256 подкаталогам.
func (c *DiskCache) entry(key [32]byte) string {
	name := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "check", name[:2], name[2:]+".mp")
}

// Put stores payload under key. A nil cache ignores the call.
func (c *DiskCache) Put(key [32]byte, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	payload.Schema = diskSchema
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return err
	}
	path := c.entry(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Get loads the entry for key into out. Missing entries and entries of
// another schema report false without an error.
func (c *DiskCache) Get(key [32]byte, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	data, err := os.ReadFile(c.entry(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, err
	}
	return out.Schema == diskSchema, nil
}

// Clear removes every stored entry.
func (c *DiskCache) Clear() error {
	if c == nil {
		return nil
	}
	return os.RemoveAll(filepath.Join(c.dir, "check"))
}

func resultToPayload(r *CheckResult) *DiskPayload {
	p := &DiskPayload{Path: r.Path, Imports: r.Imports, FmtChecked: r.FmtChecked}
	for _, d := range r.Bag.Items() {
		p.Diagnostics = append(p.Diagnostics, DiskDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		})
	}
	return p
}

// payloadDiagnostics rebuilds diagnostics against the freshly loaded file.
func payloadDiagnostics(p *DiskPayload, file source.FileID, max int) *diag.Bag {
	bag := diag.NewBag(max)
	for _, d := range p.Diagnostics {
		bag.Add(diag.Diagnostic{
			Severity: diag.Severity(d.Severity),
			Code:     diag.Code(d.Code),
			Message:  d.Message,
			Primary:  source.Span{File: file, Start: d.Start, End: d.End},
		})
	}
	return bag
}
