package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ruleweaver/internal/pattern"
	"ruleweaver/internal/shell"
)

// record is the on-disk state tracked per rule firing.
//
// Structure:
//
//	{CacheDir}/
//	  {key[0:2]}/
//	    {key}/
//	      record.json
type record struct {
	RuleID             int      `json:"rule_id"`
	InputFingerprints  []string `json:"input_fingerprints"`
	OutputFingerprints []string `json:"output_fingerprints,omitempty"`
}

// FileBackend implements Backend using the filesystem, sharded the same
// way as a content cache to avoid a single directory holding every rule's
// state.
type FileBackend struct {
	CacheDir string
}

// NewFileBackend returns a FileBackend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{CacheDir: dir}
}

func (b *FileBackend) entryPath(key string) string {
	if len(key) < 2 {
		return filepath.Join(b.CacheDir, key)
	}
	return filepath.Join(b.CacheDir, key[:2], key)
}

func (b *FileBackend) recordPath(key string) string {
	return filepath.Join(b.entryPath(key), "record.json")
}

func (b *FileBackend) readRecord(key string) (*record, error) {
	data, err := os.ReadFile(b.recordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backend record: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing backend record: %w", err)
	}
	return &rec, nil
}

func (b *FileBackend) writeRecord(key string, rec *record) error {
	entryDir := b.entryPath(key)
	if err := os.MkdirAll(entryDir, 0755); err != nil {
		return fmt.Errorf("creating backend entry dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling backend record: %w", err)
	}

	path := b.recordPath(key)
	tmp, err := os.CreateTemp(entryDir, "record.json.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	committed = true
	return nil
}

// IsFresh compares inputFingerprints against the set stored from the last
// call for this firing. A mismatch (or no prior record) persists the new
// set before returning false, so the next identical call reports fresh.
func (b *FileBackend) IsFresh(ruleID int, bindings pattern.Bindings, inputFingerprints []string) (bool, error) {
	key := RuleKey(ruleID, bindings)
	existing, err := b.readRecord(key)
	if err != nil {
		return false, err
	}
	if existing != nil && fingerprintSetEqual(existing.InputFingerprints, inputFingerprints) {
		return true, nil
	}

	rec := &record{RuleID: ruleID, InputFingerprints: inputFingerprints}
	if existing != nil {
		rec.OutputFingerprints = nil // inputs changed, prior outputs are stale
	}
	if err := b.writeRecord(key, rec); err != nil {
		return false, err
	}
	return false, nil
}

// RecordOutput stores the fingerprints ruleID's firing produced.
func (b *FileBackend) RecordOutput(ruleID int, bindings pattern.Bindings, outputFingerprints []string) error {
	key := RuleKey(ruleID, bindings)
	existing, err := b.readRecord(key)
	if err != nil {
		return err
	}
	rec := existing
	if rec == nil {
		rec = &record{RuleID: ruleID}
	}
	rec.OutputFingerprints = outputFingerprints
	return b.writeRecord(key, rec)
}

// Execute runs commandText through the shared shell runner.
func (b *FileBackend) Execute(ctx context.Context, ruleID int, commandText string, bindings pattern.Bindings) (int, error) {
	res, err := shell.Run(ctx, commandText)
	if err != nil {
		return 0, err
	}
	return res.ExitCode, nil
}
