package backend

import (
	"context"

	"ruleweaver/internal/pattern"
	"ruleweaver/internal/shell"
)

// MemoryBackend implements Backend with in-memory state. Useful for tests
// and one-shot invocations where nothing needs to survive the process.
type MemoryBackend struct {
	records map[string]*record
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]*record)}
}

func (b *MemoryBackend) IsFresh(ruleID int, bindings pattern.Bindings, inputFingerprints []string) (bool, error) {
	key := RuleKey(ruleID, bindings)
	existing, ok := b.records[key]
	if ok && fingerprintSetEqual(existing.InputFingerprints, inputFingerprints) {
		return true, nil
	}
	b.records[key] = &record{RuleID: ruleID, InputFingerprints: append([]string(nil), inputFingerprints...)}
	return false, nil
}

func (b *MemoryBackend) RecordOutput(ruleID int, bindings pattern.Bindings, outputFingerprints []string) error {
	key := RuleKey(ruleID, bindings)
	rec, ok := b.records[key]
	if !ok {
		rec = &record{RuleID: ruleID}
		b.records[key] = rec
	}
	rec.OutputFingerprints = append([]string(nil), outputFingerprints...)
	return nil
}

func (b *MemoryBackend) Execute(ctx context.Context, ruleID int, commandText string, bindings pattern.Bindings) (int, error) {
	res, err := shell.Run(ctx, commandText)
	if err != nil {
		return 0, err
	}
	return res.ExitCode, nil
}
