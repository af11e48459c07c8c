package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Ledger is the append-only record of published items. It is read in full
// once when opened and rewritten in full (existing + new) on commit; an id,
// once present, is never removed or rewritten. A missing or unreadable file
// behaves as an empty ledger: the only cost is a possible re-publish.
type Ledger struct {
	path    string
	entries []LedgerEntry
	ids     map[string]struct{}
	log     *logrus.Logger
}

// OpenLedger loads the ledger at path. It never fails: read or parse
// errors degrade to an empty ledger with a warning.
func OpenLedger(path string, logger *logrus.Logger) *Ledger {
	l := &Ledger{
		path: path,
		ids:  make(map[string]struct{}),
		log:  logger,
	}

	entries, err := readLedgerFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WithError(err).Warnf("Ledger %s unreadable, starting empty", path)
		}
		return l
	}

	l.entries = entries
	for _, e := range entries {
		l.ids[e.ID] = struct{}{}
	}
	return l
}

// Contains reports whether an item id was published by a prior run.
// The answer reflects the state loaded at open time; the ledger is not
// re-read mid-run.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Len returns the number of entries loaded at open time.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// AppendAll durably records the given entries in one batch: it re-reads
// the file, merges the new entries after the existing ones, and replaces
// the file atomically. Entries whose id is already present are dropped,
// never rewritten.
func (l *Ledger) AppendAll(entries []LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	existing, err := readLedgerFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.log.WithError(err).Warnf("Ledger %s unreadable at commit, rewriting from scratch", l.path)
		}
		existing = nil
	}

	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e.ID] = struct{}{}
	}

	merged := existing
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}

	if err := writeLedgerFile(l.path, merged); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}

	l.entries = merged
	l.ids = seen
	return nil
}

func readLedgerFile(path string) ([]LedgerEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []LedgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing ledger JSON: %w", err)
	}
	return entries, nil
}

// writeLedgerFile writes the whole ledger to a temp file in the target
// directory and renames it into place, so a crash mid-write leaves the
// previous file intact.
func writeLedgerFile(path string, entries []LedgerEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing ledger file: %w", err)
	}
	return nil
}
