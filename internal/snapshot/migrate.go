package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/dom/crusade-tracker/internal/domain"
)

// migration upgrades a raw campaign document one version step in place.
type migration func(raw map[string]json.RawMessage) error

// migrations is keyed by source version; the chain runs until the
// document reaches CurrentVersion.
var migrations = map[int]migration{
	1: migrateV1,
}

func migrate(version int, raw map[string]json.RawMessage) error {
	for v := version; v < CurrentVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return fmt.Errorf("%w: no migration from snapshot version %d", domain.ErrCorruptSnapshot, v)
		}
		if err := step(raw); err != nil {
			return fmt.Errorf("%w: migrating version %d: %v", domain.ErrCorruptSnapshot, v, err)
		}
	}
	return nil
}

// migrateV1 upgrades the original snapshot layout: the event log was
// stored under "log", and per-campaign settings sat at the top level
// instead of a "config" block.
func migrateV1(raw map[string]json.RawMessage) error {
	if log, ok := raw["log"]; ok {
		raw["eventLog"] = log
		delete(raw, "log")
	}

	if _, ok := raw["config"]; !ok {
		cfg := map[string]json.RawMessage{}
		if v, ok := raw["edition"]; ok {
			cfg["edition"] = v
		}
		if v, ok := raw["supplyLimit"]; ok {
			cfg["supplyLimit"] = v
		}
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		raw["config"] = data
	}
	delete(raw, "edition")
	delete(raw, "supplyLimit")
	return nil
}
