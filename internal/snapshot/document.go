// Package snapshot persists Campaign aggregates as versioned,
// checksummed JSON documents and recovers from corrupt ones by falling
// back through a bounded ring of older snapshots.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dom/crusade-tracker/internal/domain"
)

// CurrentVersion is the snapshot schema version written by this build.
const CurrentVersion = 2

// Envelope wraps the serialized campaign with the metadata needed to
// detect corruption and schema drift before touching the payload.
type Envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	SavedAt  time.Time       `json:"savedAt"`
	Campaign json.RawMessage `json:"campaign"`
}

// Document is a decoded snapshot: the campaign plus any top-level
// campaign fields this build does not know about. Extra fields are
// written back verbatim on save so newer-version data survives a
// round-trip through an older binary.
type Document struct {
	Campaign *domain.Campaign
	Extra    map[string]json.RawMessage
}

// campaignFields are the top-level campaign JSON keys this build owns.
// Anything else found on load is preserved in Document.Extra.
var campaignFields = map[string]bool{
	"id": true, "name": true, "ownerId": true, "config": true,
	"createdAt": true, "updatedAt": true,
	"players": true, "units": true, "battles": true, "eventLog": true,
}

// Encode serializes a document into an envelope. The checksum covers
// the campaign payload only, so envelope metadata can be rewritten
// without invalidating it.
func Encode(doc Document) ([]byte, error) {
	payload, err := encodeCampaign(doc)
	if err != nil {
		return nil, fmt.Errorf("encode campaign: %w", err)
	}
	env := Envelope{
		Version:  CurrentVersion,
		Checksum: checksum(payload),
		SavedAt:  time.Now().UTC(),
		Campaign: payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// Decode parses and verifies an envelope, runs the migration chain if
// the snapshot predates CurrentVersion, and splits unknown campaign
// fields into Document.Extra. Corruption of any kind maps to
// ErrCorruptSnapshot so the coordinator can fall back.
func Decode(data []byte) (Document, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Document{}, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	if env.Version < 1 || env.Version > CurrentVersion {
		return Document{}, fmt.Errorf("%w: unsupported snapshot version %d", domain.ErrCorruptSnapshot, env.Version)
	}
	if got := checksum(env.Campaign); got != env.Checksum {
		return Document{}, fmt.Errorf("%w: checksum mismatch (stored %s, computed %s)",
			domain.ErrCorruptSnapshot, env.Checksum, got)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(env.Campaign, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	if err := migrate(env.Version, raw); err != nil {
		return Document{}, err
	}

	known := make(map[string]json.RawMessage, len(raw))
	extra := map[string]json.RawMessage{}
	for k, v := range raw {
		if campaignFields[k] {
			known[k] = v
		} else {
			extra[k] = v
		}
	}

	merged, err := json.Marshal(known)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	var c domain.Campaign
	if err := json.Unmarshal(merged, &c); err != nil {
		return Document{}, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	if len(extra) == 0 {
		extra = nil
	}
	return Document{Campaign: &c, Extra: extra}, nil
}

func encodeCampaign(doc Document) ([]byte, error) {
	base, err := json.Marshal(doc.Campaign)
	if err != nil {
		return nil, err
	}
	if len(doc.Extra) == 0 {
		return base, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range doc.Extra {
		// Known fields always win over carried-forward extras.
		if !campaignFields[k] {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
