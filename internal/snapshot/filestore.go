package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/domain"
)

// timeLayout zero-pads to nanoseconds so file names sort
// lexicographically in save order.
const timeLayout = "20060102T150405.000000000"

// FileStore keeps snapshots as one JSON file per save under
// root/<campaignID>/<timestamp>.json. Writes go to a temp file in the
// same directory and are renamed into place, so a crash mid-write never
// leaves a truncated snapshot with a valid name.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) campaignDir(id uuid.UUID) string {
	return filepath.Join(s.root, id.String())
}

func (s *FileStore) Write(ctx context.Context, campaignID uuid.UUID, savedAt time.Time, data []byte) error {
	dir := s.campaignDir(campaignID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create campaign snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}

	final := filepath.Join(dir, savedAt.UTC().Format(timeLayout)+".json")
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("finalize snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, campaignID uuid.UUID) ([]Ref, error) {
	entries, err := os.ReadDir(s.campaignDir(campaignID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	refs := make([]Ref, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ts, err := time.Parse(timeLayout, strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		refs = append(refs, Ref{CampaignID: campaignID, SavedAt: ts, Key: name})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].SavedAt.After(refs[j].SavedAt) })
	return refs, nil
}

func (s *FileStore) Read(ctx context.Context, ref Ref) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.campaignDir(ref.CampaignID), ref.Key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: snapshot %s", domain.ErrNotFound, ref.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

func (s *FileStore) Campaigns(ctx context.Context) ([]uuid.UUID, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := uuid.Parse(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *FileStore) Delete(ctx context.Context, campaignID uuid.UUID) error {
	if err := os.RemoveAll(s.campaignDir(campaignID)); err != nil {
		return fmt.Errorf("delete campaign snapshots: %w", err)
	}
	return nil
}

func (s *FileStore) Prune(ctx context.Context, campaignID uuid.UUID, keep int) error {
	refs, err := s.List(ctx, campaignID)
	if err != nil {
		return err
	}
	for _, ref := range refs[min(keep, len(refs)):] {
		if err := os.Remove(filepath.Join(s.campaignDir(campaignID), ref.Key)); err != nil {
			return fmt.Errorf("prune snapshot %s: %w", ref.Key, err)
		}
	}
	return nil
}
