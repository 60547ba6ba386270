package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Store persists snapshots as JSON documents under a base URL
type Store struct {
	fs      afs.Service
	baseURL string
}

// Save writes the snapshot as <name>.json
func (s *Store) Save(ctx context.Context, name string, node *Node) (string, error) {
	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return "", err
	}
	URL := s.location(name)
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(string(data))); err != nil {
		return "", fmt.Errorf("failed to save snapshot %s: %w", URL, err)
	}
	return URL, nil
}

// Load reads a snapshot saved under name
func (s *Store) Load(ctx context.Context, name string) (*Node, error) {
	URL := s.location(name)
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", URL, err)
	}
	ret := &Node{}
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", URL, err)
	}
	return ret, nil
}

func (s *Store) location(name string) string {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return url.Join(s.baseURL, name)
}

// NewStore creates a snapshot store
func NewStore(fs afs.Service, baseURL string) *Store {
	if fs == nil {
		fs = afs.New()
	}
	return &Store{fs: fs, baseURL: baseURL}
}
