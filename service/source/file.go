package source

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/viant/afs"
	bstate "github.com/viant/bindly/state"
	"github.com/viant/sector/internal/env"
	"github.com/viant/sector/model/state"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/runtime/transaction"
	"gopkg.in/yaml.v3"
)

// ReloadBreakPoint is honored between reloads
const ReloadBreakPoint = "reload"

// File loads configured values from a YAML map document; ${env.KEY}
// expressions are expanded before decoding.
type File struct {
	URL string
	fs  afs.Service
}

// Read returns decoded values and the raw document
func (f *File) Read(ctx context.Context) (map[string]interface{}, []byte, error) {
	data, err := f.fs.DownloadWithURL(ctx, f.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download %s: %w", f.URL, err)
	}
	values := map[string]interface{}{}
	if err := yaml.Unmarshal(env.ExpandBytes(data), &values); err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", f.URL, err)
	}
	return values, data, nil
}

// Load pushes every document key into txn as a configured parameter
func (f *File) Load(ctx context.Context, txn *transaction.Transaction) ([]string, error) {
	values, _, err := f.Read(ctx)
	if err != nil {
		return nil, err
	}
	return apply(txn, values, f.URL)
}

// Watch creates a terminate-capable processor that reloads the document every
// interval; values are pushed only when the document content changes.
func (f *File) Watch(txn *transaction.Transaction, interval time.Duration, opts ...processor.Option) *processor.Processor {
	var last []byte
	task := processor.TaskFunc(func(ctx context.Context, ex *processor.Execution) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			values, data, err := f.Read(ctx)
			switch {
			case err != nil:
				ex.Logger().Warn("failed to reload configuration", "url", f.URL, "error", err)
			case !bytes.Equal(data, last):
				names, err := apply(txn, values, f.URL)
				if err != nil {
					return err
				}
				last = data
				ex.Logger().Debug("configuration reloaded", "url", f.URL, "names", names)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ex.Terminating():
				ex.BreakPoint(ReloadBreakPoint)
				return nil
			case <-ticker.C:
			}
		}
	})
	opts = append([]processor.Option{processor.WithKind("watch"), processor.WithBreakPoints(ReloadBreakPoint)}, opts...)
	return processor.New(task, opts...)
}

func apply(txn *transaction.Transaction, values map[string]interface{}, origin string) ([]string, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		param := &state.Parameter{
			Name:     name,
			Value:    values[name],
			Class:    state.ClassConfigured,
			Location: &bstate.Location{Kind: "configured", In: origin},
		}
		if err := txn.SetConfiguredParameter(param); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// NewFile creates a file source
func NewFile(fs afs.Service, URL string) *File {
	if fs == nil {
		fs = afs.New()
	}
	return &File{URL: URL, fs: fs}
}
