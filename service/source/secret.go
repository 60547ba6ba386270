package source

import (
	"context"
	"fmt"

	"github.com/viant/scy"
	"github.com/viant/scy/cred"
	"github.com/viant/sector/runtime/transaction"
	"github.com/viant/toolbox"
)

// Secret loads configured values from a scy secret
type Secret struct {
	URL string
	// Key is the encryption key, e.g. blowfish://default
	Key string
	// Target is the credential type (basic, key, generic...); raw secrets are
	// bound under Name
	Target string
	Name   string

	service *scy.Service
}

// Values returns non empty secret fields
func (s *Secret) Values(ctx context.Context) (map[string]interface{}, error) {
	var target interface{}
	if s.Target != "" && s.Target != "raw" {
		targetType, err := cred.TargetType(s.Target)
		if err != nil {
			return nil, fmt.Errorf("invalid target type '%s': %w", s.Target, err)
		}
		target = targetType
	}
	secret, err := s.service.Load(ctx, scy.NewResource(target, s.URL, s.Key))
	if err != nil {
		return nil, fmt.Errorf("failed to load secret from %s: %w", s.URL, err)
	}
	if secret.IsPlain || secret.Target == nil {
		name := s.Name
		if name == "" {
			name = "secret"
		}
		return map[string]interface{}{name: secret.String()}, nil
	}
	values := map[string]interface{}{}
	if err := toolbox.DefaultConverter.AssignConverted(&values, secret.Target); err != nil {
		return nil, fmt.Errorf("failed to convert secret %s: %w", s.URL, err)
	}
	return toolbox.DeleteEmptyKeys(values), nil
}

// Load pushes secret fields into txn as configured parameters
func (s *Secret) Load(ctx context.Context, txn *transaction.Transaction) ([]string, error) {
	values, err := s.Values(ctx)
	if err != nil {
		return nil, err
	}
	return apply(txn, values, s.URL)
}

// NewSecret creates a secret source
func NewSecret(URL, key string) *Secret {
	return &Secret{URL: URL, Key: key, service: scy.New()}
}
