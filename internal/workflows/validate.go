package workflows

import (
	"context"

	"github.com/PolarWolf314/dotvault/internal/manifest"
)

// ValidateResult contains a manifest that passed validation.
type ValidateResult struct {
	Manifest *manifest.Manifest
	Location string
}

// Validate loads the configuration and manifest and reports warnings.
// Nothing on disk or in the backend is touched.
//
// Returns a *errors.ValidationError (ErrValidation) listing every violation.
func Validate(ctx context.Context, env *Env) (*ValidateResult, error) {
	cfg, err := env.LoadConfig()
	if err != nil {
		return nil, err
	}
	m, err := env.loadManifest(cfg)
	if err != nil {
		return nil, err
	}
	return &ValidateResult{Manifest: m, Location: location(cfg, m).String()}, nil
}
