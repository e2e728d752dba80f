package review

import (
	"context"

	"github.com/dshills/sqlgate/internal/providers"
)

type generative struct {
	provider providers.Reviewer
}

// NewGenerative adapts a generative provider to the Reviewer interface.
func NewGenerative(p providers.Reviewer) Reviewer {
	return &generative{provider: p}
}

func (g *generative) Name() string { return g.provider.Name() }

func (g *generative) Review(ctx context.Context, req Request) (Result, error) {
	resp, err := g.provider.Review(ctx, providers.ReviewRequest{
		Text:    req.Text,
		Path:    req.Path,
		Dialect: req.Dialect,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Report: resp.Content}, nil
}
