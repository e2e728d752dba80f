package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sqlgate/internal/providers"
)

type fakeProvider struct {
	got     providers.ReviewRequest
	content string
	err     error
}

func (f *fakeProvider) Name() string { return "dify" }

func (f *fakeProvider) Review(_ context.Context, req providers.ReviewRequest) (providers.ReviewResponse, error) {
	f.got = req
	return providers.ReviewResponse{Content: f.content}, f.err
}

func TestGenerative(t *testing.T) {
	p := &fakeProvider{content: "## 상태: **반려**"}
	r := NewGenerative(p)
	assert.Equal(t, "dify", r.Name())

	res, err := r.Review(context.Background(), Request{Path: "q.sql", Index: 2, Text: "SELECT 1", Dialect: "mysql"})
	require.NoError(t, err)
	assert.Equal(t, "## 상태: **반려**", res.Report)
	assert.Nil(t, res.Security)
	assert.Equal(t, providers.ReviewRequest{Text: "SELECT 1", Path: "q.sql", Dialect: "mysql"}, p.got)

	p.err = providers.ErrEmptyReport
	_, err = r.Review(context.Background(), Request{Text: "SELECT 1"})
	assert.ErrorIs(t, err, providers.ErrEmptyReport)
}
