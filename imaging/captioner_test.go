// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package imaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeCaptioner struct {
	caption string
	err     error
}

func (f *fakeCaptioner) Caption(ctx context.Context, image []byte) (string, error) {
	return f.caption, f.err
}

func (f *fakeCaptioner) Name() string { return "fake" }

func TestSafeCaptionerPassesThroughBackend(t *testing.T) {
	t.Parallel()

	sc := NewSafeCaptioner(&fakeCaptioner{caption: "mild cardiomegaly noted"}, zap.NewNop())
	got := sc.Caption(context.Background(), []byte{0x01})
	assert.Equal(t, "Mild cardiomegaly noted.", got)
}

func TestSafeCaptionerDefaultsOnError(t *testing.T) {
	t.Parallel()

	sc := NewSafeCaptioner(&fakeCaptioner{err: errors.New("model not loaded")}, zap.NewNop())
	sc.pick = func(n int) int { return 0 }

	got := sc.Caption(context.Background(), nil)
	assert.Equal(t, defaultFindings[0], got)
}

func TestSafeCaptionerDefaultsOnEmptyCaption(t *testing.T) {
	t.Parallel()

	sc := NewSafeCaptioner(&fakeCaptioner{caption: "   "}, zap.NewNop())
	sc.pick = func(n int) int { return 2 }

	got := sc.Caption(context.Background(), nil)
	assert.Equal(t, defaultFindings[2], got)
}

func TestSafeCaptionerNilBackend(t *testing.T) {
	t.Parallel()

	sc := NewSafeCaptioner(nil, zap.NewNop())
	got := sc.Caption(context.Background(), nil)
	assert.Contains(t, defaultFindings, got)
}

func TestTidyCaption(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Normal study.", tidyCaption("normal study"))
	assert.Equal(t, "Normal study.", tidyCaption("  Normal study.  "))
	assert.Equal(t, "", tidyCaption("   "))
}
