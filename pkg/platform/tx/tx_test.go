package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromWithoutTx(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}

func TestWithTxNilKeepsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
}

func TestWithTxRoundTrip(t *testing.T) {
	sqlTx := &sql.Tx{}
	ctx := WithTx(context.Background(), sqlTx)

	got, ok := From(ctx)
	assert.True(t, ok)
	assert.Same(t, sqlTx, got)
	assert.Equal(t, Querier(sqlTx), Or(ctx, nil))
}
