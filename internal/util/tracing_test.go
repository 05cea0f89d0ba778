package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOrderSpan(t *testing.T) {
	// works against the default no-op tracer, no provider needed
	ctx, span := StartOrderSpan(context.Background(), "OrderService.AcceptOrder", 42)
	require.NotNil(t, span)
	defer span.End()

	assert.NotNil(t, ctx)
}
