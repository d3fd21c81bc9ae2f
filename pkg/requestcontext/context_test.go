package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessorsDefaultToZero(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ClientID(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Nil(t, Scopes(ctx))
	assert.False(t, HasScope(ctx, "READ_PEN_MATCH"))
}

func TestAccessorsRoundTrip(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ctx := WithClientID(context.Background(), "school-district-41")
	ctx = WithScopes(ctx, []string{"READ_PEN_MATCH", "WRITE_PEN"})
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithClientIP(ctx, "10.0.0.1")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, "school-district-41", ClientID(ctx))
	assert.True(t, HasScope(ctx, "READ_PEN_MATCH"))
	assert.False(t, HasScope(ctx, "ADMIN"))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
