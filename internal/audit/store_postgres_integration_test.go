//go:build integration

package audit

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condo/internal/condominium/models"
	id "condo/pkg/domain"
	"condo/pkg/testutil/containers"
)

func TestPostgresJournal(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	j := NewJournal(NewPostgres(pg.DB), nil)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	first := models.NewEvent(backendA, now, models.QuotaChanged{Amount: id.NewAmount(5)})
	second := models.NewEvent(backendA, now.Add(time.Second), models.TopicChanged{Title: "roof", Status: models.StatusVoting})
	other := models.NewEvent(backendB, now, models.QuotaChanged{Amount: id.NewAmount(9)})
	require.NoError(t, j.Publish(ctx, first, second, other))
	require.NoError(t, j.Publish(ctx, first))

	page, err := j.List(ctx, Query{Backend: backendA, Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, second.ID, page.Items[0].ID)
	assert.Equal(t, second.Payload, page.Items[0].Payload, "payload types survive the round trip")

	page, err = j.List(ctx, Query{Type: models.EventQuotaChanged, Page: 1, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, other.ID, page.Items[0].ID)

	page, err = j.List(ctx, Query{Page: math.MaxInt / 50, Size: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.Total)
}
