package events_test

//go:generate mockgen -source=events.go -destination=mocks/mocks.go -package=mocks Publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"condo/internal/condominium/models"
	"condo/internal/events"
	"condo/internal/events/mocks"
	id "condo/pkg/domain"
)

const backend = id.Address("0x00000000000000000000000000000000000000bb")

func TestEncodeDecodeKeepsPayloadType(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	original := models.NewEvent(backend, now, models.FundsTransferred{
		To: "0x00000000000000000000000000000000000000aa", Amount: id.NewAmount(42), Topic: "roof",
	})

	data, err := events.Encode(original)
	require.NoError(t, err)

	decoded, err := events.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, models.EventFundsTransferred, decoded.Type)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
	payload, ok := decoded.Payload.(models.FundsTransferred)
	require.True(t, ok, "payload type %T", decoded.Payload)
	assert.Equal(t, id.NewAmount(42), payload.Amount)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := events.Decode([]byte(`{"type":"Nope","payload":{}}`))
	assert.Error(t, err)
}

func TestBus(t *testing.T) {
	bus := events.NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	e1 := models.NewEvent(backend, time.Now(), models.QuotaChanged{Amount: id.NewAmount(1)})
	e2 := models.NewEvent(backend, time.Now(), models.QuotaChanged{Amount: id.NewAmount(2)})
	require.NoError(t, bus.Publish(context.Background(), e1, e2))

	got := <-ch
	assert.Equal(t, e1.ID, got.ID)
	assert.Equal(t, int64(1), bus.Dropped(), "second event overflows a buffer of one")

	cancel()
	_, open := <-ch
	assert.False(t, open)
	require.NoError(t, bus.Publish(context.Background(), e1), "publishing after cancel is safe")
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockPublisher(ctrl)
	working := mocks.NewMockPublisher(ctrl)

	e := models.NewEvent(backend, time.Now(), models.ManagerChanged{Manager: "0x00000000000000000000000000000000000000aa"})
	boom := errors.New("broker down")
	failing.EXPECT().Publish(gomock.Any(), e).Return(boom)
	working.EXPECT().Publish(gomock.Any(), e).Return(nil)

	err := events.Fanout{failing, nil, working}.Publish(context.Background(), e)
	assert.ErrorIs(t, err, boom)
}
