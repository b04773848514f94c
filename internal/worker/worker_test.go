package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-store/internal/queue"
	"github.com/iliyamo/movie-store/internal/repository"
	"github.com/iliyamo/movie-store/internal/service"
)

type sweepOrders struct {
	expired int64
	cutoff  time.Time
}

func (s *sweepOrders) CreateFromCart(context.Context, uint64, string) (*repository.Order, error) {
	panic("not used")
}
func (s *sweepOrders) MarkPaidByRef(context.Context, string) (bool, error) { panic("not used") }
func (s *sweepOrders) GetByPaymentRef(context.Context, string) (*repository.Order, error) {
	panic("not used")
}
func (s *sweepOrders) ExpirePendingBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.expired, nil
}

func TestMaintenanceHandler_ExpireSweep(t *testing.T) {
	orders := &sweepOrders{expired: 2}
	h := MaintenanceHandler(&service.Checkout{Orders: orders}, nil, time.Hour)

	body, _ := json.Marshal(queue.MaintenanceJob{Kind: queue.JobExpireOrders})
	require.NoError(t, h(body))
	assert.WithinDuration(t, time.Now().UTC().Add(-time.Hour), orders.cutoff, 5*time.Second)
}

func TestMaintenanceHandler_UnknownKind(t *testing.T) {
	h := MaintenanceHandler(&service.Checkout{Orders: &sweepOrders{}}, nil, time.Hour)
	body, _ := json.Marshal(queue.MaintenanceJob{Kind: "bogus"})
	assert.Error(t, h(body))
}

func TestMaintenanceHandler_MalformedBody(t *testing.T) {
	h := MaintenanceHandler(&service.Checkout{Orders: &sweepOrders{}}, nil, time.Hour)
	assert.Error(t, h([]byte("not json")))
}

func TestEmailHandler_RejectsBadPayloads(t *testing.T) {
	h := EmailHandler(nil)

	assert.Error(t, h([]byte("not json")))

	body, _ := json.Marshal(queue.EmailJob{Kind: "bogus", To: "a@b.c"})
	assert.Error(t, h(body))
}
