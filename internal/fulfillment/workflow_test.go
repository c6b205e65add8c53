package fulfillment_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umistore/storefront/internal/auth"
	"github.com/umistore/storefront/internal/domain"
	"github.com/umistore/storefront/internal/fulfillment"
)

type fakeStore struct {
	orders map[string]*domain.Order
	// casFails simulates a concurrent status move between read and write.
	casFails bool
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (f *fakeStore) UpdateStatusFrom(_ context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	if f.casFails {
		return false, nil
	}
	o, ok := f.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id string, to domain.OrderStatus) (bool, error) {
	o, ok := f.orders[id]
	if !ok {
		return false, nil
	}
	o.Status = to
	return true, nil
}

type fakeNotifier struct {
	notes []domain.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n domain.Notification) {
	f.notes = append(f.notes, n)
}

type staticGate struct {
	identity auth.Identity
}

func (g staticGate) CurrentIdentity(context.Context) auth.Identity {
	return g.identity
}

var staff = auth.Identity{StaffID: "staff-1"}

func newWorkflow(status domain.OrderStatus, identity auth.Identity) (*fulfillment.Workflow, *fakeStore, *fakeNotifier) {
	store := &fakeStore{orders: map[string]*domain.Order{
		"o-1": {ID: "o-1", OrderNumber: "UMI-20260829-AAAA0001", CustomerID: "cust-1", Status: status},
	}}
	notifier := &fakeNotifier{}
	wf := fulfillment.NewWorkflow(store, staticGate{identity}, notifier,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return wf, store, notifier
}

func TestWorkflow_Transition(t *testing.T) {
	forward := []struct {
		from, to domain.OrderStatus
	}{
		{domain.OrderStatusPending, domain.OrderStatusProcessing},
		{domain.OrderStatusProcessing, domain.OrderStatusShipped},
		{domain.OrderStatusShipped, domain.OrderStatusDelivered},
	}

	for _, step := range forward {
		t.Run(string(step.from)+" to "+string(step.to), func(t *testing.T) {
			wf, store, notifier := newWorkflow(step.from, staff)

			order, err := wf.Transition(t.Context(), "o-1", step.to)
			require.NoError(t, err)
			assert.Equal(t, step.to, order.Status)
			assert.Equal(t, step.to, store.orders["o-1"].Status)
			require.Len(t, notifier.notes, 1)
			assert.Equal(t, domain.NotifyOrderStatusChanged, notifier.notes[0].Kind)
		})
	}

	rejected := []struct {
		name     string
		from, to domain.OrderStatus
	}{
		{"backward move", domain.OrderStatusDelivered, domain.OrderStatusPending},
		{"skip ahead", domain.OrderStatusPending, domain.OrderStatusShipped},
		{"out of terminal state", domain.OrderStatusDelivered, domain.OrderStatusProcessing},
		{"no-op same status", domain.OrderStatusProcessing, domain.OrderStatusProcessing},
		{"unknown status", domain.OrderStatusPending, "archived"},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			wf, store, _ := newWorkflow(tt.from, staff)

			_, err := wf.Transition(t.Context(), "o-1", tt.to)

			var invalid domain.InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.from, invalid.From)
			assert.Equal(t, tt.to, invalid.To)
			assert.Equal(t, tt.from, store.orders["o-1"].Status, "status must be unchanged")
		})
	}

	t.Run("non-staff actor is unauthorized", func(t *testing.T) {
		wf, store, _ := newWorkflow(domain.OrderStatusPending, auth.Identity{CustomerID: "cust-1"})

		_, err := wf.Transition(t.Context(), "o-1", domain.OrderStatusProcessing)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, domain.OrderStatusPending, store.orders["o-1"].Status)
	})

	t.Run("anonymous actor is rejected", func(t *testing.T) {
		wf, _, _ := newWorkflow(domain.OrderStatusPending, auth.Identity{})

		_, err := wf.Transition(t.Context(), "o-1", domain.OrderStatusProcessing)
		require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	})

	t.Run("unknown order", func(t *testing.T) {
		wf, _, _ := newWorkflow(domain.OrderStatusPending, staff)

		_, err := wf.Transition(t.Context(), "missing", domain.OrderStatusProcessing)
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("concurrent move between read and write", func(t *testing.T) {
		wf, store, _ := newWorkflow(domain.OrderStatusPending, staff)
		store.casFails = true

		_, err := wf.Transition(t.Context(), "o-1", domain.OrderStatusProcessing)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestWorkflow_Override(t *testing.T) {
	t.Run("staff may move backward through the override path", func(t *testing.T) {
		wf, store, notifier := newWorkflow(domain.OrderStatusDelivered, staff)

		order, err := wf.Override(t.Context(), "o-1", domain.OrderStatusProcessing)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusProcessing, order.Status)
		assert.Equal(t, domain.OrderStatusProcessing, store.orders["o-1"].Status)
		assert.Len(t, notifier.notes, 1)
	})

	t.Run("override still rejects unknown statuses", func(t *testing.T) {
		wf, _, _ := newWorkflow(domain.OrderStatusPending, staff)

		_, err := wf.Override(t.Context(), "o-1", "archived")
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("override is staff only", func(t *testing.T) {
		wf, _, _ := newWorkflow(domain.OrderStatusPending, auth.Identity{CustomerID: "cust-1"})

		_, err := wf.Override(t.Context(), "o-1", domain.OrderStatusDelivered)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
