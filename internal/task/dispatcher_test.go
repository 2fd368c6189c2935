package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fynch/toast-export-api/internal/domain"
)

func newTestDispatcher(t *testing.T, defaultURL string) (*Dispatcher, *Store) {
	t.Helper()
	fix := newExecutorFixture(
		happyFetcher(2),
		happyTransformer(`{"items":[]}`, 2),
		&fakeDeliverer{fn: func(context.Context, string, []byte, func(int)) (int, error) {
			return 1, nil
		}},
	)
	d := NewDispatcher(fix.store, fix.executor, map[int]string{
		1: "guid-1",
		2: "guid-2",
	}, defaultURL, discardLogger())
	d.SetScheduler(func(run func()) { run() })
	return d, fix.store
}

func TestDispatcherSubmitRunsTask(t *testing.T) {
	d, store := newTestDispatcher(t, "https://hooks.example.com/default")

	id, err := d.Submit(Submission{
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-03",
		LocationIndex: 1,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	// Synchronous scheduler: the task is terminal by the time Submit returns.
	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, rec.State)
	assert.Equal(t, "guid-1", rec.Request.RestaurantGUID)
	assert.Equal(t, domain.DeliveryModeSkip, rec.Request.Delivery.Mode)
	// An unspecified kind means the orders report.
	assert.Equal(t, domain.ExportKindOrders, rec.Request.Kind)
}

func TestDispatcherAcceptsTipsKind(t *testing.T) {
	d, store := newTestDispatcher(t, "")

	id, err := d.Submit(Submission{
		Kind:          domain.ExportKindTips,
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-01",
		LocationIndex: 2,
	})
	require.NoError(t, err)

	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportKindTips, rec.Request.Kind)
	assert.Equal(t, "guid-2", rec.Request.RestaurantGUID)
}

func TestDispatcherResolvesDeliveryModes(t *testing.T) {
	tests := []struct {
		name       string
		webhook    string
		defaultURL string
		wantMode   domain.DeliveryMode
		wantURL    string
	}{
		{
			name:       "absent means skip",
			webhook:    "",
			defaultURL: "https://hooks.example.com/default",
			wantMode:   domain.DeliveryModeSkip,
		},
		{
			name:       "false means skip",
			webhook:    `false`,
			defaultURL: "https://hooks.example.com/default",
			wantMode:   domain.DeliveryModeSkip,
		},
		{
			name:       "true resolves the default URL",
			webhook:    `true`,
			defaultURL: "https://hooks.example.com/default",
			wantMode:   domain.DeliveryModeDefault,
			wantURL:    "https://hooks.example.com/default",
		},
		{
			name:       "string is a custom target",
			webhook:    `"https://hooks.example.com/custom"`,
			defaultURL: "https://hooks.example.com/default",
			wantMode:   domain.DeliveryModeCustom,
			wantURL:    "https://hooks.example.com/custom",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, store := newTestDispatcher(t, tc.defaultURL)

			sub := Submission{StartDate: "2024-03-01", EndDate: "2024-03-01", LocationIndex: 1}
			if tc.webhook != "" {
				sub.Webhook = json.RawMessage(tc.webhook)
			}

			id, err := d.Submit(sub)
			require.NoError(t, err)

			rec, err := store.Get(id)
			require.NoError(t, err)
			assert.Equal(t, tc.wantMode, rec.Request.Delivery.Mode)
			assert.Equal(t, tc.wantURL, rec.Request.Delivery.URL)
		})
	}
}

func TestDispatcherRejectsInvalidSubmissions(t *testing.T) {
	tests := []struct {
		name string
		sub  Submission
	}{
		{
			name: "missing dates",
			sub:  Submission{LocationIndex: 1},
		},
		{
			name: "unknown kind",
			sub:  Submission{Kind: "refunds", StartDate: "2024-03-01", EndDate: "2024-03-02", LocationIndex: 1},
		},
		{
			name: "malformed start date",
			sub:  Submission{StartDate: "03/01/2024", EndDate: "2024-03-02", LocationIndex: 1},
		},
		{
			name: "inverted range",
			sub:  Submission{StartDate: "2024-03-05", EndDate: "2024-03-01", LocationIndex: 1},
		},
		{
			name: "unknown location",
			sub:  Submission{StartDate: "2024-03-01", EndDate: "2024-03-02", LocationIndex: 9},
		},
		{
			name: "webhook is not bool or string",
			sub: Submission{
				StartDate:     "2024-03-01",
				EndDate:       "2024-03-02",
				LocationIndex: 1,
				Webhook:       json.RawMessage(`{"url":"x"}`),
			},
		},
		{
			name: "webhook URL without scheme",
			sub: Submission{
				StartDate:     "2024-03-01",
				EndDate:       "2024-03-02",
				LocationIndex: 1,
				Webhook:       json.RawMessage(`"hooks.example.com/path"`),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, store := newTestDispatcher(t, "https://hooks.example.com/default")

			id, err := d.Submit(tc.sub)

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, uuid.Nil, id)

			// Rejected submissions never create a record.
			counts := store.CountByState()
			for state, n := range counts {
				assert.Zero(t, n, "unexpected task in state %s", state)
			}
		})
	}
}

func TestDispatcherRejectsDefaultDeliveryWithoutURL(t *testing.T) {
	d, store := newTestDispatcher(t, "")

	_, err := d.Submit(Submission{
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-01",
		LocationIndex: 1,
		Webhook:       json.RawMessage(`true`),
	})

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "webhook", validationErr.Field)
	assert.Zero(t, store.CountByState()[StateQueued])
}

func TestDispatcherIssuesDistinctIDs(t *testing.T) {
	d, _ := newTestDispatcher(t, "")

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 20; i++ {
		id, err := d.Submit(Submission{
			StartDate:     "2024-03-01",
			EndDate:       "2024-03-01",
			LocationIndex: 1,
		})
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
