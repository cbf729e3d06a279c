package alerting

import (
	"context"
	"sync"
	"time"

	"oddsguard/internal/rules"
	"oddsguard/internal/storage"
)

// fakeStore is an in-memory storage.AlertStore enforcing the same
// one-unresolved-alert-per-key invariant as the postgres partial index.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	alerts  map[int64]storage.Alert
	failFor map[rules.RuleType]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{alerts: make(map[int64]storage.Alert), failFor: make(map[rules.RuleType]error)}
}

func (f *fakeStore) CreateAlertIfAbsent(_ context.Context, alert storage.Alert) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failFor[alert.Rule]; err != nil {
		return 0, false, err
	}

	for _, existing := range f.alerts {
		if existing.Ticker == alert.Ticker && existing.Rule == alert.Rule &&
			(existing.Status == storage.StatusOpen || existing.Status == storage.StatusAcknowledged) {
			return 0, false, nil
		}
	}

	f.nextID++
	alert.ID = f.nextID
	alert.Status = storage.StatusOpen
	alert.UpdatedAt = time.Now().UTC()
	f.alerts[alert.ID] = alert
	return alert.ID, true, nil
}

func (f *fakeStore) GetAlert(_ context.Context, id int64) (storage.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	alert, ok := f.alerts[id]
	if !ok {
		return storage.Alert{}, storage.ErrAlertNotFound
	}
	return alert, nil
}

func (f *fakeStore) UpdateAlert(_ context.Context, alert storage.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.alerts[alert.ID]; !ok {
		return storage.ErrAlertNotFound
	}
	alert.UpdatedAt = time.Now().UTC()
	f.alerts[alert.ID] = alert
	return nil
}

func (f *fakeStore) ListAlerts(_ context.Context, filter storage.AlertFilter) ([]storage.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []storage.AlertStatus{storage.StatusOpen, storage.StatusAcknowledged}
	}

	matches := make([]storage.Alert, 0, len(f.alerts))
	for _, alert := range f.alerts {
		statusOK := false
		for _, status := range statuses {
			if alert.Status == status {
				statusOK = true
			}
		}
		if !statusOK {
			continue
		}
		if filter.Severity != nil && alert.Severity != *filter.Severity {
			continue
		}
		matches = append(matches, alert)
	}
	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	return matches, nil
}

var _ storage.AlertStore = (*fakeStore)(nil)
