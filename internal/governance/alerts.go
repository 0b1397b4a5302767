package governance

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// ErrAlertNotFound is returned when acknowledging an unknown alert id.
var ErrAlertNotFound = errors.New("alert not found")

// alertRetention bounds the store; the oldest alerts are evicted first,
// acknowledged or not.
const alertRetention = 1000

// AlertStore holds raised alerts until they are acknowledged. Reads
// return copies.
type AlertStore struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

// NewAlertStore builds an empty store.
func NewAlertStore() *AlertStore {
	return &AlertStore{}
}

// Raise stamps the alert with an id and creation time and stores it.
func (s *AlertStore) Raise(alert domain.Alert) domain.Alert {
	alert.ID = uuid.New().String()
	alert.CreatedAt = time.Now()
	alert.Acknowledged = false
	alert.AcknowledgedAt = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	if len(s.alerts) > alertRetention {
		s.alerts = s.alerts[len(s.alerts)-alertRetention:]
	}
	return alert
}

// Acknowledge marks the alert as handled and returns the updated copy.
func (s *AlertStore) Acknowledge(id string) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if !s.alerts[i].Acknowledged {
			now := time.Now()
			s.alerts[i].Acknowledged = true
			s.alerts[i].AcknowledgedAt = &now
		}
		return s.alerts[i], nil
	}
	return domain.Alert{}, ErrAlertNotFound
}

// Open returns unacknowledged alerts, oldest first.
func (s *AlertStore) Open() []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []domain.Alert
	for _, a := range s.alerts {
		if !a.Acknowledged {
			open = append(open, a)
		}
	}
	return open
}

// OpenCount reports how many alerts are waiting for acknowledgement.
func (s *AlertStore) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.alerts {
		if !a.Acknowledged {
			n++
		}
	}
	return n
}

// Recent returns up to limit of the newest alerts, oldest first.
// limit <= 0 returns everything retained.
func (s *AlertStore) Recent(limit int) []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if limit > 0 && len(s.alerts) > limit {
		start = len(s.alerts) - limit
	}
	out := make([]domain.Alert, len(s.alerts)-start)
	copy(out, s.alerts[start:])
	return out
}
