package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/authgate/internal/server/models"
)

type orderKey struct {
	userID int64
	at     int64
	app    string
}

type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	seen   map[orderKey]struct{}
	orders []models.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{seen: make(map[orderKey]struct{})}
}

func (r *MemoryRepository) Insert(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := orderKey{userID: o.UserID, at: o.InsertDate.UnixNano(), app: o.ExternalAppName}
	if _, ok := r.seen[k]; ok {
		return nil
	}
	r.seen[k] = struct{}{}
	r.nextID++
	o.ID = r.nextID
	r.orders = append(r.orders, *o)
	return nil
}

func (r *MemoryRepository) Summary(_ context.Context, userID int64, from, to time.Time) (*models.OrderSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &models.OrderSummary{From: from, To: to, ByApp: []models.AppTotal{}, ByHour: []models.HourTotal{}}
	apps := map[string]*models.AppTotal{}
	hours := map[int]int64{}

	for _, o := range r.orders {
		if o.UserID != userID || o.InsertDate.Before(from) || !o.InsertDate.Before(to) {
			continue
		}
		s.OrderCount++
		s.Revenue += o.OrderTotal

		a, ok := apps[o.ExternalAppName]
		if !ok {
			a = &models.AppTotal{App: o.ExternalAppName}
			apps[o.ExternalAppName] = a
		}
		a.Orders++
		a.Revenue += o.OrderTotal

		hours[o.InsertDate.UTC().Hour()]++
	}

	for _, a := range apps {
		s.ByApp = append(s.ByApp, *a)
	}
	sort.Slice(s.ByApp, func(i, j int) bool { return s.ByApp[i].App < s.ByApp[j].App })

	for h, n := range hours {
		s.ByHour = append(s.ByHour, models.HourTotal{Hour: h, Orders: n})
	}
	sort.Slice(s.ByHour, func(i, j int) bool { return s.ByHour[i].Hour < s.ByHour[j].Hour })

	return s, nil
}
