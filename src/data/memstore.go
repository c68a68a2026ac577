package data

import (
	"sync"

	"github.com/nostrlabs/nostroracle/src/types"
)

// memStore keeps everything in process memory. It backs tests and the
// degraded mode when MySQL is unreachable.
type memStore struct {
	mu      sync.Mutex
	events  map[string]types.Event
	results map[string]*types.VerificationResult
	order   []string
	stats   types.SystemStats
}

func NewMemStore() Store {
	return &memStore{
		events:  make(map[string]types.Event),
		results: make(map[string]*types.VerificationResult),
	}
}

func (s *memStore) SaveEvent(ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
	return nil
}

func (s *memStore) SaveResult(res *types.VerificationResult) (*types.VerificationResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.results[res.EventID]; ok {
		return existing, false, nil
	}
	s.results[res.EventID] = res
	s.order = append([]string{res.EventID}, s.order...)

	s.stats.PostsProcessed++
	s.stats.ClaimsVerified += uint64(len(res.Claims))
	s.stats.TotalScore += uint64(res.Score)
	s.stats.AverageScore = float64(s.stats.TotalScore) / float64(s.stats.PostsProcessed)
	return res, true, nil
}

func (s *memStore) RecentResults(limit int) ([]*types.VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.VerificationResult, 0, limit)
	for _, id := range s.order {
		if len(out) == limit {
			break
		}
		out = append(out, s.results[id])
	}
	return out, nil
}

func (s *memStore) Stats() (types.StatsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.StatsSnapshot{
		PostsProcessed: s.stats.PostsProcessed,
		ClaimsVerified: s.stats.ClaimsVerified,
		AverageScore:   s.stats.AverageScore,
	}, nil
}
