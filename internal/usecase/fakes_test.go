package usecase

import (
	"context"
	"sync"
	"time"

	"copywatch/internal/domain"
	"copywatch/internal/ports"
)

type storedReview struct {
	status   domain.ReviewStatus
	reviewer string
	at       time.Time
}

type fakeStore struct {
	mu sync.Mutex

	whitelist    map[string]struct{}
	whitelistErr error

	projects    map[string][]string
	projectsErr error

	reviews   map[int64]storedReview
	statusErr error
	updateErr error
	clearErr  error

	updateCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		whitelist: map[string]struct{}{},
		projects:  map[string][]string{},
		reviews:   map[int64]storedReview{},
	}
}

func (s *fakeStore) ListRecords(ctx context.Context, q ports.RecordQuery) ([]domain.Record, error) {
	return []domain.Record{}, nil
}

func (s *fakeStore) CurrentStatus(ctx context.Context, id int64) (domain.ReviewStatus, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return domain.StatusReady, "", s.statusErr
	}
	review := s.reviews[id]
	return review.status, review.reviewer, nil
}

func (s *fakeStore) UpdateReview(ctx context.Context, id int64, status domain.ReviewStatus, actor string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updateCalls++
	s.reviews[id] = storedReview{status: status, reviewer: actor, at: at}
	return nil
}

func (s *fakeStore) ClearReview(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.reviews[id] = storedReview{status: domain.StatusReady}
	return nil
}

func (s *fakeStore) UserWhitelist(ctx context.Context) (map[string]struct{}, error) {
	if s.whitelistErr != nil {
		return nil, s.whitelistErr
	}
	return s.whitelist, nil
}

func (s *fakeStore) WikiProjects(ctx context.Context, lang, title string) ([]string, error) {
	if s.projectsErr != nil {
		return nil, s.projectsErr
	}
	return s.projects[title], nil
}

func (s *fakeStore) review(id int64) storedReview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviews[id]
}

type fakeDirectory struct {
	editors    map[int64]string
	editorsErr error

	counts    map[string]int
	countsErr error

	dead    map[string]bool
	deadErr error

	blocked    map[string]bool
	blockedErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		editors: map[int64]string{},
		counts:  map[string]int{},
		dead:    map[string]bool{},
		blocked: map[string]bool{},
	}
}

func (d *fakeDirectory) RevisionEditors(ctx context.Context, revIDs []int64) (map[int64]string, error) {
	if d.editorsErr != nil {
		return nil, d.editorsErr
	}
	out := map[int64]string{}
	for _, id := range revIDs {
		if editor, ok := d.editors[id]; ok {
			out[id] = editor
		}
	}
	return out, nil
}

func (d *fakeDirectory) EditCounts(ctx context.Context, editors []string) (map[string]int, error) {
	if d.countsErr != nil {
		return nil, d.countsErr
	}
	out := map[string]int{}
	for _, editor := range editors {
		if count, ok := d.counts[editor]; ok {
			out[editor] = count
		}
	}
	return out, nil
}

func (d *fakeDirectory) DeadPages(ctx context.Context, titles []string) (map[string]bool, error) {
	if d.deadErr != nil {
		return nil, d.deadErr
	}
	out := map[string]bool{}
	for _, title := range titles {
		if d.dead[title] {
			out[title] = true
		}
	}
	return out, nil
}

func (d *fakeDirectory) IsActorBlocked(ctx context.Context, actor string) (bool, error) {
	if d.blockedErr != nil {
		return false, d.blockedErr
	}
	return d.blocked[actor], nil
}

type fakeScores struct {
	scores map[int64]float64
	err    error
}

func (f *fakeScores) Scores(ctx context.Context, revIDs []int64) (map[int64]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[int64]float64{}
	for _, id := range revIDs {
		if score, ok := f.scores[id]; ok {
			out[id] = score
		}
	}
	return out, nil
}

type fakeSink struct {
	mu  sync.Mutex
	ids []int64
}

func (f *fakeSink) Enqueue(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
}

func (f *fakeSink) enqueued() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.ids...)
}
