package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/scolaplan/timetable-api/internal/models"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
)

type layoutSlotReader interface {
	ListForDay(ctx context.Context, schoolID, day string) ([]models.Slot, error)
}

type layoutCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

type layoutMetrics interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// LayoutServiceConfig tunes the cached read path.
type LayoutServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// LayoutService computes side-by-side column positions for one day's slots.
// It is a pure read-side transform over a snapshot; results are cached per
// school and day and invalidated by slot writes.
type LayoutService struct {
	repo    layoutSlotReader
	cache   layoutCache
	metrics layoutMetrics
	logger  *zap.Logger
	cfg     LayoutServiceConfig
}

// NewLayoutService instantiates LayoutService.
func NewLayoutService(repo layoutSlotReader, cache layoutCache, metrics layoutMetrics, logger *zap.Logger, cfg LayoutServiceConfig) *LayoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &LayoutService{repo: repo, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// DayLayout returns the column position of every slot for one school day.
func (s *LayoutService) DayLayout(ctx context.Context, schoolID, day string) (map[string]models.DayLayoutPosition, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	canonicalDay, ok := NormalizeDay(day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", day))
	}

	key := layoutCacheKey(schoolID, canonicalDay)
	if s.cacheEnabled() {
		cached := make(map[string]models.DayLayoutPosition)
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheHit()
			}
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("layout cache read failed", zap.String("key", key), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss()
		}
	}

	slots, err := s.repo.ListForDay(ctx, schoolID, canonicalDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day slots")
	}

	layout := ComputeDayLayout(slots)

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, layout, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("layout cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return layout, nil
}

// Invalidate drops cached layouts for the given school days. Implements the
// invalidator consumed by SlotService.
func (s *LayoutService) Invalidate(ctx context.Context, schoolID string, days ...string) {
	if !s.cacheEnabled() || len(days) == 0 {
		return
	}
	keys := make([]string, 0, len(days))
	for _, day := range days {
		keys = append(keys, layoutCacheKey(schoolID, day))
	}
	s.cache.Delete(ctx, keys...)
}

func (s *LayoutService) cacheEnabled() bool {
	return s.cfg.CacheEnabled && s.cache != nil
}

func layoutCacheKey(schoolID, day string) string {
	return fmt.Sprintf("layout:%s:%s", schoolID, day)
}

// ComputeDayLayout partitions one day's slots into overlap clusters and
// assigns each slot a column index plus the cluster's column count, so
// overlapping slots render side by side instead of stacked.
//
// Clusters are connected components of the overlap relation: A-B and B-C
// overlapping chain A, B, and C into one cluster even when A and C do not
// touch, so the whole chain shares one column allocation.
func ComputeDayLayout(slots []models.Slot) map[string]models.DayLayoutPosition {
	layout := make(map[string]models.DayLayoutPosition, len(slots))
	if len(slots) == 0 {
		return layout
	}

	ordered := make([]models.Slot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartMinutes < ordered[j].StartMinutes
	})

	visited := make([]bool, len(ordered))
	for i := range ordered {
		if visited[i] {
			continue
		}
		cluster := collectCluster(ordered, visited, i)
		assignColumns(cluster, layout)
	}
	return layout
}

// collectCluster grows a cluster from the seed via breadth-first traversal,
// absorbing any unvisited slot that overlaps a slot already in the cluster.
func collectCluster(ordered []models.Slot, visited []bool, seed int) []models.Slot {
	visited[seed] = true
	cluster := []models.Slot{ordered[seed]}
	queue := []int{seed}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for next := range ordered {
			if visited[next] {
				continue
			}
			if Overlaps(ordered[current], ordered[next]) {
				visited[next] = true
				cluster = append(cluster, ordered[next])
				queue = append(queue, next)
			}
		}
	}

	sort.SliceStable(cluster, func(i, j int) bool {
		return cluster[i].StartMinutes < cluster[j].StartMinutes
	})
	return cluster
}

// assignColumns greedily packs a cluster into the minimum number of columns:
// each slot reuses the first column that has freed up, otherwise opens a new
// one. Every member reports the cluster's final column total.
func assignColumns(cluster []models.Slot, layout map[string]models.DayLayoutPosition) {
	if len(cluster) == 1 {
		layout[cluster[0].ID] = models.DayLayoutPosition{SlotID: cluster[0].ID, ColumnIndex: 0, ColumnCount: 1}
		return
	}

	var columnEnds []int
	indexes := make(map[string]int, len(cluster))
	for _, slot := range cluster {
		placed := false
		for col, end := range columnEnds {
			if end <= slot.StartMinutes {
				columnEnds[col] = slot.EndMinutes
				indexes[slot.ID] = col
				placed = true
				break
			}
		}
		if !placed {
			columnEnds = append(columnEnds, slot.EndMinutes)
			indexes[slot.ID] = len(columnEnds) - 1
		}
	}

	count := len(columnEnds)
	for _, slot := range cluster {
		layout[slot.ID] = models.DayLayoutPosition{SlotID: slot.ID, ColumnIndex: indexes[slot.ID], ColumnCount: count}
	}
}
