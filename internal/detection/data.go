package detection

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
)

var (
	// ErrCapacityExceeded is returned by Append once the limit has been reached.
	// It is the expected signal that ends a run early.
	ErrCapacityExceeded = errors.New("too many detections")
	// ErrNotFound is returned when a lookup key was never populated.
	ErrNotFound = errors.New("detection key not found")
)

// Limit caps the number of detections a Data accepts.
type Limit struct {
	max     int
	bounded bool
}

// Unlimited returns a Limit that never trips.
func Unlimited() Limit {
	return Limit{}
}

// MaxDetections returns a Limit of n detections. Negative n is treated as 0.
func MaxDetections(n int) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{max: n, bounded: true}
}

// Bounded reports whether the limit is finite, and its value.
func (l Limit) Bounded() (int, bool) {
	return l.max, l.bounded
}

func (l Limit) String() string {
	if !l.bounded {
		return "unlimited"
	}
	return fmt.Sprintf("%d", l.max)
}

// LevelType is a (level, detection type) pair.
type LevelType struct {
	Level         int
	DetectionType string
}

// Data is the result of one validation run. Detections are stored once in
// append order; the id, type and (level, type) indexes hold positions into
// that list. All methods are safe for concurrent use.
type Data struct {
	mu    sync.RWMutex
	limit Limit

	all     []*Detection
	tooMany bool

	byID        map[string][]int
	byType      map[string][]int
	byLevelType map[LevelType][]int

	idOrder    []string
	typeOrder  []string
	levelTypes map[int][]string
}

// NewData creates an empty Data with the given limit.
func NewData(limit Limit) *Data {
	return &Data{
		limit:       limit,
		byID:        map[string][]int{},
		byType:      map[string][]int{},
		byLevelType: map[LevelType][]int{},
		levelTypes:  map[int][]string{},
	}
}

// Limit returns the configured limit.
func (d *Data) Limit() Limit {
	return d.limit
}

// Append adds a detection to every index. Once the limit has been reached it
// sets the sticky too-many flag and returns ErrCapacityExceeded.
func (d *Data) Append(det *Detection) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.limit.Bounded(); ok && len(d.all) >= n {
		d.tooMany = true
		return ErrCapacityExceeded
	}

	pos := len(d.all)
	d.all = append(d.all, det)

	if _, seen := d.byID[det.id]; !seen {
		d.idOrder = append(d.idOrder, det.id)
	}
	d.byID[det.id] = append(d.byID[det.id], pos)

	if _, seen := d.byType[det.detectionType]; !seen {
		d.typeOrder = append(d.typeOrder, det.detectionType)
	}
	d.byType[det.detectionType] = append(d.byType[det.detectionType], pos)

	key := LevelType{Level: det.level, DetectionType: det.detectionType}
	if _, seen := d.byLevelType[key]; !seen {
		d.levelTypes[det.level] = append(d.levelTypes[det.level], det.detectionType)
	}
	d.byLevelType[key] = append(d.byLevelType[key], pos)
	return nil
}

// Extend appends detections in order and stops at the first error.
func (d *Data) Extend(dets []*Detection) error {
	for _, det := range dets {
		if err := d.Append(det); err != nil {
			return err
		}
	}
	return nil
}

// ByID returns the detections for a record id in append order.
func (d *Data) ByID(id string) ([]*Detection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pos, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("id %q: %w", id, ErrNotFound)
	}
	return d.collect(pos), nil
}

// ByDetectionType returns the detections of a type in append order.
func (d *Data) ByDetectionType(detectionType string) ([]*Detection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pos, ok := d.byType[detectionType]
	if !ok {
		return nil, fmt.Errorf("detection type %q: %w", detectionType, ErrNotFound)
	}
	return d.collect(pos), nil
}

// ByLevelAndType returns the detections of a level and type in append order.
func (d *Data) ByLevelAndType(level int, detectionType string) ([]*Detection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pos, ok := d.byLevelType[LevelType{Level: level, DetectionType: detectionType}]
	if !ok {
		return nil, fmt.Errorf("level %d, detection type %q: %w", level, detectionType, ErrNotFound)
	}
	return d.collect(pos), nil
}

func (d *Data) collect(pos []int) []*Detection {
	out := make([]*Detection, len(pos))
	for i, p := range pos {
		out[i] = d.all[p]
	}
	return out
}

// LevelsAndTypes yields every populated (level, type) pair, by descending
// level and then in the order the type was first seen at that level. The
// sequence may be ranged over any number of times.
func (d *Data) LevelsAndTypes() iter.Seq[LevelType] {
	return func(yield func(LevelType) bool) {
		d.mu.RLock()
		levels := make([]int, 0, len(d.levelTypes))
		for l := range d.levelTypes {
			levels = append(levels, l)
		}
		var pairs []LevelType
		slices.Sort(levels)
		for _, l := range slices.Backward(levels) {
			for _, t := range d.levelTypes[l] {
				pairs = append(pairs, LevelType{Level: l, DetectionType: t})
			}
		}
		d.mu.RUnlock()

		for _, p := range pairs {
			if !yield(p) {
				return
			}
		}
	}
}

// IDs returns the record ids in the order they were first seen.
func (d *Data) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.idOrder)
}

// DetectionTypes returns the detection types in the order they were first seen.
func (d *Data) DetectionTypes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.typeOrder)
}

// Values returns every detection in append order.
func (d *Data) Values() []*Detection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.all)
}

// Count is the number of accepted detections.
func (d *Data) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.all)
}

// TooManyDetection reports whether any append was rejected by the limit.
func (d *Data) TooManyDetection() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tooMany
}
