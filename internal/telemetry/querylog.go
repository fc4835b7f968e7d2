package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/travelrag/internal/tokenize"
)

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // next write position
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a buffer; capacity <= 0 means 100.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// =============================================================================
// Query Log
// =============================================================================

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryLogSnapshot is a point-in-time copy of the query log.
type QueryLogSnapshot struct {
	TotalQueries      int64            `json:"total_queries"`
	ModeCounts        map[string]int64 `json:"mode_counts"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	ZeroResultQueries []string         `json:"zero_result_queries"`
	TopTerms          []TermCount      `json:"top_terms"`
	Since             time.Time        `json:"since"`
}

// ZeroResultPercentage returns the share of queries with no results.
func (s QueryLogSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryLog keeps recent query patterns in memory for the status tool: which
// terms travellers search for and which queries found nothing. Nothing is
// persisted. Safe for concurrent use; a nil *QueryLog records nothing.
type QueryLog struct {
	mu          sync.Mutex
	modes       map[string]int64
	terms       *lru.Cache[string, int64]
	zeroResults *CircularBuffer[string]
	total       int64
	zeroCount   int64
	since       time.Time
}

// NewQueryLog tracks up to termCapacity distinct terms and the last
// zeroCapacity zero-result queries.
func NewQueryLog(termCapacity, zeroCapacity int) *QueryLog {
	if termCapacity <= 0 {
		termCapacity = 100
	}
	terms, _ := lru.New[string, int64](termCapacity)
	return &QueryLog{
		modes:       make(map[string]int64),
		terms:       terms,
		zeroResults: NewCircularBuffer[string](zeroCapacity),
		since:       time.Now(),
	}
}

// Record adds one query.
func (l *QueryLog) Record(query, mode string, results int) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	l.modes[mode]++
	for _, t := range tokenize.Lexical(query) {
		if len(t) < 3 {
			continue
		}
		n, _ := l.terms.Get(t)
		l.terms.Add(t, n+1)
	}
	if results == 0 {
		l.zeroCount++
		l.zeroResults.Add(strings.TrimSpace(query))
	}
}

// Snapshot returns the current state with the top n terms.
func (l *QueryLog) Snapshot(n int) QueryLogSnapshot {
	if l == nil {
		return QueryLogSnapshot{ModeCounts: map[string]int64{}, ZeroResultQueries: []string{}, TopTerms: []TermCount{}}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	modes := make(map[string]int64, len(l.modes))
	for k, v := range l.modes {
		modes[k] = v
	}

	terms := make([]TermCount, 0, l.terms.Len())
	for _, k := range l.terms.Keys() {
		if v, ok := l.terms.Peek(k); ok {
			terms = append(terms, TermCount{Term: k, Count: v})
		}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}

	return QueryLogSnapshot{
		TotalQueries:      l.total,
		ModeCounts:        modes,
		ZeroResultCount:   l.zeroCount,
		ZeroResultQueries: l.zeroResults.Items(),
		TopTerms:          terms,
		Since:             l.since,
	}
}
