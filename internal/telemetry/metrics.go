// Package telemetry collects in-process query metrics for notesearch.
// Nothing is persisted or reported externally; snapshots surface through
// the status command and the index_status tool.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryType classifies a query by the syntax it uses.
type QueryType string

const (
	QueryTypePlain   QueryType = "plain"
	QueryTypePhrase  QueryType = "phrase"
	QueryTypeField   QueryType = "field"
	QueryTypeBoolean QueryType = "boolean"
	QueryTypeMixed   QueryType = "mixed"
)

// Classify reports which query syntax q uses. More than one kind is mixed.
func Classify(q string) QueryType {
	var kinds []QueryType
	if strings.Contains(q, `"`) {
		kinds = append(kinds, QueryTypePhrase)
	}
	for _, f := range strings.Fields(q) {
		f = strings.TrimLeft(f, "+-")
		if i := strings.IndexByte(f, ':'); i > 0 && !strings.HasPrefix(f, `"`) {
			kinds = append(kinds, QueryTypeField)
			break
		}
	}
	for _, f := range strings.Fields(q) {
		if strings.HasPrefix(f, "+") || strings.HasPrefix(f, "-") {
			kinds = append(kinds, QueryTypeBoolean)
			break
		}
	}
	switch len(kinds) {
	case 0:
		return QueryTypePlain
	case 1:
		return kinds[0]
	default:
		return QueryTypeMixed
	}
}

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is a single search for recording.
type QueryEvent struct {
	Query       string
	ResultCount int
	Latency     time.Duration
	Cached      bool
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // next write position
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
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
	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items oldest first.
func (b *CircularBuffer[T]) Items() []T {
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
func (b *CircularBuffer[T]) Size() int { return b.size }

// ExtractTerms lowercases query words and drops operators, quotes, field
// prefixes and words shorter than three characters.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.TrimLeft(w, "+-")
		if i := strings.IndexByte(w, ':'); i >= 0 {
			w = w[i+1:]
		}
		w = strings.Trim(w, `"`)
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and how often it was queried.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a copy of the collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	CacheHits           int64                   `json:"cache_hits"`
	QueryTypeCounts     map[QueryType]int64     `json:"query_type_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries with no results.
func (s Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// Config configures a QueryMetrics collector.
type Config struct {
	TopTermsCapacity    int // distinct terms tracked, least recent evicted
	ZeroResultsCapacity int // recent zero-result queries kept
	TopTermsReported    int
}

// DefaultConfig returns the default collector sizes.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    500,
		ZeroResultsCapacity: 50,
		TopTermsReported:    10,
	}
}

// QueryMetrics aggregates QueryEvents. It is safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	cfg         Config
	queryTypes  map[QueryType]int64
	latencies   map[LatencyBucket]int64
	topTerms    *lru.Cache[string, int64]
	zeroResults *CircularBuffer[string]
	total       int64
	zero        int64
	cacheHits   int64
	since       time.Time
}

// NewQueryMetrics creates a collector; zero config fields take defaults.
func NewQueryMetrics(cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.TopTermsReported <= 0 {
		cfg.TopTermsReported = def.TopTermsReported
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	return &QueryMetrics{
		cfg:         cfg,
		queryTypes:  make(map[QueryType]int64),
		latencies:   make(map[LatencyBucket]int64),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		since:       time.Now(),
	}
}

// Record adds one query to the aggregates.
func (m *QueryMetrics) Record(ev QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.queryTypes[Classify(ev.Query)]++
	m.latencies[LatencyToBucket(ev.Latency)]++
	if ev.Cached {
		m.cacheHits++
	}
	if ev.ResultCount == 0 {
		m.zero++
		m.zeroResults.Add(ev.Query)
	}
	for _, term := range ExtractTerms(ev.Query) {
		n, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, n+1)
	}
}

// Snapshot returns a copy of the current aggregates.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		TotalQueries:        m.total,
		ZeroResultCount:     m.zero,
		CacheHits:           m.cacheHits,
		QueryTypeCounts:     make(map[QueryType]int64, len(m.queryTypes)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(m.latencies)),
		ZeroResultQueries:   m.zeroResults.Items(),
		Since:               m.since,
	}
	for k, v := range m.queryTypes {
		s.QueryTypeCounts[k] = v
	}
	for k, v := range m.latencies {
		s.LatencyDistribution[k] = v
	}

	terms := make([]TermCount, 0, m.topTerms.Len())
	for _, k := range m.topTerms.Keys() {
		if n, ok := m.topTerms.Peek(k); ok {
			terms = append(terms, TermCount{Term: k, Count: n})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if len(terms) > m.cfg.TopTermsReported {
		terms = terms[:m.cfg.TopTermsReported]
	}
	s.TopTerms = terms
	return s
}
