package bmff

import "log"

// Logger receives non-fatal diagnostics: unrecognised boxes kept as
// opaque bytes, dropped iinf/ipco entries, ipma indices naming no
// property, and iovl inputs outside the canvas. Dangling iref targets and
// skipped region geometries are not reported. Parsing continues after a
// warning; it never aborts the operation.
type Logger interface {
	Warnf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Warnf(format string, args ...any) {
	log.Printf("heifbox: "+format, args...)
}

// Limits bounds every resource a single parse or write may consume. Every
// operation that would exceed one of these fails fast with
// Security_limit_exceeded, and must not partially complete.
type Limits struct {
	MaxBoxSize           int64
	MaxNestingLevel      int
	MaxItemCount         int
	MaxTotalMemory       int64
	MaxImageWidth        int
	MaxImageHeight       int
	MaxPropertiesPerItem int
	Logger               Logger
}

// DefaultLimits returns the limits this module enforces absent explicit
// caller configuration. They are generous enough for ordinary still images
// while rejecting the pathological inputs security fuzzing tends to find
// (a single extent claiming to be 2^63-1 bytes, a box nested 10000 deep).
func DefaultLimits() Limits {
	return Limits{
		MaxBoxSize:           1 << 34, // 16 GiB; no legitimate still-image box approaches this
		MaxNestingLevel:      100,
		MaxItemCount:         1 << 16,
		MaxTotalMemory:       512 << 20, // 512 MiB
		MaxImageWidth:        1 << 16,
		MaxImageHeight:       1 << 16,
		MaxPropertiesPerItem: 256,
		Logger:               stdLogger{},
	}
}

func (l *Limits) logger() Logger {
	if l != nil && l.Logger != nil {
		return l.Logger
	}
	return stdLogger{}
}

func (l *Limits) Warnf(format string, args ...any) {
	l.logger().Warnf(format, args...)
}

// MemoryAccount charges allocations larger than a threshold against a
// per-file counter, per the Security limits data model (§3): every
// allocation larger than a threshold is charged and checked against
// MaxTotalMemory.
type MemoryAccount struct {
	limit int64
	used  int64
}

// NewMemoryAccount creates an accounting counter bounded by limit. A
// non-positive limit disables accounting (treated as unbounded).
func NewMemoryAccount(limit int64) *MemoryAccount {
	return &MemoryAccount{limit: limit}
}

const memoryAccountThreshold = 4096

// Charge records an allocation of n bytes, failing with
// Memory_allocation_error if the running total would exceed the limit. The
// caller must not keep any partial allocation on failure.
func (m *MemoryAccount) Charge(n int64) error {
	if m == nil || n < memoryAccountThreshold {
		return nil
	}
	if m.limit > 0 && m.used+n > m.limit {
		return New(KindMemoryAllocationError, SubSecurityLimitExceeded,
			"allocation of %d bytes would exceed the %d byte memory ceiling (already charged %d)", n, m.limit, m.used)
	}
	m.used += n
	return nil
}

// Release gives back previously charged bytes, e.g. after releasing a
// partial decode on cancellation.
func (m *MemoryAccount) Release(n int64) {
	if m == nil {
		return
	}
	m.used -= n
	if m.used < 0 {
		m.used = 0
	}
}
