// Package sequence issues strictly increasing integers per partition key and
// formats them into human-readable document numbers such as JRR-2025-00001.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
)

// ErrUnavailable wraps storage failures. Callers must assume no number was
// issued and may retry.
var ErrUnavailable = fmt.Errorf("sequence: counter store unavailable: %w", httpx.ErrUnavailable)

// ErrBackwards is returned when Set would move a counter below its current value.
var ErrBackwards = errors.New("sequence: counter cannot move backwards")

// Allocator is the atomic counter store.
type Allocator interface {
	// Next increments the counter for key and returns the new value. A missing
	// counter is created so that the first call returns 1.
	Next(ctx context.Context, key string) (int64, error)
	// Current returns the last issued value, 0 when the counter does not exist.
	Current(ctx context.Context, key string) (int64, error)
	// Set re-seeds a counter to value; it never moves a counter backwards.
	Set(ctx context.Context, key string, value int64) error
}

const seqWidth = 5

var displayIDPattern = regexp.MustCompile(`^([A-Z]+)-(\d{4})-(\d{5,})$`)

// PartitionKey returns the counter key for job cards in year.
func PartitionKey(year int) string {
	return fmt.Sprintf("jobcard_%d", year)
}

// Format renders prefix, year and seq as PREFIX-YYYY-NNNNN.
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%0*d", prefix, year, seqWidth, seq)
}

// Parse splits a display id into its parts.
func Parse(displayID string) (prefix string, year int, seq int64, err error) {
	m := displayIDPattern.FindStringSubmatch(displayID)
	if m == nil {
		return "", 0, 0, fmt.Errorf("sequence: malformed display id %q", displayID)
	}
	year, _ = strconv.Atoi(m[2])
	seq, err = strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("sequence: malformed display id %q: %w", displayID, err)
	}
	return m[1], year, seq, nil
}

// Valid reports whether displayID has the PREFIX-YYYY-NNNNN shape.
func Valid(displayID string) bool {
	return displayIDPattern.MatchString(displayID)
}

// Issuer mints display ids from an Allocator.
type Issuer struct {
	alloc  Allocator
	prefix string
	onNext func()
}

// NewIssuer constructs an Issuer for prefix. onNext, when non-nil, is invoked
// after every successful allocation.
func NewIssuer(alloc Allocator, prefix string, onNext func()) *Issuer {
	return &Issuer{alloc: alloc, prefix: prefix, onNext: onNext}
}

// Issue allocates the next number for year and formats it.
func (i *Issuer) Issue(ctx context.Context, year int) (string, error) {
	seq, err := i.alloc.Next(ctx, PartitionKey(year))
	if err != nil {
		return "", err
	}
	if i.onNext != nil {
		i.onNext()
	}
	return Format(i.prefix, year, seq), nil
}

// Prefix returns the configured display id prefix.
func (i *Issuer) Prefix() string {
	return i.prefix
}
