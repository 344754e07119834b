// Package expiration models render priorities as expiration times. A larger
// Time is more urgent; Sync beats every async bucket.
package expiration

import "strconv"

type Time uint32

const (
	NoWork Time = 0
	Never  Time = 1
	Sync   Time = 1<<30 - 1

	unitSize          = 10
	magicNumberOffset = Sync - 1
)

const (
	LowPriorityExpiration  = 5000
	LowPriorityBatchSize   = 250
	HighPriorityExpiration = 150
	HighPriorityBatchSize  = 100
)

// FromMillis converts elapsed milliseconds into a Time. Each unit is 10ms so
// updates scheduled close together land in the same bucket. Times never drop
// to Never or below, however long the clock runs.
func FromMillis(ms int64) Time {
	return fromUnits(ms / unitSize)
}

// fromUnits clamps to the range (Never, magicNumberOffset].
func fromUnits(units int64) Time {
	if units <= 0 {
		return magicNumberOffset
	}
	if units >= int64(magicNumberOffset-Never) {
		return Never + 1
	}
	return magicNumberOffset - Time(units)
}

func ToMillis(t Time) int64 {
	return int64(magicNumberOffset-t) * unitSize
}

func ceiling(num, precision int64) int64 {
	return (num/precision + 1) * precision
}

func computeBucket(current Time, expirationMs, bucketSizeMs int64) Time {
	return fromUnits(ceiling(
		int64(magicNumberOffset-current)+expirationMs/unitSize,
		bucketSizeMs/unitSize,
	))
}

// ComputeAsync is the expiration for low priority work requested at current.
func ComputeAsync(current Time) Time {
	return computeBucket(current, LowPriorityExpiration, LowPriorityBatchSize)
}

// ComputeInteractive is the expiration for work triggered by user input.
func ComputeInteractive(current Time) Time {
	return computeBucket(current, HighPriorityExpiration, HighPriorityBatchSize)
}

func (t Time) String() string {
	switch t {
	case NoWork:
		return "NoWork"
	case Never:
		return "Never"
	case Sync:
		return "Sync"
	}
	return "Time(" + strconv.FormatUint(uint64(t), 10) + ")"
}
