// Package rollout provides deterministic bucketing for feature rollouts.
package rollout

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// NoBucket is reported when a decision was not derived from a bucket.
const NoBucket = -1.0

// bucketBits is the number of hash bits kept when normalizing to [0, 1).
// 53 bits fit a float64 mantissa exactly, so the result can never round up to 1.
const bucketBits = 53

var bucketSpace = float64(uint64(1) << bucketBits)

// BucketKey builds the hash input for a feature and identifier value.
// A zero shuffle version yields "feature:identifier"; any other version
// yields "feature.version:identifier", reshuffling every assignment.
func BucketKey(feature string, shuffleVersion int, identifier string) string {
	if shuffleVersion == 0 {
		return feature + ":" + identifier
	}
	return feature + "." + strconv.Itoa(shuffleVersion) + ":" + identifier
}

// Bucket returns the stable position of identifier in [0, 1) for feature.
// The same feature + identifier always return the same position.
// Returns NoBucket for an empty identifier.
func Bucket(feature, identifier string) float64 {
	return BucketWithShuffle(feature, 0, identifier)
}

// BucketWithShuffle is Bucket with an explicit shuffle version.
func BucketWithShuffle(feature string, shuffleVersion int, identifier string) float64 {
	if identifier == "" {
		return NoBucket
	}
	hash := xxhash.Sum64String(BucketKey(feature, shuffleVersion, identifier))
	return float64(hash>>(64-bucketBits)) / bucketSpace
}

// BucketIndex maps identifier to one of n slots (0..n-1).
// It is derived from Bucket, so BucketIndex(f, id, 100) < p iff Bucket(f, id) < p/100.
func BucketIndex(feature, identifier string, n int) int {
	if n <= 0 {
		return -1
	}
	b := Bucket(feature, identifier)
	if b < 0 {
		return -1
	}
	return int(b * float64(n))
}
