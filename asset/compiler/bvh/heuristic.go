package bvh

import (
	"fmt"
	"strings"
)

// The strategy used for partitioning large ranges.
type SplitHeuristic uint8

const (
	// Split at the midpoint of the longest domain axis.
	MedianSplit SplitHeuristic = iota

	// Evaluate every split position on all three axes and pick the one
	// with the lowest surface area heuristic cost:
	// leftCount * leftArea + rightCount * rightArea.
	SurfaceAreaHeuristic
)

func (h SplitHeuristic) String() string {
	switch h {
	case MedianSplit:
		return "median"
	case SurfaceAreaHeuristic:
		return "sah"
	}
	return fmt.Sprintf("SplitHeuristic(%d)", uint8(h))
}

// Parse a heuristic name as returned by String.
func ParseSplitHeuristic(name string) (SplitHeuristic, error) {
	switch strings.ToLower(name) {
	case "median":
		return MedianSplit, nil
	case "sah":
		return SurfaceAreaHeuristic, nil
	}
	return MedianSplit, fmt.Errorf("bvh: unknown split heuristic %q", name)
}
