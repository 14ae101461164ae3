package math

import "golang.org/x/exp/constraints"

// Clamp limits value to [low, high]. low wins when the bounds cross.
func Clamp[T constraints.Ordered](value, low, high T) T {
	return max(low, min(value, high))
}
