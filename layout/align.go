package layout

import "golang.org/x/exp/constraints"

// alignUp rounds v up to the next multiple of a. Zero a leaves v as is.
func alignUp[I constraints.Unsigned](v, a I) I {
	if a == 0 {
		return v
	}
	return (v + a - 1) &^ (a - 1)
}

func isPowerOfTwo[I constraints.Unsigned](a I) bool {
	return a != 0 && a&(a-1) == 0
}
