package sim

import "hash/fnv"

// DeriveSeed maps a base seed and a label (scenario cell, repetition) to an
// independent stream seed. Runs never share process-global randomness, so
// repetitions stay reproducible and parallelizable.
func DeriveSeed(base int64, label string) int64 {
	return base ^ fnv1a64(label)
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
