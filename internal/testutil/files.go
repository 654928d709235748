package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

// NewTestFile writes data to a file in a per-test temporary directory and
// returns its path. The directory is removed when the test completes.
func NewTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

// RandomBytes returns n bytes drawn from alphabet with a fixed seed, so the
// same arguments always produce the same data.
func RandomBytes(seed uint64, n int, alphabet []byte) []byte {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	data := make([]byte, n)
	for i := range data {
		data[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return data
}

// Plant copies needle into data at each offset.
func Plant(data, needle []byte, offsets ...int) []byte {
	for _, off := range offsets {
		copy(data[off:], needle)
	}
	return data
}
