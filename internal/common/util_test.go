package common

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestGenerateRandByteArray_LengthAndEntropy(t *testing.T) {
	a := GenerateRandByteArray(KeySize)
	b := GenerateRandByteArray(KeySize)
	if len(a) != KeySize || len(b) != KeySize {
		t.Fatalf("unexpected lengths: %d, %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two %d-byte draws are identical", KeySize)
	}
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	if !bytes.Equal(buf, make([]byte, 5)) {
		t.Fatalf("buffer not zeroed: %v", buf)
	}
	WipeByteArray(nil)
}

func TestSentinels_WrapAndMatch(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrStorage, errors.New("disk full"))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("wrapped error should match ErrStorage")
	}
	if errors.Is(err, ErrorNotFound) {
		t.Fatalf("wrapped error must not match ErrorNotFound")
	}
}
