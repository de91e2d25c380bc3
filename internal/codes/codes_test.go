package codes

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateUniqueFormat(t *testing.T) {
	code, err := GenerateUnique(7, func(string) (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 7 {
		t.Fatalf("len = %d, want 7", len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("code %q contains %q outside the alphabet", code, r)
		}
	}
}

func TestGenerateUniqueRetriesOnCollision(t *testing.T) {
	calls := 0
	code, err := GenerateUnique(7, func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code == "" {
		t.Fatal("expected a code after retries")
	}
	if calls != 3 {
		t.Fatalf("exists called %d times, want 3", calls)
	}
}

func TestGenerateUniqueGivesUp(t *testing.T) {
	calls := 0
	_, err := GenerateUnique(7, func(string) (bool, error) {
		calls++
		return true, nil
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("got %v, want ErrExhausted", err)
	}
	if calls != MaxAttempts {
		t.Fatalf("exists called %d times, want %d", calls, MaxAttempts)
	}
}

func TestGenerateUniquePropagatesCheckError(t *testing.T) {
	boom := errors.New("db down")
	_, err := GenerateUnique(7, func(string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want db error", err)
	}
}
