package ids

import "testing"

func TestGenerateUnique(t *testing.T) {
	seen := make(map[int64]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := Generate()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d at iteration %d", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestGenerateStringNotEmpty(t *testing.T) {
	if GenerateString() == "" {
		t.Fatal("empty id")
	}
}
