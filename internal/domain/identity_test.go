package domain

import "testing"

func TestNormalizeChannelID(t *testing.T) {
	cases := map[int64]int64{
		1234:           -1001234,
		-1001234:       -1001234,
		5555:           -1005555,
		-5555:          -1005555,
		9999999999:     -1009999999999,
		-1009999999999: -1009999999999,
	}
	for raw, expected := range cases {
		if got := NormalizeChannelID(raw); got != expected {
			t.Fatalf("NormalizeChannelID(%d): ожидали %d, получили %d", raw, expected, got)
		}
	}
}

func TestNormalizeChannelIDIdempotent(t *testing.T) {
	ids := []int64{1, 42, 1234, -1001234, 987654321}
	for _, raw := range ids {
		once := NormalizeChannelID(raw)
		twice := NormalizeChannelID(once)
		if once != twice {
			t.Fatalf("нормализация не идемпотентна для %d: %d != %d", raw, once, twice)
		}
	}
}
