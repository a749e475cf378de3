package match

import "testing"

func TestScoreExamples(t *testing.T) {
	tests := []struct {
		name       string
		distance   float64
		maxMeters  float64
		seats      int
		passengers int
		want       int
	}{
		{"zero distance three seats open", 0, 5000, 4, 1, 80},
		{"at radius edge", 5000, 5000, 4, 1, 30},
		{"full ride at zero distance", 0, 5000, 3, 3, 50},
		{"seat contribution capped at five", 0, 5000, 20, 0, 100},
		{"half distance two seats", 2500, 5000, 2, 0, 45},
		{"overbooked never negative", 5000, 5000, 2, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.distance, tt.maxMeters, tt.seats, tt.passengers)
			if got != tt.want {
				t.Fatalf("Score(%v, %v, %d, %d) = %d, want %d",
					tt.distance, tt.maxMeters, tt.seats, tt.passengers, got, tt.want)
			}
		})
	}
}

func TestScoreMonotonicInDistance(t *testing.T) {
	prev := 101
	for d := 0.0; d <= 5000; d += 250 {
		got := Score(d, 5000, 4, 1)
		if got > prev {
			t.Fatalf("score increased with distance: %d at %v after %d", got, d, prev)
		}
		prev = got
	}
}

func TestScoreMonotonicInAvailability(t *testing.T) {
	prev := -1
	for seats := 1; seats <= 10; seats++ {
		got := Score(1000, 5000, seats, 0)
		if got < prev {
			t.Fatalf("score decreased with more seats: %d at %d seats after %d", got, seats, prev)
		}
		prev = got
	}
	// beyond five open seats the seat contribution stays capped
	if Score(1000, 5000, 5, 0) != Score(1000, 5000, 9, 0) {
		t.Fatal("seat contribution not capped at five open seats")
	}
}

func TestScoreBounds(t *testing.T) {
	for _, d := range []float64{0, 100, 4999, 5000} {
		for seats := 0; seats <= 12; seats++ {
			for p := 0; p <= seats; p++ {
				got := Score(d, 5000, seats, p)
				if got < 0 || got > 100 {
					t.Fatalf("score out of range: Score(%v, 5000, %d, %d) = %d", d, seats, p, got)
				}
			}
		}
	}
}
