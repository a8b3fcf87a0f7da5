package detector

import (
	"errors"
	"math"
	"testing"
)

func TestHandLandmarks_Valid(t *testing.T) {
	tests := []struct {
		name string
		hand *HandLandmarks
		want bool
	}{
		{name: "nil hand", hand: nil, want: false},
		{name: "empty hand", hand: &HandLandmarks{}, want: false},
		{name: "open palm", hand: ptr(OpenPalmLandmarks()), want: true},
		{name: "partial hand", hand: ptr(PartialLandmarks()), want: false},
		{
			name: "NaN coordinate",
			hand: func() *HandLandmarks {
				h := FistLandmarks()
				h.Points[IndexTip].X = math.NaN()
				return &h
			}(),
			want: false,
		},
		{
			name: "infinite coordinate",
			hand: func() *HandLandmarks {
				h := FistLandmarks()
				h.Points[Wrist].Y = math.Inf(1)
				return &h
			}(),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hand.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandLandmarks_Translate(t *testing.T) {
	hand := OpenPalmLandmarks()
	moved := hand.Translate(0.2, -0.1)

	if len(moved.Points) != NumLandmarks {
		t.Fatalf("expected %d points, got %d", NumLandmarks, len(moved.Points))
	}
	if math.Abs(moved.Points[Wrist].X-0.7) > 1e-9 || math.Abs(moved.Points[Wrist].Y-0.7) > 1e-9 {
		t.Errorf("expected wrist at (0.7, 0.7), got (%f, %f)", moved.Points[Wrist].X, moved.Points[Wrist].Y)
	}
	if hand.Points[Wrist].X != 0.5 {
		t.Error("Translate must not modify the original hand")
	}
	if moved.Handedness != hand.Handedness || moved.Score != hand.Score {
		t.Error("expected handedness and score to be preserved")
	}
}

func TestFirstHand(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		if _, ok := FirstHand(nil); ok {
			t.Error("expected no hand for nil slice")
		}
	})

	t.Run("uses first result only", func(t *testing.T) {
		hands := []HandLandmarks{FistLandmarks(), OpenPalmLandmarks()}
		hand, ok := FirstHand(hands)
		if !ok {
			t.Fatal("expected a hand")
		}
		if hand.Points[IndexTip] != FistLandmarks().Points[IndexTip] {
			t.Error("expected the first hand to be returned")
		}
	})

	t.Run("partial first hand counts as absent", func(t *testing.T) {
		hands := []HandLandmarks{PartialLandmarks(), OpenPalmLandmarks()}
		if _, ok := FirstHand(hands); ok {
			t.Error("expected partial first hand to be treated as absent")
		}
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("full hand", func(t *testing.T) {
		line := `{"hands":[{"points":[` + pointsJSON(NumLandmarks) + `],"handedness":"Left","score":0.8}]}`
		hands, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if !hands[0].Valid() {
			t.Error("expected a valid hand")
		}
		if hands[0].Handedness != "Left" {
			t.Errorf("expected handedness Left, got %s", hands[0].Handedness)
		}
	})

	t.Run("partial hand is kept but invalid", func(t *testing.T) {
		line := `{"hands":[{"points":[` + pointsJSON(5) + `],"handedness":"Right","score":0.6}]}`
		hands, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 1 || len(hands[0].Points) != 5 {
			t.Fatalf("expected 1 hand with 5 points, got %+v", hands)
		}
		if hands[0].Valid() {
			t.Error("expected partial hand to be invalid")
		}
	})

	t.Run("extra points are dropped", func(t *testing.T) {
		line := `{"hands":[{"points":[` + pointsJSON(25) + `]}]}`
		hands, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands[0].Points) != NumLandmarks {
			t.Errorf("expected %d points, got %d", NumLandmarks, len(hands[0].Points))
		}
	})

	t.Run("no hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[]}`))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"hands":[],"error":"model not loaded"}`)); err == nil {
			t.Error("expected error from service error field")
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"hands":`)); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil, 0)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands and records timestamps", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{FistLandmarks()})

		hands, err := mock.Detect(nil, 16)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Errorf("expected 1 hand, got %d", len(hands))
		}
		mock.Detect(nil, 33)

		if mock.Calls() != 2 {
			t.Errorf("expected 2 calls, got %d", mock.Calls())
		}
		ts := mock.Timestamps()
		if len(ts) != 2 || ts[0] != 16 || ts[1] != 33 {
			t.Errorf("expected timestamps [16 33], got %v", ts)
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil, 0)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestPresetLandmarks(t *testing.T) {
	presets := map[string]HandLandmarks{
		"open palm": OpenPalmLandmarks(),
		"fist":      FistLandmarks(),
		"peace":     PeaceLandmarks(),
		"pinch":     PinchLandmarks(),
	}

	for name, hand := range presets {
		t.Run(name, func(t *testing.T) {
			if !hand.Valid() {
				t.Fatal("preset should be a valid hand")
			}
			if hand.Points[Wrist].X != 0.5 || hand.Points[Wrist].Y != 0.8 {
				t.Errorf("expected wrist at (0.5, 0.8), got (%f, %f)", hand.Points[Wrist].X, hand.Points[Wrist].Y)
			}
		})
	}
}

func ptr(h HandLandmarks) *HandLandmarks {
	return &h
}

func pointsJSON(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += `{"x":0.5,"y":0.5,"z":0}`
	}
	return s
}
