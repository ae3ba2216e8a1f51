package domain

import "testing"

func TestDismissalSetKey(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"sorted", []string{"a", "b"}, "a,b"},
		{"unsorted", []string{"b", "a"}, "a,b"},
		{"duplicates collapse", []string{"b", "a", "b", "a"}, "a,b"},
		{"single", []string{"x"}, "x"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DismissalSetKey(tt.ids); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDismissalSetKeyOrderIndependence(t *testing.T) {
	a := DismissalSetKey([]string{"l1", "l2", "l3"})
	b := DismissalSetKey([]string{"l3", "l1", "l2"})
	if a != b {
		t.Errorf("expected identical keys for the same set, got %q and %q", a, b)
	}

	superset := DismissalSetKey([]string{"l1", "l2", "l3", "l4"})
	if superset == a {
		t.Error("a superset must produce a different key")
	}
}
