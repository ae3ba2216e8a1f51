package auth

import "testing"

func TestCanReviewDuplicates(t *testing.T) {
	tests := []struct {
		name   string
		caller Caller
		want   bool
	}{
		{"admin", Caller{Subject: "u1", Role: RoleAdmin}, true},
		{"reviewer", Caller{Subject: "u2", Role: RoleReviewer}, true},
		{"super_admin", Caller{Subject: "u3", Role: RoleSuperAdmin}, true},
		{"member", Caller{Subject: "u4", Role: RoleMember}, false},
		{"unknown role", Caller{Subject: "u5", Role: "editor"}, false},
		{"anonymous", Anonymous, false},
		{"service identity", Caller{Subject: "batch-job", IsService: true}, true},
		{"service identity without subject", Caller{IsService: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanReviewDuplicates(tt.caller); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestActor(t *testing.T) {
	tests := []struct {
		name   string
		caller Caller
		want   string
	}{
		{"subject wins", Caller{Subject: "u1", IsService: true}, "u1"},
		{"service fallback", Caller{IsService: true}, "service"},
		{"anonymous", Anonymous, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.caller.Actor(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
