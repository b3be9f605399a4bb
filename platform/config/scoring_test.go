package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultScoringPolicyIsValid(t *testing.T) {
	if err := DefaultScoringPolicy().Validate(); err != nil {
		t.Fatalf("default policy must validate: %v", err)
	}
}

func TestScoringPolicyValidate(t *testing.T) {
	cases := []struct {
		name    string
		policy  ScoringPolicy
		wantErr bool
	}{
		{"defaults", DefaultScoringPolicy(), false},
		{"custom", ScoringPolicy{AcceptPoints: 20, RejectPoints: -1, ExpirePoints: -10, MaxActiveLeads: 3}, false},
		{"zero accept", ScoringPolicy{AcceptPoints: 0, RejectPoints: -2, ExpirePoints: -5}, true},
		{"positive reject", ScoringPolicy{AcceptPoints: 10, RejectPoints: 2, ExpirePoints: -5}, true},
		{"expiry cheaper than reject", ScoringPolicy{AcceptPoints: 10, RejectPoints: -5, ExpirePoints: -2}, true},
		{"expiry equal to reject", ScoringPolicy{AcceptPoints: 10, RejectPoints: -5, ExpirePoints: -5}, true},
		{"negative cap", ScoringPolicy{AcceptPoints: 10, RejectPoints: -2, ExpirePoints: -5, MaxActiveLeads: -1}, true},
	}
	for _, tc := range cases {
		err := tc.policy.Validate()
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestLoadScoringPolicyEmptyPathUsesDefaults(t *testing.T) {
	policy, err := loadScoringPolicy("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if policy != DefaultScoringPolicy() {
		t.Fatalf("expected defaults, got %+v", policy)
	}
}

func TestLoadScoringPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	content := "acceptPoints: 15\nrejectPoints: -3\nexpirePoints: -8\nmaxActiveLeads: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	policy, err := loadScoringPolicy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := ScoringPolicy{AcceptPoints: 15, RejectPoints: -3, ExpirePoints: -8, MaxActiveLeads: 4}
	if policy != want {
		t.Fatalf("expected %+v, got %+v", want, policy)
	}
}

func TestLoadScoringPolicyPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	if err := os.WriteFile(path, []byte("acceptPoints: 25\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	policy, err := loadScoringPolicy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if policy.AcceptPoints != 25 {
		t.Fatalf("expected overridden accept points, got %d", policy.AcceptPoints)
	}
	defaults := DefaultScoringPolicy()
	if policy.RejectPoints != defaults.RejectPoints || policy.ExpirePoints != defaults.ExpirePoints {
		t.Fatalf("expected untouched defaults, got %+v", policy)
	}
}

func TestLoadScoringPolicyMissingFile(t *testing.T) {
	if _, err := loadScoringPolicy(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
