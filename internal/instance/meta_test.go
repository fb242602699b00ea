package instance

import (
	"testing"

	"github.com/xoxserver/xox-server/internal/errors"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Valheim-Server", "Valheim-Server"},
		{"  Test World  ", "Test-World"},
		{"My   big\tworld", "My-big-world"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"Test-World", false},
		{"XoX-DST", false},
		{"world_2", false},
		{"", true},
		{`say"hi`, true},
		{"it's", true},
		{"a;rm", true},
		{"$HOME", true},
		{"Test.World", true},
		{"srv:1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrValidation) {
				t.Errorf("ValidateName(%q) error should be a validation error, got %v", tt.name, err)
			}
		})
	}
}

func TestMeta_Label(t *testing.T) {
	m := Meta{ExternalID: "a1b2", Name: "Test-World"}
	if got := m.Label(); got != "(a1b2) Test-World" {
		t.Errorf("Label() = %q, want %q", got, "(a1b2) Test-World")
	}
}

func TestIsIdentityColumn(t *testing.T) {
	for _, c := range []string{"id", "timestamp", "uuid"} {
		if !IsIdentityColumn(c) {
			t.Errorf("IsIdentityColumn(%q) = false, want true", c)
		}
	}
	if IsIdentityColumn("name") {
		t.Error("IsIdentityColumn(name) = true, want false")
	}
}
