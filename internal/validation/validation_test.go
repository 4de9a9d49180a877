package validation

import (
	"errors"
	"strings"
	"testing"

	"tribeboard/internal/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFamilyCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "six characters", code: "ABC123", wantErr: false},
		{name: "seven characters", code: "MAW2024", wantErr: false},
		{name: "eight characters", code: "ABCD1234", wantErr: false},
		{name: "lower case letters", code: "maw2024", wantErr: false},
		{name: "empty", code: "", wantErr: true},
		{name: "five characters", code: "ABC12", wantErr: true},
		{name: "nine characters", code: "ABCDE1234", wantErr: true},
		{name: "hyphen", code: "MAW-2024", wantErr: true},
		{name: "space", code: "MAW 202", wantErr: true},
		{name: "non ascii letter", code: "MÄW2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFamilyCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFamilyCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			var vErr ValidationError
			if err != nil && !errors.As(err, &vErr) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestNormalizeFamilyCode(t *testing.T) {
	if got := NormalizeFamilyCode("  maw2024 "); got != "MAW2024" {
		t.Errorf("NormalizeFamilyCode() = %q, want MAW2024", got)
	}
}

func TestValidateFamilyName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid name", input: "The Mawsons", wantErr: false},
		{name: "empty name", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "too short", input: "M", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 51), wantErr: true},
		{name: "apostrophe", input: "O'Briens", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFamilyName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFamilyName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "single letter", input: "J", wantErr: false},
		{name: "full name", input: "Mary-Jane Watson", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "too long", input: strings.Repeat("x", 51), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDisplayName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRole(t *testing.T) {
	tests := []struct {
		input   string
		want    models.Role
		wantErr bool
	}{
		{input: "parent_admin", want: models.RoleParentAdmin},
		{input: " Adult ", want: models.RoleAdult},
		{input: "KID", want: models.RoleKid},
		{input: "visitor", want: models.RoleVisitor},
		{input: "owner", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateRole(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateStatus(t *testing.T) {
	for _, input := range []string{"active", "invited", "removed"} {
		if _, err := ValidateStatus(input); err != nil {
			t.Errorf("ValidateStatus(%q) error = %v", input, err)
		}
	}
	if _, err := ValidateStatus("banned"); err == nil {
		t.Error("ValidateStatus(banned) should fail")
	}
}
