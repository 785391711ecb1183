package workflow

import (
	"testing"
	"time"
)

func TestEndorsementDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		resName string
		address string
		want    string
	}{
		{
			name:    "full name and numbered street",
			resName: "Jane Doe",
			address: "123 Main Street",
			want:    "Resident on Main Street - J.D.",
		},
		{
			name:    "multi segment address",
			resName: "Jane Doe",
			address: "123 Main Street, Springfield, IL",
			want:    "Resident on Main Street - J.D.",
		},
		{
			name:    "leading whitespace before house number",
			resName: "Jane Doe",
			address: "  123 Main Street",
			want:    "Resident on Main Street - J.D.",
		},
		{
			name:    "street without house number",
			resName: "Jane Doe",
			address: "Maple Ave",
			want:    "Resident on Maple Ave - J.D.",
		},
		{
			name:    "single name token",
			resName: "Jane",
			address: "123 Main Street",
			want:    "Resident on Main Street - J.",
		},
		{
			name:    "three name tokens uses first and last",
			resName: "Jane Q Doe",
			address: "123 Main Street",
			want:    "Resident on Main Street - J.D.",
		},
		{
			name:    "no name",
			resName: "",
			address: "123 Main Street",
			want:    "Resident on Main Street",
		},
		{
			name:    "unparseable address falls back",
			resName: "Jane Doe",
			address: "12345",
			want:    "Resident - J.D.",
		},
		{
			name:    "empty address falls back",
			resName: "Jane Doe",
			address: "",
			want:    "Resident - J.D.",
		},
		{
			name:    "nothing at all",
			resName: "",
			address: "",
			want:    "Resident",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EndorsementDisplayName(tt.resName, tt.address); got != tt.want {
				t.Errorf("EndorsementDisplayName(%q, %q) = %q, want %q", tt.resName, tt.address, got, tt.want)
			}
		})
	}
}

func TestElapsedString(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Minute, "1 hour, 30 minutes"},
		{45 * time.Minute, "45 minutes"},
		{1 * time.Minute, "1 minute"},
		{30 * time.Second, "1 minute"},
		{0, "1 minute"},
		{26 * time.Hour, "1 day, 2 hours"},
		{49 * time.Hour, "2 days, 1 hour"},
		{48 * time.Hour, "2 days, 0 hours"},
		{2 * time.Hour, "2 hours, 0 minutes"},
	}
	for _, tt := range tests {
		if got := ElapsedString(tt.d); got != tt.want {
			t.Errorf("ElapsedString(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
