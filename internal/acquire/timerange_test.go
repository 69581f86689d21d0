package acquire

import (
	"errors"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "date only",
			input: "2024-05-01",
			want:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339 UTC",
			input: "2024-05-01T10:30:00Z",
			want:  time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339 with offset",
			input: "2024-05-01T12:30:00+02:00",
			want:  time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "without timezone",
			input: " 2024-05-01T10:30:00 ",
			want:  time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "last tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimeRange) {
					t.Errorf("expected ErrInvalidTimeRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolveTimeRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    string
		end      string
		lookback int
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "defaults to lookback before now",
			lookback: 30,
			wantFrom: now.AddDate(0, 0, -30),
			wantTo:   now,
		},
		{
			name:     "non-positive lookback uses default",
			lookback: 0,
			wantFrom: now.AddDate(0, 0, -DefaultLookbackDays),
			wantTo:   now,
		},
		{
			name:     "explicit window",
			start:    "2024-01-01",
			end:      "2024-01-31",
			lookback: 30,
			wantFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "end only",
			end:      "2024-01-31",
			lookback: 10,
			wantFrom: time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "start only",
			start:    "2024-06-01",
			lookback: 30,
			wantFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   now,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTimeRange(tt.start, tt.end, tt.lookback, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.From.Equal(tt.wantFrom) {
				t.Errorf("From: expected %v, got %v", tt.wantFrom, got.From)
			}
			if !got.To.Equal(tt.wantTo) {
				t.Errorf("To: expected %v, got %v", tt.wantTo, got.To)
			}
		})
	}
}

func TestResolveTimeRange_Errors(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{name: "inverted", start: "2024-02-01", end: "2024-01-01"},
		{name: "bad start", start: "yesterday", end: "2024-01-01"},
		{name: "bad end", start: "2024-01-01", end: "2024-13-45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveTimeRange(tt.start, tt.end, 30, now)
			if !errors.Is(err, ErrInvalidTimeRange) {
				t.Errorf("expected ErrInvalidTimeRange, got %v", err)
			}
		})
	}
}
