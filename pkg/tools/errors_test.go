package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	base := errors.New("connection refused")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", base, false},
		{"marked transient", MarkTransient(base), true},
		{"wrapped transient", fmt.Errorf("turn failed: %w", MarkTransient(base)), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"canceled is definitive", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMarkTransientUnwraps(t *testing.T) {
	base := errors.New("503 from upstream")
	marked := MarkTransient(base)
	if !errors.Is(marked, base) {
		t.Error("marked error lost its cause")
	}
	if MarkTransient(nil) != nil {
		t.Error("MarkTransient(nil) must stay nil")
	}
}
