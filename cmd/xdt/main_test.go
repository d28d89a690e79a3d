package main

import (
	"errors"
	"fmt"
	"testing"

	"xdt-go/internal/xdt"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &xdt.Error{Kind: xdt.KindNotFound}, 2},
		{"forbidden", &xdt.Error{Kind: xdt.KindForbidden}, 3},
		{"has dependents", fmt.Errorf("wrapped: %w", &xdt.Error{Kind: xdt.KindHasDependents}), 4},
		{"invalid input", &xdt.Error{Kind: xdt.KindInvalidInput}, 5},
		{"io", &xdt.Error{Kind: xdt.KindIO}, 6},
		{"unexpected", &xdt.Error{Kind: xdt.KindUnexpected}, 1},
		{"plain", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	err := &xdt.Error{Kind: xdt.KindForbidden, Op: "get note", Message: "note 4 is not visible to user 3"}
	want := "error (forbidden): get note: note 4 is not visible to user 3"
	if got := formatError(err); got != want {
		t.Errorf("formatError() = %q, want %q", got, want)
	}
	if got := formatError(errors.New("boom")); got != "error: boom" {
		t.Errorf("formatError() = %q", got)
	}
}

func TestParseUserList(t *testing.T) {
	tests := []struct {
		in      string
		want    []int64
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "2", want: []int64{2}},
		{in: "2, 3,2", want: []int64{2, 3, 2}},
		{in: "2,x", wantErr: true},
		{in: "0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseUserList(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseUserList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("parseUserList() = %v, want %v", got, tt.want)
			}
		})
	}
}
