package main

import (
	"bytes"
	"testing"

	"github.com/juju/errors"
)

func TestCheckDate(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"", false},
		{"2024-01-10", false},
		{"10-01-2024", true},
		{"2024-02-30", true},
		{"today", true},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			err := checkDate(tt.date)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkDate(%q) error = %v, wantErr %v", tt.date, err, tt.wantErr)
			}
			if err != nil && !errors.IsNotValid(err) {
				t.Errorf("error %v is not a NotValid error", err)
			}
		})
	}
}

func TestBadDateRejectedBeforeConnecting(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"export", []string{"export", "--group", "3A", "--date", "10-01-2024"}},
		{"report send", []string{"report", "send", "--date", "2024/01/10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(tt.args)
			t.Cleanup(func() {
				exportDate, reportDate = "", ""
				rootCmd.SetArgs(nil)
			})

			err := rootCmd.Execute()
			if !errors.IsNotValid(err) {
				t.Fatalf("Execute() error = %v, want a NotValid date error", err)
			}
		})
	}
}
