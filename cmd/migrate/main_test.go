package main

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{nil, "up", false},
		{[]string{"up"}, "up", false},
		{[]string{"down"}, "down", false},
		{[]string{"status"}, "status", false},
		{[]string{"version"}, "version", false},
		{[]string{"redo"}, "", true},
		{[]string{"up", "down"}, "", true},
	}
	for _, tc := range tests {
		got, err := parseCommand(tc.args)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseCommand(%v) error = %v, wantErr %v", tc.args, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("parseCommand(%v) = %q, want %q", tc.args, got, tc.want)
		}
	}
}
