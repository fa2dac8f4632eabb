package main

import (
	"testing"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		input   string
		want    targets
		wantErr bool
	}{
		{"postgres", targets{postgres: true}, false},
		{"pg, bq", targets{postgres: true, bigquery: true}, false},
		{"BigQuery", targets{bigquery: true}, false},
		{"all", targets{postgres: true, bigquery: true}, false},
		{"", targets{}, true},
		{"mysql", targets{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTargets(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTargets() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseTargets() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
