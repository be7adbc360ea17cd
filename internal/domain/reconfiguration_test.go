package domain

import (
	"testing"
	"time"
)

func TestReconfigurationActionable(t *testing.T) {
	edd := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		rec  Reconfiguration
		want bool
	}{
		{
			name: "sls alone",
			rec:  Reconfiguration{OrderID: 1, SLS: true},
			want: true,
		},
		{
			name: "external disruption alone",
			rec: Reconfiguration{
				OrderID:  2,
				External: &ExternalDisruption{DisruptionType: "FLOOD", Severity: 0.8},
			},
			want: true,
		},
		{
			name: "both delay bounds positive",
			rec: Reconfiguration{
				OrderID: 3,
				Delay:   &Delay{TotalLower: 2, TotalUpper: 6, EDD: edd},
			},
			want: true,
		},
		{
			name: "only upper bound positive",
			rec: Reconfiguration{
				OrderID: 4,
				Delay:   &Delay{TotalLower: -1, TotalUpper: 3, EDD: edd},
			},
			want: false,
		},
		{
			name: "on time order",
			rec: Reconfiguration{
				OrderID: 5,
				Delay:   &Delay{TotalLower: -4, TotalUpper: -1, EDD: edd},
			},
			want: false,
		},
		{
			name: "no delay no cause",
			rec:  Reconfiguration{OrderID: 6},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.Actionable(); got != tc.want {
				t.Fatalf("Actionable() = %v, want %v", got, tc.want)
			}
		})
	}
}
