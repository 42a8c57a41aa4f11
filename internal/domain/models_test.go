package domain

import (
	"reflect"
	"testing"
)

func strp(s string) *string { return &s }

func TestParseTransportMethod(t *testing.T) {
	cases := map[string]TransportMethod{
		"차량":      MethodVehicle,
		"차":       MethodVehicle,
		" Vehicle ": MethodVehicle,
		"도보":      MethodWalking,
		"walking": MethodWalking,
		"WALK":    MethodWalking,
		"버스":      MethodUnknown,
		"":        MethodUnknown,
	}
	for in, want := range cases {
		if got := ParseTransportMethod(in); got != want {
			t.Errorf("ParseTransportMethod(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestMissingFields_Order(t *testing.T) {
	tests := []struct {
		name string
		f    TaskFields
		want []string
	}{
		{
			name: "all absent",
			f:    TaskFields{},
			want: []string{FieldTime, FieldOrigin, FieldDestination, FieldMethod},
		},
		{
			name: "only method missing",
			f: TaskFields{
				Time:         strp("2025-06-29T14:00:00"),
				LocationFrom: strp("집"),
				LocationTo:   strp("병원"),
			},
			want: []string{FieldMethod},
		},
		{
			name: "unparseable method counts as missing",
			f: TaskFields{
				Time:         strp("2025-06-29T14:00:00"),
				LocationFrom: strp("집"),
				LocationTo:   strp("병원"),
				Method:       strp("버스"),
			},
			want: []string{FieldMethod},
		},
		{
			name: "blank strings count as missing",
			f: TaskFields{
				Time:         strp("  "),
				LocationFrom: strp("집"),
				LocationTo:   strp(""),
				Method:       strp("차량"),
			},
			want: []string{FieldTime, FieldDestination},
		},
		{
			name: "complete",
			f: TaskFields{
				Time:         strp("2025-06-29T14:00:00"),
				LocationFrom: strp("집"),
				LocationTo:   strp("병원"),
				Method:       strp("도보"),
			},
			want: []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.f.MissingFields()
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("MissingFields() = %v; want %v", got, tc.want)
			}
			if tc.f.Complete() != (len(tc.want) == 0) {
				t.Fatalf("Complete() inconsistent with MissingFields()")
			}
		})
	}
}

func TestRequestID_PaddingAndWidening(t *testing.T) {
	cases := map[int64]string{
		1:    "req001",
		42:   "req042",
		999:  "req999",
		1000: "req1000",
	}
	for n, want := range cases {
		if got := RequestID(n); got != want {
			t.Errorf("RequestID(%d) = %q; want %q", n, got, want)
		}
	}
}
