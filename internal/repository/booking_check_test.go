package repository

import (
	"reflect"
	"testing"
)

func TestFindAlreadyBooked(t *testing.T) {
	booked := map[uint64]struct{}{2: {}, 5: {}, 9: {}}

	cases := []struct {
		name       string
		candidates []uint64
		want       []uint64
	}{
		{"no overlap", []uint64{1, 3, 4}, nil},
		{"partial overlap", []uint64{1, 2, 3, 5}, []uint64{2, 5}},
		{"full overlap", []uint64{9, 5, 2}, []uint64{9, 5, 2}},
		{"duplicate candidates reported once", []uint64{2, 2, 2}, []uint64{2}},
		{"empty candidates", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FindAlreadyBooked(tc.candidates, booked)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("FindAlreadyBooked(%v) = %v, want %v", tc.candidates, got, tc.want)
			}
		})
	}
}

func TestFindAlreadyBookedEmptySet(t *testing.T) {
	if got := FindAlreadyBooked([]uint64{1, 2, 3}, nil); got != nil {
		t.Fatalf("expected nil against empty booked set, got %v", got)
	}
}
