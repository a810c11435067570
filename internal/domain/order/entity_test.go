// internal/domain/order/entity_test.go
package order

import "testing"

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusShipped, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusDelivered, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusShipped, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
	}

	for _, tc := range cases {
		o := &Order{Status: tc.from}
		if got := o.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("transition %s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range AllStatuses {
		if !IsValidStatus(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if IsValidStatus("PAID") {
		t.Error("expected PAID to be invalid")
	}
	if IsValidStatus("") {
		t.Error("expected empty status to be invalid")
	}
}

func TestContainsProductOf(t *testing.T) {
	o := &Order{Items: []OrderItem{{ProductID: 1}, {ProductID: 2}}}

	if !o.ContainsProductOf(map[uint]struct{}{2: {}, 3: {}}) {
		t.Error("expected overlap with product 2")
	}
	if o.ContainsProductOf(map[uint]struct{}{4: {}}) {
		t.Error("expected no overlap with product 4")
	}
	if o.ContainsProductOf(nil) {
		t.Error("expected no overlap with empty set")
	}
}
