package track

import (
	"testing"

	"github.com/mseidel/trak/internal/geometry"
)

func solid(id int, windows ...geometry.TimeWindow) geometry.Solid {
	return geometry.Solid{ID: id, IgnoreTimes: windows}
}

func newStack(ids ...int) *Occupancy {
	contained := make([]geometry.ContainedSolid, len(ids))
	for i, id := range ids {
		contained[i] = geometry.ContainedSolid{Solid: solid(id)}
	}
	return NewOccupancy(contained)
}

func TestOccupancy_TopIsHighestID(t *testing.T) {
	o := newStack(3, 1, 7, 2)
	if got := o.Top(0).ID; got != 7 {
		t.Errorf("Top = %d, want 7", got)
	}
	if o.Len() != 4 {
		t.Errorf("Len = %d, want 4", o.Len())
	}
}

func TestOccupancy_InsertRemove(t *testing.T) {
	o := newStack(1)

	if err := o.Insert(solid(5)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !o.Contains(5) {
		t.Error("stack should contain 5 after insert")
	}
	if err := o.Insert(solid(5)); err == nil {
		t.Error("double insert should fail")
	}

	if err := o.Remove(5); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if o.Contains(5) {
		t.Error("stack should not contain 5 after remove")
	}
	if err := o.Remove(5); err == nil {
		t.Error("removing an absent solid should fail")
	}
}

func TestOccupancy_InsertKeepsOrder(t *testing.T) {
	o := newStack(1, 7)
	if err := o.Insert(solid(4)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	want := []int{1, 4, 7}
	got := o.IDs()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs = %v, want %v", got, want)
		}
	}
}

func TestOccupancy_TopSkipsIgnored(t *testing.T) {
	contained := []geometry.ContainedSolid{
		{Solid: solid(1)},
		{Solid: solid(5, geometry.TimeWindow{Start: 0, End: 10})},
		{Solid: solid(3)},
	}
	o := NewOccupancy(contained)

	if got := o.Top(5).ID; got != 3 {
		t.Errorf("Top during ignore window = %d, want 3", got)
	}
	if got := o.Top(10).ID; got != 5 {
		t.Errorf("Top after ignore window = %d, want 5", got)
	}
}

func TestOccupancy_Below(t *testing.T) {
	contained := []geometry.ContainedSolid{
		{Solid: solid(1)},
		{Solid: solid(3, geometry.TimeWindow{Start: 0, End: 10})},
		{Solid: solid(5)},
		{Solid: solid(7)},
	}
	o := NewOccupancy(contained)

	if got := o.Below(0, 7).ID; got != 5 {
		t.Errorf("Below(7) = %d, want 5", got)
	}
	if got := o.Below(0, 5).ID; got != 1 {
		t.Errorf("Below(5) during ignore window = %d, want 1", got)
	}
	if got := o.Below(20, 5).ID; got != 3 {
		t.Errorf("Below(5) after ignore window = %d, want 3", got)
	}
}
