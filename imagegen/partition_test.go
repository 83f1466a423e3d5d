package imagegen

import (
	"testing"

	"genfill/core"
	"genfill/host"
)

func TestPartitionSelections(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          []PartitionSelection
	}{
		{
			name:  "landscape",
			width: 2000, height: 1000,
			want: []PartitionSelection{
				{Name: PartitionTopLeft, Bounds: core.NewSelectionBounds(0, 0, 1000, 1000)},
				{Name: PartitionTopRight, Bounds: core.NewSelectionBounds(1000, 0, 2000, 1000)},
			},
		},
		{
			name:  "portrait",
			width: 600, height: 900,
			want: []PartitionSelection{
				{Name: PartitionTopLeft, Bounds: core.NewSelectionBounds(0, 0, 600, 600)},
				{Name: PartitionBottomLeft, Bounds: core.NewSelectionBounds(0, 300, 600, 900)},
			},
		},
		{
			name:  "square",
			width: 512, height: 512,
			want: []PartitionSelection{
				{Name: PartitionFull, Bounds: core.NewSelectionBounds(0, 0, 512, 512)},
			},
		},
		{name: "degenerate", width: 0, height: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PartitionSelections(tt.width, tt.height)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d partitions, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("partition %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPlanDocument(t *testing.T) {
	plan := PlanDocument(host.DocumentInfo{ID: 9, Width: 300, Height: 100})
	if plan.DocName != "Doc 9" {
		t.Errorf("DocName = %q, want Doc 9", plan.DocName)
	}
	if len(plan.Selections) != 2 {
		t.Fatalf("selections = %d, want 2", len(plan.Selections))
	}
	if plan.Selections[1].Bounds.Left != 200 {
		t.Errorf("right partition left = %d, want 200", plan.Selections[1].Bounds.Left)
	}
}
