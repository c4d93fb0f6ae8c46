package space

import (
	"context"
	"strings"
	"testing"

	"shuttle/internal/controller"
)

type listClient struct {
	items []controller.Item
}

func (c *listClient) Items(ctx context.Context, fields ...controller.Field) ([]controller.Item, error) {
	return c.items, nil
}

func (c *listClient) Item(ctx context.Context, id controller.ID, fields ...controller.Field) (*controller.Item, error) {
	return nil, nil
}

func (c *listClient) IsActive(ctx context.Context, id controller.ID) (bool, error) {
	return false, nil
}

func (c *listClient) Stop(ctx context.Context, id controller.ID) error { return nil }

func (c *listClient) Start(ctx context.Context, id controller.ID) error { return nil }

func (c *listClient) SetDirectory(ctx context.Context, id controller.ID, dir string) error {
	return nil
}

func id(ch string) controller.ID {
	return controller.ID(strings.Repeat(ch, 40))
}

func TestCandidatesFilterAndOrder(t *testing.T) {
	client := &listClient{items: []controller.Item{
		{ID: id("a"), Name: "middle", Directory: "/fast/middle", Complete: true, CompletedAt: 2000},
		{ID: id("b"), Name: "oldest", Directory: "/fast/oldest", Complete: true, CompletedAt: 1000},
		{ID: id("c"), Name: "newest", Directory: "/fast/newest", Complete: true, CompletedAt: 3000},
		{ID: id("d"), Name: "incomplete", Directory: "/fast/incomplete", Complete: false, CompletedAt: 500},
		{ID: id("e"), Name: "elsewhere", Directory: "/capacity/tv/done", Complete: true, CompletedAt: 100},
		{ID: id("f"), Name: "no-timestamp", Directory: "/fast/odd", Complete: true, CompletedAt: 0},
	}}

	selector := NewSelector(client, "/fast", nil)
	candidates, err := selector.Candidates(context.Background())
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}

	var names []string
	for _, c := range candidates {
		names = append(names, c.Item.Name)
	}
	want := []string{"oldest", "middle", "newest"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestCandidatesSizeConversion(t *testing.T) {
	client := &listClient{items: []controller.Item{
		{ID: id("a"), Name: "big", Directory: "/fast/big", Complete: true,
			CompletedAt: 1000, SizeBytes: 10 << 30},
	}}
	selector := NewSelector(client, "/fast", nil)
	candidates, err := selector.Candidates(context.Background())
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("len = %d, want 1", len(candidates))
	}
	if candidates[0].SizeGiB != 10 {
		t.Fatalf("size = %v GiB, want 10", candidates[0].SizeGiB)
	}
}

func TestAvailableGiB(t *testing.T) {
	free, ok := AvailableGiB(t.TempDir())
	if !ok {
		t.Fatal("statfs on a temp dir must succeed")
	}
	if free < 0 {
		t.Fatalf("free = %v, want non-negative", free)
	}
}
