package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestSizeSetRoundTripAndContains(t *testing.T) {
	set := NewSizeSet(" s", "M", "m", "", "XL")
	if len(set) != 3 {
		t.Fatalf("expected de-duplicated sizes, got %v", set)
	}
	if !set.Contains("xl") || set.Contains("XXL") {
		t.Fatalf("unexpected contains result for %v", set)
	}

	value, err := set.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var decoded SizeSet
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(decoded) != 3 || decoded[0] != "S" {
		t.Fatalf("unexpected decoded set %v", decoded)
	}
}

func TestSizeSetScanLegacyCSV(t *testing.T) {
	var set SizeSet
	if err := set.Scan([]byte("S, M ,L")); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !set.Contains("M") || len(set) != 3 {
		t.Fatalf("unexpected set %v", set)
	}
}

func TestSizeSetScanRejectsUnknownType(t *testing.T) {
	var set SizeSet
	if err := set.Scan(42); err == nil {
		t.Fatal("expected error for int input")
	}
}

func TestImageListDropsBlankEntries(t *testing.T) {
	var list ImageList
	if err := list.Scan(`["front.jpg"," ","back.jpg"]`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(list) != 2 || list.Cover() != "front.jpg" {
		t.Fatalf("unexpected list %v", list)
	}
	if (ImageList{}).Cover() != "" {
		t.Fatal("empty list should have no cover")
	}
}

func TestPriceSnapshotTotal(t *testing.T) {
	snapshot := PriceSnapshot{
		{ProductID: uuid.New(), Name: "Kurta", UnitPrice: decimal.NewFromInt(999), Quantity: 2},
		{ProductID: uuid.New(), Name: "Scarf", UnitPrice: decimal.RequireFromString("249.50"), Quantity: 1, Size: "M"},
	}
	if got := snapshot.Total(); !got.Equal(decimal.RequireFromString("2247.50")) {
		t.Fatalf("unexpected total %s", got)
	}

	value, err := snapshot.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var decoded PriceSnapshot
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !decoded.Total().Equal(snapshot.Total()) || decoded[1].Size != "M" {
		t.Fatalf("decoded snapshot mismatch: %+v", decoded)
	}
}
