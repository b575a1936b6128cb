package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotLine is one frozen, priced cart line.
type SnapshotLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
}

// LineTotal returns unit price times quantity.
func (l SnapshotLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PriceSnapshot is the immutable list of lines captured when checkout begins.
type PriceSnapshot []SnapshotLine

// Total sums every line total.
func (p PriceSnapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Value marshals the snapshot into JSON.
func (p PriceSnapshot) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return jsonValue([]SnapshotLine(p))
}

// Scan decodes JSON into the snapshot.
func (p *PriceSnapshot) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	raw, err := jsonBytes("price snapshot", value)
	if err != nil {
		return err
	}
	var decoded []SnapshotLine
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*p = decoded
	return nil
}
