package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1998", want: 199800},
		{in: "999.50", want: 99950},
		{in: "0.01", want: 1},
		{in: "10.005", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ToMinorUnits(decimal.RequireFromString(tc.in))
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.in, tc.want, got)
		}
	}
	if !FromMinorUnits(199800).Equal(decimal.RequireFromString("1998")) {
		t.Fatalf("expected round trip to rupees")
	}
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")
	if !VerifySignature("secret", "order_1", "pay_1", sig) {
		t.Fatalf("expected valid signature")
	}
	if !VerifySignature("secret", "order_1", "pay_1", " "+sig+" ") {
		t.Fatalf("expected surrounding whitespace to be ignored")
	}
	if VerifySignature("secret", "order_1", "pay_2", sig) {
		t.Fatalf("expected signature for another payment to fail")
	}
	if VerifySignature("other", "order_1", "pay_1", sig) {
		t.Fatalf("expected signature under another secret to fail")
	}
	if VerifySignature("secret", "order_1", "pay_1", "") {
		t.Fatalf("expected empty signature to fail")
	}
}

func TestFakeCreateIntentAndVerify(t *testing.T) {
	fake := NewFake("s3cret")
	intent, err := fake.CreateIntent(context.Background(), decimal.RequireFromString("1998"), enums.CurrencyINR, "receipt-1")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.GatewayOrderID == "" || !intent.Amount.Equal(decimal.RequireFromString("1998")) {
		t.Fatalf("unexpected intent %+v", intent)
	}
	sig := fake.SignPayment(intent.GatewayOrderID, "pay_1")
	if !fake.Verify(intent.GatewayOrderID, "pay_1", sig) {
		t.Fatalf("expected fake signature to verify")
	}
	if fake.Calls() != 1 {
		t.Fatalf("expected one call, got %d", fake.Calls())
	}
}

func TestFakeFailWith(t *testing.T) {
	fake := NewFake("")
	fake.FailWith(errors.New("gateway down"))
	_, err := fake.CreateIntent(context.Background(), decimal.RequireFromString("10"), enums.CurrencyINR, "r")
	if !pkgerrors.IsCode(err, pkgerrors.CodeGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got %v", err)
	}
}
