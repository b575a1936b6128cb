package validators

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

func TestParseUUIDListSkipsBlanks(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	req := httptest.NewRequest("GET", "/?ids="+a.String()+",,%20"+b.String(), nil)

	ids, err := ParseUUIDList(req, "ids", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestParseUUIDListRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":     "/?ids=",
		"malformed": "/?ids=nope",
		"too many":  "/?ids=" + uuid.NewString() + "," + uuid.NewString(),
	}
	for name, target := range cases {
		_, err := ParseUUIDList(httptest.NewRequest("GET", target, nil), "ids", 1)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestParsePageRejectsOutOfRange(t *testing.T) {
	_, err := ParsePage(httptest.NewRequest("GET", "/?limit=500", nil), 25, 100)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	page, err := ParsePage(httptest.NewRequest("GET", "/?offset=10", nil), 25, 100)
	if err != nil || page.Limit != 25 || page.Offset != 10 {
		t.Fatalf("unexpected page %+v err %v", page, err)
	}
}
