package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_VALUE", "  shirts ")
	if got := Get("STOREFRONT_TEST_VALUE", "x"); got != "shirts" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	t.Setenv("STOREFRONT_TEST_VALUE", "   ")
	if got := Get("STOREFRONT_TEST_VALUE", "x"); got != "x" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_FLAG", "true")
	if !Bool("STOREFRONT_TEST_FLAG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("STOREFRONT_TEST_FLAG", "maybe")
	if !Bool("STOREFRONT_TEST_FLAG", true) {
		t.Fatal("malformed value should fall back")
	}
}

func TestOneOf(t *testing.T) {
	t.Setenv(LogFormatKey, "CONSOLE")
	if got := OneOf(LogFormatKey, "json", "json", "console"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
	t.Setenv(LogFormatKey, "xml")
	if got := OneOf(LogFormatKey, "json", "json", "console"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
