package checksum

import "testing"

func TestSum(t *testing.T) {
	// SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs share a checksum")
	}
}

func TestETagRoundTrip(t *testing.T) {
	sum := Sum([]byte("premises: [A]"))
	for _, header := range []string{ETag(sum), sum, "W/" + ETag(sum), "  " + ETag(sum) + " "} {
		if got := FromETag(header); got != sum {
			t.Errorf("FromETag(%q) = %q", header, got)
		}
	}
	for _, header := range []string{"", "*", `"*"`} {
		if got := FromETag(header); got != "" {
			t.Errorf("FromETag(%q) = %q, want empty", header, got)
		}
	}
}
