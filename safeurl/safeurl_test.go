package safeurl

import (
	"errors"
	"testing"
)

// WHAT: scheme and address-space checks on registry URLs.
// WHY: registered URLs are fetched unattended; private addresses must be
// rejected at registration time.
func TestValidate(t *testing.T) {
	cases := []struct {
		url  string
		want error
	}{
		{"https://www.newegg.com/p/N82E168", nil},
		{"http://example.com/product", nil},
		{"ftp://example.com/product", ErrUnsafeScheme},
		{"file:///etc/passwd", ErrUnsafeScheme},
		{"http://127.0.0.1:8080/admin", ErrSSRF},
		{"http://10.1.2.3/", ErrSSRF},
		{"http://192.168.1.1/", ErrSSRF},
		{"http://172.16.0.1/", ErrSSRF},
		{"http://169.254.169.254/latest/meta-data", ErrSSRF},
		{"http://[::1]/", ErrSSRF},
		{"http://0.0.0.0/", ErrSSRF},
	}
	for _, tc := range cases {
		err := Validate(tc.url)
		if tc.want == nil {
			if err != nil {
				t.Errorf("Validate(%s) = %v, want nil", tc.url, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("Validate(%s) = %v, want %v", tc.url, err, tc.want)
		}
	}
}

func TestValidate_NoHost(t *testing.T) {
	if err := Validate("http:///nohost"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestValidate_LocalhostResolves(t *testing.T) {
	err := Validate("http://localhost:9000/")
	if !errors.Is(err, ErrSSRF) {
		t.Errorf("Validate(localhost) = %v, want ErrSSRF", err)
	}
}
