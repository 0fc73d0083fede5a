package services

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/credkeeper/internal/common"
)

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  A@Example.Com\t"); got != "a@example.com" {
		t.Fatalf("normalizeEmail = %q", got)
	}
}

func TestValidatePassword_Bounds(t *testing.T) {
	cases := []struct {
		n  int
		ok bool
	}{{3, false}, {4, true}, {72, true}, {73, false}}
	for _, c := range cases {
		pw, ok := strings.Repeat("p", c.n), c.ok
		err := validatePassword(pw)
		if ok && err != nil {
			t.Fatalf("len %d: unexpected error %v", len(pw), err)
		}
		if !ok && !common.IsKind(err, common.KindValidation) {
			t.Fatalf("len %d: want validation error, got %v", len(pw), err)
		}
	}
}

func TestInternal_KeepsDomainKind(t *testing.T) {
	domain := noPendingReset("u1")
	if got := common.KindOf(internal("op", domain)); got != common.KindNoPendingReset {
		t.Fatalf("kind = %s", got)
	}
}
