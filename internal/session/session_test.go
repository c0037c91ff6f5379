package session

import (
	"strings"
	"testing"
)

func TestTagHasPrefix(t *testing.T) {
	tag := Tag("netdissect")
	if !strings.HasPrefix(tag, "netdissect_") {
		t.Fatalf("Tag() = %q, want netdissect_ prefix", tag)
	}
}

func TestNewIsNonEmpty(t *testing.T) {
	if New() == "" {
		t.Fatalf("New() returned an empty string")
	}
}
