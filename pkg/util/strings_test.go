package util

import (
	"reflect"
	"testing"
)

func TestParseSymbols(t *testing.T) {
	got := ParseSymbols(" xbi, SPY;xbi\tmrna ,, ")
	want := []string{"XBI", "SPY", "MRNA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("", 7) != 7 || ParseIntDefault("x", 7) != 7 || ParseIntDefault("12", 7) != 12 {
		t.Fatalf("unexpected parse result")
	}
}
