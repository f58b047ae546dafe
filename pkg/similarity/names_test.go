package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"OrderService", "Order Service"},
		{"orderService", "order Service"},
		{"HTTPServer", "HTTP Server"},
		{"getHTTPResponseCode", "get HTTP Response Code"},
		{"order_service-api", "order service api"},
		{"S3Bucket", "S3 Bucket"},
		{"Order Service", "Order Service"},
		{"API", "API"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitCases(tt.in))
		})
	}
}

func TestSplitAtSeparators(t *testing.T) {
	assert.Equal(t, []string{"web", "ui", "v2", "api"}, SplitAtSeparators("web-ui.v2_api"))
	assert.Equal(t, []string{"order", "service"}, SplitAtSeparators("  order  service "))
	assert.Empty(t, SplitAtSeparators("--"))
}

func TestWords(t *testing.T) {
	assert.Len(t, Words("order service"), 2)
	assert.Len(t, Words(" order "), 1)
}

func TestAbbreviations_Ambiguate(t *testing.T) {
	a := NewAbbreviations()
	a.Add("PC", "Personal Computer")
	a.Add("DB", "Database", "data base")
	a.Add("DBMS", "Database Management System")

	assert.Equal(t, "PC DB", a.Ambiguate("Personal Computer Database"))
	assert.Equal(t, "PC DB", a.Ambiguate("personal computer DATA BASE"))
	assert.Equal(t, "Oracle DBMS", a.Ambiguate("Oracle Database Management System"))
	assert.Equal(t, "Databases", a.Ambiguate("Databases"), "whole words only")
	assert.Equal(t, "unchanged", a.Ambiguate("unchanged"))
}

func TestAbbreviations_Add(t *testing.T) {
	a := NewAbbreviations()
	a.Add("UI", "User Interface", "user  interface", "")
	a.Add("", "ignored")
	a.Add("API")

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, []string{"UI"}, a.Keys())
	assert.Equal(t, []string{"User Interface"}, a.Meanings("UI"))

	var nilDict *Abbreviations
	assert.Equal(t, 0, nilDict.Len())
	assert.Equal(t, "User Interface", nilDict.Ambiguate("User Interface"))
}

func TestAbbreviations_CompilesOnceAfterBulkLoad(t *testing.T) {
	a := NewAbbreviations()
	for _, abbr := range []string{"API", "DB", "UI", "PC"} {
		a.Add(abbr, abbr+" phrase")
	}
	assert.Nil(t, a.rules, "adding does not compile rules")
	assert.True(t, a.stale)

	assert.Equal(t, "DB", a.Ambiguate("db phrase"))
	assert.Len(t, a.rules, 4)
	assert.False(t, a.stale)

	first := a.rules[0].pattern
	a.Ambiguate("nothing to replace")
	assert.Same(t, first, a.rules[0].pattern, "rules are reused while unchanged")

	a.Add("CLI", "Command Line Interface")
	assert.True(t, a.stale)
	assert.Equal(t, "CLI", a.Ambiguate("command line interface"))
	assert.Len(t, a.rules, 5)
}

func TestCharMatch_Fold(t *testing.T) {
	assert.Equal(t, "PAYMENT", CharMatchExact.Fold("PAYMENT"))
	assert.Equal(t, "payment", CharMatchCaseFold.Fold("PAYMENT"))
	assert.Equal(t, "раyment", CharMatchCaseFold.Fold("Раyment"))
	assert.Equal(t, "payment", CharMatchHomoglyph.Fold("Раyment"))
	assert.Equal(t, "a-b", CharMatchHomoglyph.Fold("a–b"))
}

func TestParseConfusables(t *testing.T) {
	table := parseConfusables("# header\n0430 ; 0061 ; MA # a\n0041 0042 ; 0043 ; MA\nzz ; 0061 ; MA\n\n")
	assert.Equal(t, map[rune]rune{'а': 'a'}, table)
	assert.NotEmpty(t, confusableTable())
}
