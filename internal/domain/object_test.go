package domain

import "testing"

func TestNormalizeDefinitionIdempotent(t *testing.T) {
	cases := []string{
		"CREATE PROCEDURE foo()\r\nBEGIN\r\n  SELECT 1;  \r\nEND",
		"line1\n\n\nline2   \n",
		"",
		"already\nnormal",
	}
	for _, c := range cases {
		once := NormalizeDefinition(c)
		twice := NormalizeDefinition(once)
		if once != twice {
			t.Errorf("NormalizeDefinition not idempotent for %q: once=%q twice=%q", c, once, twice)
		}
	}
}

func TestNormalizeDefinitionDropsBlankLinesAndCRLF(t *testing.T) {
	got := NormalizeDefinition("SELECT 1;\r\n\r\n  \r\nSELECT 2;   ")
	want := "SELECT 1;\nSELECT 2;"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefinitionHashEqualForEquivalentDefinitions(t *testing.T) {
	a := "SELECT 1;\r\nSELECT 2;  "
	b := "SELECT 1;\nSELECT 2;"
	if DefinitionHash(a) != DefinitionHash(b) {
		t.Errorf("expected equal hashes for normalization-equivalent definitions")
	}
}

func TestDefinitionHashDiffersForDifferentBodies(t *testing.T) {
	if DefinitionHash("SELECT 1") == DefinitionHash("SELECT 2") {
		t.Errorf("expected different hashes for different bodies")
	}
}

func TestNormalizeKeyCaseInsensitive(t *testing.T) {
	if NormalizeKey("dbo.MyProc") != NormalizeKey("DBO.myproc") {
		t.Errorf("NormalizeKey should be case-insensitive")
	}
}

func TestShortCodeRoundTrip(t *testing.T) {
	kinds := []ObjectKind{KindProcedure, KindView, KindScalarFunction, KindTableFunction, KindInlineFunction}
	for _, k := range kinds {
		if KindFromShortCode(k.ShortCode()) != k {
			t.Errorf("round trip failed for %v", k)
		}
	}
}

func TestFullName(t *testing.T) {
	o := ProgrammableObject{Schema: "dbo", Name: "GetUsers"}
	if o.FullName() != "dbo.GetUsers" {
		t.Errorf("got %q", o.FullName())
	}
}
