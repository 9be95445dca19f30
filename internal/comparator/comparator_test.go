package comparator

import "testing"

func entry(fullName, hash string, id uint64) DictEntry {
	return DictEntry{FullName: fullName, Kind: "P", DefinitionHash: hash, ID: id}
}

func TestCompareDictionariesClassification(t *testing.T) {
	source := map[string]DictEntry{
		"dbo.a": entry("dbo.A", "h1", 1),
		"dbo.b": entry("dbo.B", "h2", 2),
		"dbo.c": entry("dbo.C", "h3", 3),
	}
	target := map[string]DictEntry{
		"dbo.a": entry("dbo.A", "h1", 11), // equal
		"dbo.b": entry("dbo.B", "hX", 12), // modified
		"dbo.d": entry("dbo.D", "h4", 13), // only in target
	}

	result := CompareDictionaries(source, target, nil, "")
	byName := make(map[string]Item, len(result.Items))
	for _, item := range result.Items {
		byName[item.FullName] = item
	}

	if byName["dbo.A"].Status != "Equal" {
		t.Errorf("dbo.A: expected Equal, got %s", byName["dbo.A"].Status)
	}
	if byName["dbo.B"].Status != "Modified" {
		t.Errorf("dbo.B: expected Modified, got %s", byName["dbo.B"].Status)
	}
	if byName["dbo.C"].Status != "OnlyInSource" {
		t.Errorf("dbo.C: expected OnlyInSource, got %s", byName["dbo.C"].Status)
	}
	if byName["dbo.D"].Status != "OnlyInTarget" {
		t.Errorf("dbo.D: expected OnlyInTarget, got %s", byName["dbo.D"].Status)
	}
	if len(result.Items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(result.Items))
	}
}

func TestCompareDictionariesOrderedByStatusThenName(t *testing.T) {
	source := map[string]DictEntry{"dbo.z": entry("dbo.Z", "h1", 1)}
	target := map[string]DictEntry{"dbo.a": entry("dbo.A", "h2", 2)}
	result := CompareDictionaries(source, target, nil, "")
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].Status != "OnlyInSource" || result.Items[1].Status != "OnlyInTarget" {
		t.Errorf("unexpected order: %+v", result.Items)
	}
}

func TestCompareDictionariesKindFilter(t *testing.T) {
	source := map[string]DictEntry{
		"dbo.a": {FullName: "dbo.A", Kind: "P", DefinitionHash: "h1"},
		"dbo.b": {FullName: "dbo.B", Kind: "V", DefinitionHash: "h2"},
	}
	result := CompareDictionaries(source, map[string]DictEntry{}, nil, "V")
	if len(result.Items) != 1 || result.Items[0].FullName != "dbo.B" {
		t.Fatalf("expected kind filter to keep only dbo.B, got %+v", result.Items)
	}
}

func TestCompareDictionariesExcludesCustomSetFromTarget(t *testing.T) {
	source := map[string]DictEntry{
		"dbo.a": entry("dbo.A", "h1", 1),
	}
	target := map[string]DictEntry{
		"dbo.a":           entry("dbo.A", "h1", 11),
		"dbo.customthing": entry("dbo.CustomThing", "h9", 12),
	}
	customSet := map[string]bool{"dbo.customthing": true}
	result := CompareDictionaries(source, target, customSet, "")
	if len(result.Items) != 1 {
		t.Fatalf("expected custom key to be excluded from target-only reporting, got %+v", result.Items)
	}
	if result.Items[0].Status != "Equal" {
		t.Errorf("expected dbo.A to be Equal, got %s", result.Items[0].Status)
	}
}

func TestDiffLinesCounts(t *testing.T) {
	a := "line1\nline2\nline3"
	b := "line1\nlineX\nline3\nline4"
	result := diffLines(a, b)
	if result.RemovedLines != 1 {
		t.Errorf("expected 1 removed line, got %d", result.RemovedLines)
	}
	if result.AddedLines != 2 {
		t.Errorf("expected 2 added lines, got %d", result.AddedLines)
	}
}

func TestDiffLinesIdenticalProducesNoChanges(t *testing.T) {
	result := diffLines("same\ntext", "same\ntext")
	if result.AddedLines != 0 || result.RemovedLines != 0 {
		t.Errorf("expected no changes, got added=%d removed=%d", result.AddedLines, result.RemovedLines)
	}
}
