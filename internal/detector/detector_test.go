package detector

import (
	"testing"

	"github.com/snapshotengine/dbsync/internal/repository"
)

func snap(fullName, hash string) repository.Snapshot {
	return repository.Snapshot{FullName: fullName, Kind: "P", DefinitionHash: hash}
}

func TestDetectBaselineScanYieldsNoChanges(t *testing.T) {
	current := []repository.Snapshot{snap("dbo.A", "h1"), snap("dbo.B", "h2")}
	changes := Detect(nil, current)
	if len(changes) != 0 {
		t.Errorf("expected no changes on a baseline scan, got %d", len(changes))
	}
}

func TestDetectCreated(t *testing.T) {
	previous := []repository.Snapshot{snap("dbo.A", "h1")}
	current := []repository.Snapshot{snap("dbo.A", "h1"), snap("dbo.B", "h2")}
	changes := Detect(previous, current)
	if len(changes) != 1 || changes[0].ChangeType != "Created" || changes[0].FullName != "dbo.B" {
		t.Fatalf("unexpected changes: %+v", changes)
	}
}

func TestDetectModifiedPreservesPreviousCase(t *testing.T) {
	previous := []repository.Snapshot{snap("dbo.MyProc", "h1")}
	current := []repository.Snapshot{snap("DBO.MYPROC", "h2")}
	changes := Detect(previous, current)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].ChangeType != "Modified" {
		t.Errorf("expected Modified, got %s", changes[0].ChangeType)
	}
	if changes[0].FullName != "dbo.MyProc" {
		t.Errorf("expected case preserved from previous side, got %q", changes[0].FullName)
	}
}

func TestDetectDeleted(t *testing.T) {
	previous := []repository.Snapshot{snap("dbo.A", "h1"), snap("dbo.B", "h2")}
	current := []repository.Snapshot{snap("dbo.A", "h1")}
	changes := Detect(previous, current)
	if len(changes) != 1 || changes[0].ChangeType != "Deleted" || changes[0].FullName != "dbo.B" {
		t.Fatalf("unexpected changes: %+v", changes)
	}
}

func TestDetectNoChangeWhenHashesMatch(t *testing.T) {
	previous := []repository.Snapshot{snap("dbo.A", "h1")}
	current := []repository.Snapshot{snap("dbo.A", "h1")}
	changes := Detect(previous, current)
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %d", len(changes))
	}
}

func TestDetectSortedByFullName(t *testing.T) {
	previous := []repository.Snapshot{snap("dbo.Z", "h1")}
	current := []repository.Snapshot{snap("dbo.A", "h1"), snap("dbo.B", "h1")}
	changes := Detect(previous, current)
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}
	for i := 1; i < len(changes); i++ {
		if changes[i-1].FullName > changes[i].FullName {
			t.Errorf("changes not sorted: %v before %v", changes[i-1].FullName, changes[i].FullName)
		}
	}
}
