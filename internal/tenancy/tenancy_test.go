package tenancy

import (
	"testing"

	"github.com/snapshotengine/dbsync/internal/config"
)

func TestFromConfigBuildsRegistry(t *testing.T) {
	cfg := &config.Config{
		Tenants: []config.TenantConfig{
			{
				ID: 1, Code: "ACME", Name: "Acme Corp",
				CustomObjects: []string{"dbo.CustomThing"},
				Environments: map[string]config.ConnConfig{
					"Production": {Type: "mysql", Host: "h", Port: "3306"},
				},
			},
		},
	}
	reg := FromConfig(cfg)

	tenant, ok := reg.ByID(1)
	if !ok {
		t.Fatalf("expected tenant 1 to be found")
	}
	if tenant.Code != "ACME" {
		t.Errorf("got code %q", tenant.Code)
	}
	if !tenant.CustomObjects["dbo.customthing"] {
		t.Errorf("expected custom object key to be normalized to lowercase")
	}
	if len(reg.All()) != 1 {
		t.Errorf("expected 1 tenant, got %d", len(reg.All()))
	}
}

func TestIsCustomByConventionMatchesTenantCode(t *testing.T) {
	if !IsCustomByConvention("ACME", "usp_AcmeReport") {
		t.Errorf("expected match on tenant code substring")
	}
	if IsCustomByConvention("ACME", "usp_StandardReport") {
		t.Errorf("did not expect a match")
	}
	if IsCustomByConvention("", "anything") {
		t.Errorf("empty tenant code must never match")
	}
}
