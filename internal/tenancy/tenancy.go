// Package tenancy loads the tenant/environment registry the Scanner needs:
// a concrete source for "all tenants x environments" plus the per-tenant
// custom-object registry used to compute isCustom during a scan
// (SPEC_FULL.md §2.3, spec.md §4.4 step 6).
package tenancy

import (
	"strings"

	"github.com/snapshotengine/dbsync/internal/config"
	"github.com/snapshotengine/dbsync/internal/domain"
)

// Tenant is one configured tenant and its environments.
type Tenant struct {
	ID            uint
	Code          string
	Name          string
	CustomObjects map[string]bool // normalized fullName -> true
	Environments  map[domain.Environment]domain.ConnectionDescriptor
}

// Registry is the in-memory tenant/environment catalog loaded from config.
type Registry struct {
	tenants []Tenant
}

// FromConfig builds a Registry from the config's Tenants section.
func FromConfig(cfg *config.Config) *Registry {
	tenants := make([]Tenant, 0, len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		custom := make(map[string]bool, len(t.CustomObjects))
		for _, fullName := range t.CustomObjects {
			custom[domain.NormalizeKey(fullName)] = true
		}
		envs := make(map[domain.Environment]domain.ConnectionDescriptor, len(t.Environments))
		for envName, conn := range t.Environments {
			envs[domain.Environment(envName)] = domain.ConnectionDescriptor{
				Type:     conn.Type,
				Host:     conn.Host,
				Port:     conn.Port,
				Username: conn.Username,
				Password: conn.Password,
				Database: conn.Database,
			}
		}
		tenants = append(tenants, Tenant{
			ID:            t.ID,
			Code:          t.Code,
			Name:          t.Name,
			CustomObjects: custom,
			Environments:  envs,
		})
	}
	return &Registry{tenants: tenants}
}

// All returns every configured tenant.
func (r *Registry) All() []Tenant {
	return r.tenants
}

// ByID looks up a tenant by id.
func (r *Registry) ByID(id uint) (Tenant, bool) {
	for _, t := range r.tenants {
		if t.ID == id {
			return t, true
		}
	}
	return Tenant{}, false
}

// IsCustomByConvention reports whether name (the portion of fullName after
// the last dot) contains the tenant's short code, case-insensitively. This
// preserves the documented open question: a short or common tenant code
// will over-match, and that is accepted behavior, not a bug to silently
// fix (SPEC_FULL.md / spec.md §9).
func IsCustomByConvention(tenantCode, name string) bool {
	if tenantCode == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(tenantCode))
}
