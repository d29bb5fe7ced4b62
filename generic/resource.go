/*
resource.go - Resource type registration and lookup

PURPOSE:
  Provides a registry for domain packages to register their resource types,
  so storage rows and JSON payloads can be turned back into concrete types.

HOW IT WORKS:
  1. Domain packages define their ResourceType implementations
  2. Domain packages register them in init()
  3. Storage and decoding use the registry to reconstruct types

USAGE:
  // In quota/types.go
  func init() {
      for _, t := range AllLeaveTypes() {
          generic.RegisterResource(t)
      }
  }

  resourceType := generic.GetOrCreateResource("ANNUAL") // returns quota.LeaveAnnual

SEE ALSO:
  - types.go: ResourceType interface definition
  - quota/types.go: Leave type implementation
*/
package generic

import "sync"

// =============================================================================
// RESOURCE REGISTRY
// =============================================================================

var (
	resourceRegistry = make(map[string]ResourceType)
	registryMu       sync.RWMutex
)

// RegisterResource adds a resource type to the global registry.
// Call this from domain package init() functions.
func RegisterResource(r ResourceType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	resourceRegistry[r.ResourceID()] = r
}

// lookupResource finds a registered resource type by ID, nil if unknown.
func lookupResource(id string) ResourceType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return resourceRegistry[id]
}

// =============================================================================
// STRING RESOURCE - Fallback for unregistered IDs
// =============================================================================

// StringResource is a simple string-based resource type, used when a stored
// ID has no registered type.
type StringResource struct {
	ID     string
	Domain string
}

func (r StringResource) ResourceID() string     { return r.ID }
func (r StringResource) ResourceDomain() string { return r.Domain }

// GetOrCreateResource looks up a resource type, or creates a StringResource fallback.
func GetOrCreateResource(id string) ResourceType {
	if r := lookupResource(id); r != nil {
		return r
	}
	return StringResource{ID: id, Domain: "unknown"}
}
