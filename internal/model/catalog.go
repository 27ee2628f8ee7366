package model

import "time"

// CatalogKind names one of the master data catalogs.
type CatalogKind string

// Catalog kinds. The values double as URL path segments.
const (
	CatalogDepartments    CatalogKind = "departments"
	CatalogVendors        CatalogKind = "vendors"
	CatalogCategories     CatalogKind = "categories"
	CatalogStatuses       CatalogKind = "statuses"
	CatalogRepairStatuses CatalogKind = "repair-statuses"
)

// CatalogKinds lists every catalog in display order.
var CatalogKinds = []CatalogKind{
	CatalogDepartments,
	CatalogVendors,
	CatalogCategories,
	CatalogStatuses,
	CatalogRepairStatuses,
}

// Valid reports whether k is a known catalog.
func (k CatalogKind) Valid() bool {
	for _, known := range CatalogKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Product status roles. The workflow locates statuses by role, never by name.
const (
	StatusRoleNone        = "none"
	StatusRoleInService   = "in_service"
	StatusRoleUnderRepair = "under_repair"
)

// Repair status roles.
const (
	RepairRoleOpen     = "open"
	RepairRoleTerminal = "terminal"
)

// ValidRole reports whether role is allowed for catalog kind k.
// Catalogs without roles accept only the empty string.
func (k CatalogKind) ValidRole(role string) bool {
	switch k {
	case CatalogStatuses:
		return role == StatusRoleNone || role == StatusRoleInService || role == StatusRoleUnderRepair
	case CatalogRepairStatuses:
		return role == RepairRoleOpen || role == RepairRoleTerminal
	default:
		return role == ""
	}
}

// DefaultRole is the role assigned when none is given.
func (k CatalogKind) DefaultRole() string {
	switch k {
	case CatalogStatuses:
		return StatusRoleNone
	case CatalogRepairStatuses:
		return RepairRoleOpen
	default:
		return ""
	}
}

// CatalogEntry is a row of any master data catalog. Fields that do not apply
// to a catalog are left empty.
type CatalogEntry struct {
	ID       int64       `json:"id"`
	Kind     CatalogKind `json:"-"`
	Name     string      `json:"name"`
	Role     string      `json:"role,omitempty"`
	IsActive bool        `json:"is_active"`

	// Repair statuses only: asset status applied when a ticket resolves here.
	ProductStatusID *int64 `json:"product_status,omitempty"`

	// Departments only.
	Location          string `json:"location,omitempty"`
	ResponsiblePerson string `json:"responsible_person,omitempty"`

	// Vendors only.
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether a repair status closes the repair cycle.
func (e *CatalogEntry) IsTerminal() bool {
	return e.Kind == CatalogRepairStatuses && e.Role == RepairRoleTerminal
}
