// Package seed loads master data catalogs from a YAML file.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// File is the layout of a seed file.
type File struct {
	Departments    []Department   `yaml:"departments"`
	Vendors        []Vendor       `yaml:"vendors"`
	Categories     []string       `yaml:"categories"`
	Statuses       []Status       `yaml:"statuses"`
	RepairStatuses []RepairStatus `yaml:"repair_statuses"`
}

type Department struct {
	Name              string `yaml:"name"`
	Location          string `yaml:"location"`
	ResponsiblePerson string `yaml:"responsible_person"`
}

type Vendor struct {
	Name    string `yaml:"name"`
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email"`
	Address string `yaml:"address"`
}

type Status struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// RepairStatus may name the asset status a resolved ticket returns the asset to.
type RepairStatus struct {
	Name          string `yaml:"name"`
	Role          string `yaml:"role"`
	ProductStatus string `yaml:"product_status"`
}

// Parse decodes a seed file, rejecting unknown keys.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &f, nil
}

// ParseFile reads and decodes the seed file at path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer fh.Close()
	return Parse(fh)
}

// Result counts the entries created by Apply.
type Result struct {
	Created int
	Skipped int
}

// Apply creates every entry whose name is not already present in its
// catalog. Existing entries are left untouched, so applying a file twice is
// safe.
func Apply(ctx context.Context, db *sql.DB, f *File) (Result, error) {
	var res Result

	existing := map[model.CatalogKind]map[string]int64{}
	for _, kind := range model.CatalogKinds {
		entries, err := store.ListCatalog(ctx, db, kind, true)
		if err != nil {
			return res, err
		}
		names := map[string]int64{}
		for _, e := range entries {
			names[e.Name] = e.ID
		}
		existing[kind] = names
	}

	create := func(kind model.CatalogKind, e model.CatalogEntry) error {
		if _, ok := existing[kind][e.Name]; ok {
			res.Skipped++
			return nil
		}
		created, err := store.CreateCatalogEntry(ctx, db, kind, e)
		if err != nil {
			return fmt.Errorf("seeding %s %q: %w", kind, e.Name, err)
		}
		existing[kind][created.Name] = created.ID
		res.Created++
		slog.Debug("catalog entry seeded", "catalog", kind, "name", created.Name, "id", created.ID)
		return nil
	}

	for _, d := range f.Departments {
		if err := create(model.CatalogDepartments, model.CatalogEntry{
			Name: d.Name, Location: d.Location, ResponsiblePerson: d.ResponsiblePerson,
		}); err != nil {
			return res, err
		}
	}
	for _, v := range f.Vendors {
		if err := create(model.CatalogVendors, model.CatalogEntry{
			Name: v.Name, Phone: v.Phone, Email: v.Email, Address: v.Address,
		}); err != nil {
			return res, err
		}
	}
	for _, c := range f.Categories {
		if err := create(model.CatalogCategories, model.CatalogEntry{Name: c}); err != nil {
			return res, err
		}
	}
	for _, s := range f.Statuses {
		if err := create(model.CatalogStatuses, model.CatalogEntry{Name: s.Name, Role: s.Role}); err != nil {
			return res, err
		}
	}
	for _, rs := range f.RepairStatuses {
		e := model.CatalogEntry{Name: rs.Name, Role: rs.Role}
		if rs.ProductStatus != "" {
			id, ok := existing[model.CatalogStatuses][rs.ProductStatus]
			if !ok {
				return res, fmt.Errorf("repair status %q maps to unknown status %q", rs.Name, rs.ProductStatus)
			}
			e.ProductStatusID = &id
		}
		if err := create(model.CatalogRepairStatuses, e); err != nil {
			return res, err
		}
	}

	return res, nil
}
