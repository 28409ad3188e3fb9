package quote

import (
	"sort"
	"strings"

	"github.com/liderplast/backoffice/internal/domain"
)

// Catalog indexes catalog items by id and by exact name
type Catalog struct {
	byID   map[int64]domain.CatalogItem
	byName map[string]domain.CatalogItem
}

func NewCatalog(items []domain.CatalogItem) *Catalog {
	c := &Catalog{
		byID:   make(map[int64]domain.CatalogItem, len(items)),
		byName: make(map[string]domain.CatalogItem, len(items)),
	}
	for _, it := range items {
		c.byID[it.ID] = it
		c.byName[it.Name] = it
	}
	return c
}

// ItemID returns the id of the item with the given name
func (c *Catalog) ItemID(name string) (int64, bool) {
	it, ok := c.byName[name]
	return it.ID, ok
}

func (c *Catalog) ByName(name string) (domain.CatalogItem, bool) {
	it, ok := c.byName[name]
	return it, ok
}

func (c *Catalog) Item(id int64) (domain.CatalogItem, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// Shells lists the active base products sorted by name
func (c *Catalog) Shells() []domain.CatalogItem {
	var shells []domain.CatalogItem
	for _, it := range c.byID {
		if it.IsActive && strings.HasPrefix(it.Name, domain.ShellPrefix) {
			shells = append(shells, it)
		}
	}
	sort.Slice(shells, func(i, j int) bool {
		return shells[i].Name < shells[j].Name
	})
	return shells
}

func (c *Catalog) Len() int {
	return len(c.byID)
}
