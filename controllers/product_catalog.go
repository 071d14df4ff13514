package controllers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"go.uber.org/zap"
)

type catalogIndex struct {
	// sorted by lowercased name, then id
	products   []*model.Product
	names      []string
	mostRecent time.Time
}

func (ci *catalogIndex) isOlderThan(other *catalogIndex) bool {
	return ci.mostRecent.Before(other.mostRecent)
}

// ProductCatalog keeps the approved products in memory for name search. It is
// reloaded from the database on a schedule and patched in place after writes.
type ProductCatalog struct {
	db        db.ProductDatabase
	cached    *catalogIndex
	cacheLock sync.RWMutex
	log       *zap.Logger
}

func NewProductCatalog(c context.Context, db db.ProductDatabase, log *zap.Logger) (*ProductCatalog, error) {
	catalog := &ProductCatalog{
		db:  db,
		log: log,
	}
	if err := catalog.Refresh(c); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Refresh reloads every approved product. A snapshot older than the cached one is
// discarded so a slow reload cannot undo a Put that landed meanwhile.
func (pc *ProductCatalog) Refresh(c context.Context) error {
	products, err := pc.db.GetProducts(c, &db.ProductsQuery{Status: model.ProductStatusApproved})
	if err != nil {
		return err
	}
	newIndex := buildIndex(products)

	pc.cacheLock.Lock()
	defer pc.cacheLock.Unlock()
	if pc.cached == nil || !newIndex.isOlderThan(pc.cached) {
		pc.cached = newIndex
	}
	return nil
}

func (pc *ProductCatalog) AttemptRefresh(c context.Context) {
	if err := pc.Refresh(c); err != nil {
		pc.log.Error("an error occurred while refreshing the product catalog", zap.Error(err))
	}
}

// Put adds or replaces one approved product without a reload.
func (pc *ProductCatalog) Put(product *model.Product) {
	if product == nil || product.Status != model.ProductStatusApproved {
		return
	}
	pc.cacheLock.Lock()
	defer pc.cacheLock.Unlock()

	products := make([]*model.Product, 0, len(pc.cached.products)+1)
	for _, existing := range pc.cached.products {
		if existing.Id != product.Id {
			products = append(products, existing)
		}
	}
	products = append(products, product)
	pc.cached = buildIndex(products)
}

// Search returns products whose name contains term, ignoring case. Names starting
// with the term come first, each group in alphabetical order.
func (pc *ProductCatalog) Search(term string, limit int) []*model.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	pc.cacheLock.RLock()
	index := pc.cached
	pc.cacheLock.RUnlock()

	prefixed := []*model.Product{}
	contained := []*model.Product{}
	for i, name := range index.names {
		if len(prefixed) >= limit {
			break
		}
		switch {
		case strings.HasPrefix(name, term):
			prefixed = append(prefixed, index.products[i])
		case len(contained) < limit && strings.Contains(name, term):
			contained = append(contained, index.products[i])
		}
	}
	results := append(prefixed, contained...)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (pc *ProductCatalog) Size() int {
	pc.cacheLock.RLock()
	defer pc.cacheLock.RUnlock()
	return len(pc.cached.products)
}

func buildIndex(products []*model.Product) *catalogIndex {
	sorted := make([]*model.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToLower(sorted[i].Name), strings.ToLower(sorted[j].Name)
		if a != b {
			return a < b
		}
		return sorted[i].Id < sorted[j].Id
	})

	index := &catalogIndex{
		products: sorted,
		names:    make([]string, len(sorted)),
	}
	for i, product := range sorted {
		index.names[i] = strings.ToLower(product.Name)
		if product.UpdatedAt.After(index.mostRecent) {
			index.mostRecent = product.UpdatedAt
		}
	}
	return index
}
