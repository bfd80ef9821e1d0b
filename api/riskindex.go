package api

import (
	"sync"

	"cosmossdk.io/math"
	"github.com/google/btree"
)

const riskIndexDegree = 32

// coverageItem orders troves by coverage, the collateral ratio at a unit price.
// The ratio at any price is coverage × price, so the order is price independent.
type coverageItem struct {
	coverage math.LegacyDec
	owner    string
}

// Less implements btree.Item, ascending by coverage then owner
func (a *coverageItem) Less(b btree.Item) bool {
	other := b.(*coverageItem)
	if !a.coverage.Equal(other.coverage) {
		return a.coverage.LT(other.coverage)
	}
	return a.owner < other.owner
}

// RiskIndex keeps open troves sorted from least to most collateralized
type RiskIndex struct {
	tree    *btree.BTree
	byOwner map[string]*coverageItem
	mu      sync.RWMutex
}

// NewRiskIndex creates an empty index
func NewRiskIndex() *RiskIndex {
	return &RiskIndex{
		tree:    btree.New(riskIndexDegree),
		byOwner: make(map[string]*coverageItem),
	}
}

// Upsert sets the coverage of owner's trove
func (ri *RiskIndex) Upsert(owner string, coverage math.LegacyDec) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if old, ok := ri.byOwner[owner]; ok {
		ri.tree.Delete(old)
	}
	item := &coverageItem{coverage: coverage, owner: owner}
	ri.tree.ReplaceOrInsert(item)
	ri.byOwner[owner] = item
}

// Remove drops owner's trove from the index
func (ri *RiskIndex) Remove(owner string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if old, ok := ri.byOwner[owner]; ok {
		ri.tree.Delete(old)
		delete(ri.byOwner, owner)
	}
}

// Len returns the number of indexed troves
func (ri *RiskIndex) Len() int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return ri.tree.Len()
}

// Below returns owners whose ratio at price is under threshold, lowest first.
// A limit of zero or less returns every match.
func (ri *RiskIndex) Below(price, threshold math.LegacyDec, limit int) []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	var owners []string
	ri.tree.Ascend(func(i btree.Item) bool {
		item := i.(*coverageItem)
		if item.coverage.Mul(price).GTE(threshold) {
			return false
		}
		owners = append(owners, item.owner)
		return limit <= 0 || len(owners) < limit
	})
	return owners
}
