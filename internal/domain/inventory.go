package domain

// DeriveInventoryStatus maps a part's stock level to a status tag. It only
// overrides the stock-level tags; operational tags chosen by an operator
// (ordered, requested, ...) survive unless stock is low or empty.
// Run it on every write that touches quantity or minQuantity.
func DeriveInventoryStatus(quantity, minQuantity int, current PartStatus) PartStatus {
	switch {
	case quantity <= 0:
		return PartOutOfStock
	case quantity <= minQuantity:
		return PartLowStock
	case current == "" || current.stockLevel():
		return PartInStock
	default:
		return current
	}
}
