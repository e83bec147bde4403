package domain

// PurchaseOrder lives in the secondary registry. Routes are linked to
// orders only through the partner and the route name quoted in Notes.
type PurchaseOrder struct {
	ID      int
	Name    string
	Partner Ref
	Notes   string
}

type PurchaseOrderLine struct {
	ID        int
	OrderID   int
	Product   Ref
	Name      string
	Quantity  float64
	PriceUnit float64
}

// NewPurchaseOrderLine holds the values of a freight line to create.
type NewPurchaseOrderLine struct {
	OrderID   int
	ProductID int
	Name      string
	Quantity  float64
	PriceUnit float64
}

type Product struct {
	ID   int
	Name string
}
