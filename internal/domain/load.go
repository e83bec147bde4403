package domain

type LoadState string

const (
	LoadDraft    LoadState = "draft"
	LoadAssigned LoadState = "assigned"
	LoadDone     LoadState = "done"
)

// Load is a pickup handled by a route. Its vendor is where the truck stops.
type Load struct {
	ID         int
	Name       string
	Vendor     Ref
	VendorName string
	Quantity   float64
	Pallets    float64
	State      LoadState
}
