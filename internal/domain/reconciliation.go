package domain

import "time"

type ReconcileAction string

const (
	ActionSkipped             ReconcileAction = "skipped"
	ActionNoOrderFound        ReconcileAction = "no_order_found"
	ActionMultipleOrdersFound ReconcileAction = "multiple_orders_found"
	ActionMarkedExistingLine  ReconcileAction = "marked_existing_line"
	ActionCreatedLine         ReconcileAction = "created_line"
	ActionError               ReconcileAction = "error"
)

// ReconcileOutcome records what one reconciliation run did with one route.
type ReconcileOutcome struct {
	RouteID         int             `json:"route_id"`
	RouteName       string          `json:"route_name"`
	CarrierID       *int            `json:"carrier_id"`
	PurchaseOrderID *int            `json:"purchase_order_id"`
	PurchaseLineID  *int            `json:"purchase_line_id"`
	Action          ReconcileAction `json:"action"`
	Error           string          `json:"error"`
}

// ReconcileReport is the result of one reconciliation run.
type ReconcileReport struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	TotalRoutes int                `json:"total_routes"`
	Processed   []ReconcileOutcome `json:"processed"`
}

// Count returns how many outcomes carry the given action.
func (r *ReconcileReport) Count(action ReconcileAction) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Processed {
		if o.Action == action {
			n++
		}
	}
	return n
}
