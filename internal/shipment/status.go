package shipment

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusInTransit  Status = "In Transit"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "Unpaid"
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

// Pending -> In Transit is allowed directly: several dashboards dispatch
// without a Processing step.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusInTransit: true, StatusCancelled: true},
	StatusProcessing: {StatusInTransit: true, StatusCancelled: true},
	StatusInTransit:  {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}

func ValidPayment(p PaymentStatus) bool {
	return p == PaymentUnpaid || p == PaymentPending || p == PaymentPaid
}

// Terminal reports whether no further status transition is possible.
func Terminal(s Status) bool {
	return len(validNext[s]) == 0 && ValidStatus(s)
}
