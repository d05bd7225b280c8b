package lifecycle

// Status is a claim's position in the processing lifecycle
type Status string

const (
	StatusReceived        Status = "Received from client"
	StatusScanned         Status = "Document scanned & uploaded"
	StatusReviewed        Status = "Claim reviewed internally"
	StatusSentToIGI       Status = "Sent to IGI"
	StatusPendingWithIGI  Status = "Pending with IGI"
	StatusApprovedByIGI   Status = "Approved by IGI"
	StatusChequeReceived  Status = "Cheque Received"
	StatusChequeSent      Status = "Cheque Sent to Client"
	StatusChequeDelivered Status = "Cheque Delivered"
)

// InitialStatus is the only status a claim may be created with
const InitialStatus = StatusReceived

// ordered holds every status in display order
var ordered = []Status{
	StatusReceived,
	StatusScanned,
	StatusReviewed,
	StatusSentToIGI,
	StatusPendingWithIGI,
	StatusApprovedByIGI,
	StatusChequeReceived,
	StatusChequeSent,
	StatusChequeDelivered,
}

var ordinals = func() map[Status]int {
	m := make(map[Status]int, len(ordered))
	for i, s := range ordered {
		m[s] = i
	}
	return m
}()

var terminalStatuses = map[Status]bool{
	StatusChequeDelivered: true,
}

// inactiveStatuses are excluded from the "active claims" count.
var inactiveStatuses = map[Status]bool{
	StatusChequeDelivered: true,
	StatusApprovedByIGI:   true,
}

// All returns every status in lifecycle order
func All() []Status {
	out := make([]Status, len(ordered))
	copy(out, ordered)
	return out
}

// IsValid returns true if s is one of the fixed lifecycle statuses
func (s Status) IsValid() bool {
	_, ok := ordinals[s]
	return ok
}

// Ordinal returns the position of the status in lifecycle order, or -1 if unknown
func (s Status) Ordinal() int {
	if i, ok := ordinals[s]; ok {
		return i
	}
	return -1
}

// IsTerminal returns true if no further processing happens after this status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsActive reports whether a claim in this status counts as still in flight
func (s Status) IsActive() bool {
	return !inactiveStatuses[s]
}

// String returns the display label
func (s Status) String() string {
	return string(s)
}
