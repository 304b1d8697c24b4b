package domain

// StatusPresentation is the single status-to-presentation lookup consumed by
// all views instead of per-view switch statements.
type StatusPresentation struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Step  int    `json:"step"`
}

var statusPresentations = map[TicketStatus]StatusPresentation{
	TicketStatusOpen:            {Label: "Open", Color: "blue", Step: 1},
	TicketStatusPendingApproval: {Label: "Pending Approval", Color: "amber", Step: 2},
	TicketStatusApproved:        {Label: "Approved", Color: "teal", Step: 3},
	TicketStatusRejected:        {Label: "Rejected", Color: "red", Step: 3},
	TicketStatusInProgress:      {Label: "In Progress", Color: "indigo", Step: 4},
	TicketStatusResolved:        {Label: "Resolved", Color: "green", Step: 5},
	TicketStatusClosed:          {Label: "Closed", Color: "gray", Step: 6},
	TicketStatusCancelled:       {Label: "Cancelled", Color: "gray", Step: 6},
}

// PresentationFor returns display metadata for a status.
func PresentationFor(status TicketStatus) StatusPresentation {
	if p, ok := statusPresentations[status]; ok {
		return p
	}
	return StatusPresentation{Label: string(status), Color: "gray"}
}
