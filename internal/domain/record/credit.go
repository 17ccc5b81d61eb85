package record

type CreditType string

const (
	CreditTypeLead   CreditType = "lead"
	CreditTypeExport CreditType = "export"
)

// CreditBalance is owned by the billing system; the pipeline only consults
// it through the CreditGate port.
type CreditBalance struct {
	TeamID     string
	CreditType CreditType
	Total      int64
	Used       int64
}

func (b CreditBalance) Remaining() int64 {
	remaining := b.Total - b.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}
