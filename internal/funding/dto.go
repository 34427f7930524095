package funding

// FundRequest is the body of POST /wallet/fund.
type FundRequest struct {
	Amount int64 `json:"amount"`
}

// FundResponse reports the wallet balance after funding.
type FundResponse struct {
	Balance int64 `json:"balance"`
}
