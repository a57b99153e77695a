// Package wallet implements the client for the custodial wallet API and
// the periodic balance poller.
package wallet

// Token describes the token of a balance entry.
type Token struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
}

// Balance is a normalized USDC balance for a wallet.
type Balance struct {
	Amount string `json:"amount"`
	Token  Token  `json:"token"`
}

// BalanceResponse is returned by the balance endpoint.
type BalanceResponse struct {
	Success     bool     `json:"success"`
	USDCBalance *Balance `json:"usdcBalance,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Info describes a custodial wallet.
type Info struct {
	ID         string `json:"id,omitempty"`
	Address    string `json:"address"`
	Blockchain string `json:"blockchain,omitempty"`
}

// InfoResponse is returned by the wallet info endpoint.
type InfoResponse struct {
	Success bool   `json:"success"`
	Wallet  *Info  `json:"wallet,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Transaction is one entry in the wallet transaction history.
type Transaction struct {
	ID                 string   `json:"id,omitempty"`
	Type               string   `json:"type,omitempty"`
	State              string   `json:"state,omitempty"`
	SourceAddress      string   `json:"sourceAddress,omitempty"`
	DestinationAddress string   `json:"destinationAddress,omitempty"`
	Amounts            []string `json:"amounts,omitempty"`
	CreatedAt          string   `json:"createdAt,omitempty"`
}

// TransactionsResponse is returned by the transaction history endpoint.
type TransactionsResponse struct {
	Success      bool          `json:"success"`
	Transactions []Transaction `json:"transactions"`
	Error        string        `json:"error,omitempty"`
}

// SendRequest describes a funds transfer.
type SendRequest struct {
	WalletID        string `json:"walletId"`
	ReceiverAddress string `json:"receiverAddress"`
	// Amount is a decimal string, matching the wallet API wire format.
	Amount  string `json:"amount"`
	TokenID string `json:"tokenId"`
}

// SendResponse is the result of a funds transfer request. A transfer is
// accepted when Success is true or a challenge was issued.
type SendResponse struct {
	Success     bool   `json:"success"`
	ChallengeID string `json:"challengeId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Accepted reports whether the wallet accepted the transfer, either
// immediately or by issuing a challenge to be approved out of band.
func (r *SendResponse) Accepted() bool {
	return r != nil && (r.Success || r.ChallengeID != "")
}

// FaucetRequest asks the testnet faucet to fund an address.
type FaucetRequest struct {
	Address    string `json:"address"`
	Blockchain string `json:"blockchain"`
}

// FaucetResponse is returned by the faucet endpoint.
type FaucetResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
