package ledger

// Chart of accounts. Codes are fixed at startup; posting mappings refer
// to them by constant, never by free-form string.
const (
	// AccountPoolBalance is the asset account tracking a pool's balance
	AccountPoolBalance = "1000-POOL-BALANCE"
	// AccountMemberContribution is the equity account for member paid-in
	// contributions
	AccountMemberContribution = "3000-MEMBER-CONTRIBUTION"
	// AccountMemberWithdrawal is the contra account for member draw-downs
	AccountMemberWithdrawal = "3100-MEMBER-WITHDRAWAL"
)
