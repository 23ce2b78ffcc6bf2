package ledger

// MergeAction is the outcome of the merge policy for one incoming item
type MergeAction int

const (
	// MergeSkip drops the item: it failed the discard rules, or the ledger
	// already holds an attributed record under the same receipt key
	MergeSkip MergeAction = iota
	// MergeAppend inserts the item as a new payment record
	MergeAppend
	// MergeBackfill attributes an existing merchant-less record
	MergeBackfill
)

// MergeResult reports what one merge call changed
type MergeResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// DecideMerge applies the merge policy for one item against the record
// currently stored under its receipt key (nil when absent). The policy is
// what makes repeated feed deliveries idempotent: a key that already has a
// merchant is never touched again.
func DecideMerge(existing *PaymentRecord, item PaymentItem) MergeAction {
	if !item.Usable() {
		return MergeSkip
	}
	if existing == nil {
		return MergeAppend
	}
	if !existing.HasMerchant() {
		return MergeBackfill
	}
	return MergeSkip
}
