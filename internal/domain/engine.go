package domain

// SkipReason explains why a participant produced no balance delta.
type SkipReason string

const (
	// SkipNotFriends means no friendship exists between creator and participant.
	SkipNotFriends SkipReason = "not_friends"
	// SkipNotAccepted means the friendship exists but is pending or rejected.
	SkipNotAccepted SkipReason = "not_accepted"
)

// SkipNotice reports a participant whose share was recorded on the
// transaction but excluded from balance tracking.
type SkipNotice struct {
	UserID string
	Reason SkipReason
}

// Delta is a signed balance adjustment for one friendship, expressed in
// the entry's stored (low, high) sign convention.
type Delta struct {
	PairKey PairKey
	Amount  Money
}

// ComputeDeltas turns a transaction into the balance deltas to apply to
// each affected friendship. Pure function: friendships is the caller's
// snapshot of the relevant entries keyed by pair.
//
// Deltas are only produced for the transaction's creator as the owed
// party; non-creator participants never trigger balance movement. The
// creator's own share yields no delta. Participants without an accepted
// friendship are skipped with an explicit notice, never silently.
func ComputeDeltas(t *Transaction, friendships map[PairKey]*Friendship) ([]Delta, []SkipNotice, error) {
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}

	deltas := make([]Delta, 0, len(t.Participants))
	var skipped []SkipNotice

	for _, p := range t.Participants {
		if p.UserID == t.CreatedBy {
			continue
		}

		pk, err := NewPairKey(t.CreatedBy, p.UserID)
		if err != nil {
			return nil, nil, err
		}

		f, ok := friendships[pk]
		if !ok {
			skipped = append(skipped, SkipNotice{UserID: p.UserID, Reason: SkipNotFriends})
			continue
		}

		if f.Status != FriendshipAccepted {
			skipped = append(skipped, SkipNotice{UserID: p.UserID, Reason: SkipNotAccepted})
			continue
		}

		if p.Amount.IsZero() {
			continue
		}

		// The participant owes the creator. Positive stored balance means
		// high owes low, so the sign follows the creator's position.
		amount := p.Amount
		if t.CreatedBy != pk.Low() {
			amount = amount.Neg()
		}

		deltas = append(deltas, Delta{PairKey: pk, Amount: amount})
	}

	return deltas, skipped, nil
}
