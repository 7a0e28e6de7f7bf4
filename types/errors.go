package types

// ValidatorSetEntry is one revision of the validator set: entries
// supersede in height order by EffectiveAt.
type ValidatorSetEntry struct {
	EffectiveAt         Height
	ValidatorPublicKeys [][32]byte
	ShardIDs            []ShardIndex
}

// StoredValidatorSets resolves the validator set effective at a given
// height from an ordered list of entries.
type StoredValidatorSets struct {
	Entries []ValidatorSetEntry
}

// EffectiveAt returns the entry effective at h: the last entry whose
// EffectiveAt is <= h.
func (s *StoredValidatorSets) EffectiveAt(h Height) (ValidatorSetEntry, bool) {
	var best ValidatorSetEntry
	found := false
	for _, e := range s.Entries {
		if e.EffectiveAt.Less(h) || e.EffectiveAt == h {
			if !found || best.EffectiveAt.Less(e.EffectiveAt) {
				best = e
				found = true
			}
		}
	}
	return best, found
}
