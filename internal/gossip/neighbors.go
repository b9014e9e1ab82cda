package gossip

// Neighbors returns the gossip UDP ports of node index's immediate
// neighbors in the fixed linear chain of n nodes: {index-1, index+1} ∩
// [0,n).
func Neighbors(index, n, rootID int) []OriginID {
	if n <= 1 {
		return nil
	}
	out := make([]OriginID, 0, 2)
	if index > 0 {
		out = append(out, OriginID(rootID+index-1))
	}
	if index < n-1 {
		out = append(out, OriginID(rootID+index+1))
	}
	return out
}

// PickOne returns a uniformly random element of neighbors, excluding
// exclude if present, or false if none remain.
func PickOne(neighbors []OriginID, exclude OriginID, hasExclude bool, r Rand) (OriginID, bool) {
	candidates := make([]OriginID, 0, len(neighbors))
	for _, p := range neighbors {
		if hasExclude && p == exclude {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[r.Intn(len(candidates))], true
}
