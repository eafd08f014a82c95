package query

// unansweredWindowNS is the ±5 second correlation window used to match a
// wait-bit primary message against its reply.
const unansweredWindowNS = 5_000_000_000

// ComputeUnanswered scans every row in a session once and returns the set
// of row_ids for wait-bit primary messages (wbit=1) with no matching reply.
// A reply matches a primary at (s, f, sysbytes, dir) when it carries
// (s, f+1, sysbytes, -dir) and falls within ±5 seconds of the primary's
// timestamp. Rows with wbit=0 are never unanswered.
func ComputeUnanswered(rows []Row) map[uint32]bool {
	// Index replies by (s, f, sysbytes, dir) for O(1) candidate lookup;
	// within a bucket the list is scanned for one hit inside the window.
	type replyKey struct {
		s, f     uint8
		sysbytes uint32
		dir      int8
	}
	byKey := make(map[replyKey][]int64, len(rows))
	for _, r := range rows {
		k := replyKey{s: r.S, f: r.F, sysbytes: r.SysBytes, dir: r.Dir}
		byKey[k] = append(byKey[k], r.TsNS)
	}

	result := make(map[uint32]bool, len(rows))
	for _, r := range rows {
		if r.WBit != 1 {
			continue
		}
		if r.F == 255 {
			// f+1 would overflow; no valid reply function code exists.
			result[r.RowID] = true
			continue
		}

		k := replyKey{s: r.S, f: r.F + 1, sysbytes: r.SysBytes, dir: -r.Dir}
		answered := false
		for _, ts := range byKey[k] {
			if abs64(ts-r.TsNS) <= unansweredWindowNS {
				answered = true
				break
			}
		}
		result[r.RowID] = !answered
	}
	return result
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
