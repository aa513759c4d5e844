package billing

// SelectLines returns the lines whose IDs are listed, in source order.
// An empty selection copies every line. Repeated IDs are ignored; unknown IDs fail.
func SelectLines(lines []Line, ids []uint) ([]Line, error) {
	if len(ids) == 0 {
		out := make([]Line, len(lines))
		copy(out, lines)
		return out, nil
	}

	wanted := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	out := make([]Line, 0, len(wanted))
	for _, l := range lines {
		if _, ok := wanted[l.ID]; ok {
			out = append(out, l)
			delete(wanted, l.ID)
		}
	}
	if len(wanted) > 0 {
		return nil, ErrUnknownItem
	}
	return out, nil
}
