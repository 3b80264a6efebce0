package store

// The history is a list of snapshots with an index. Entries before the index
// are undo targets (older states), entries from the index on are redo targets.
// Undo and redo swap the live snapshot with the target slot, so a snapshot is
// only ever held in one place and the list never branches.

func (s *Store) pushHistory(pre Snapshot) {
	h := append(s.state.History[:s.state.HistoryIndex:s.state.HistoryIndex], pre)
	if over := len(h) - s.historyLimit; over > 0 {
		h = append([]Snapshot(nil), h[over:]...)
	}
	s.state.History = h
	s.state.HistoryIndex = len(h)
}

func (s *Store) undo() error {
	i := s.state.HistoryIndex
	if i == 0 {
		return ErrNothingToUndo
	}
	target := s.state.History[i-1]
	s.state.History[i-1] = s.state.snapshot()
	s.state.restore(target)
	s.state.HistoryIndex = i - 1
	return nil
}

func (s *Store) redo() error {
	i := s.state.HistoryIndex
	if i >= len(s.state.History) {
		return ErrNothingToRedo
	}
	target := s.state.History[i]
	s.state.History[i] = s.state.snapshot()
	s.state.restore(target)
	s.state.HistoryIndex = i + 1
	return nil
}

// trimHistory keeps the trimTo undo entries closest to the index and drops
// the redo tail. It returns how many entries were dropped.
func (s *Store) trimHistory() int {
	before := len(s.state.History)
	end := s.state.HistoryIndex
	start := max(0, end-s.trimTo)
	s.state.History = append([]Snapshot(nil), s.state.History[start:end]...)
	s.state.HistoryIndex = len(s.state.History)
	return before - len(s.state.History)
}
