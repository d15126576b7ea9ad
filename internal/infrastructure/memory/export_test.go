package memory

// HeldLocks cantidad de nombres con dueño o esperas.
func (s *Store) HeldLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
