package service

import "time"

// SetClock replaces the time source used to stamp UpdatedAt.
func (s *DraftService) SetClock(now func() time.Time) { s.now = now }
