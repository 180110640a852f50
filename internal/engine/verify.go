package engine

// refresh makes s current for this revision, executing its body if it has
// no value or verification shows a dependency changed. It returns false
// when s cannot be read because it is already being evaluated (a cycle);
// the caller then uses the sentinel.
func (e *Engine) refresh(s slot) bool {
	n := s.base()
	n.epoch = e.epoch
	switch n.state {
	case stateRunning:
		e.cycle(s)
		return false
	case stateVerifying:
		e.reenter(s)
		return false
	}

	if n.input {
		s.settle(e)
		return true
	}

	rev := e.clock.Current()
	if n.hasValue && n.verifiedAt == rev && !n.redo {
		e.stats.Hits++
		return true
	}
	if n.hasValue && !n.cyclic && e.verify(s) {
		n.verifiedAt = rev
		n.loaded = false
		e.stats.Hits++
		e.logger.Debug("query verified", "query", s.describe(), "revision", rev)
		return true
	}
	s.execute(e)
	n.redo = false
	return true
}

// verify walks s's recorded dependencies in order, bringing each up to
// date, and reports whether all of them still hold the revision s saw.
// It stops at the first changed dependency; refreshing one may execute
// its body, and an equal result there keeps s valid (early cutoff).
func (e *Engine) verify(s slot) bool {
	n := s.base()
	e.stats.Verifications++

	n.state = stateVerifying
	n.verifyBase = len(e.stack)
	n.reentered = false
	defer func() {
		n.state = stateIdle
		for _, p := range n.pending {
			p.base().redo = true
		}
		n.pending = nil
	}()

	for _, d := range n.deps {
		if d.changedAt == cycleRevision {
			return false
		}
		if !e.refresh(d.callee) || n.reentered {
			return false
		}
		if d.callee.base().changedAt > d.changedAt {
			return false
		}
	}
	return !n.reentered
}
