package roster

// OnDeparted only moves counters; the peer appears with the first update.
func (r *Reconciler) OnDeparted(id string) error {
	r.counters.Active++
	r.counters.Driving++
	return r.settle("departed", id)
}

// OnArrived removes id everywhere. The server ends an arrived vehicle's
// subscription itself, so no unsubscribe is sent.
func (r *Reconciler) OnArrived(id string) error {
	r.counters.Active--
	r.counters.Driving--
	delete(r.subscribed, id)
	delete(r.parked, id)
	r.remove(id, "arrived")
	return r.settle("arrived", id)
}

func (r *Reconciler) OnTeleportStart(id string) error {
	r.counters.Active--
	r.counters.Driving--
	delete(r.parked, id)
	r.remove(id, "teleported")
	return r.settle("teleport_start", id)
}

func (r *Reconciler) OnTeleportEnd(id string) error {
	r.counters.Active++
	r.counters.Driving++
	r.setParked(id, false)
	return r.settle("teleport_end", id)
}

func (r *Reconciler) OnParkStart(id string) error {
	r.counters.Parking++
	r.counters.Driving--
	r.setParked(id, true)
	return r.settle("park_start", id)
}

func (r *Reconciler) OnParkEnd(id string) error {
	r.counters.Parking--
	r.counters.Driving++
	r.setParked(id, false)
	return r.settle("park_end", id)
}

func (r *Reconciler) setParked(id string, parked bool) {
	if parked {
		r.parked[id] = struct{}{}
	} else {
		delete(r.parked, id)
	}
	if e, ok := r.arena.get(id); ok && e.parked != parked {
		e.parked = parked
		e.peer.SetParked(parked)
	}
}

func (r *Reconciler) settle(event, id string) error {
	r.publish()
	if err := r.counters.check(event, id); err != nil {
		r.log.Error().Err(err).Msg("roster counter invariant broken")
		return err
	}
	return nil
}
