package engine

// CanCarryMore reports whether the robot has spare capacity
func (r *Robot) CanCarryMore() bool {
	return len(r.Carrying) < r.Capacity
}

// IsCarrying reports whether the robot currently carries the given package
func (r *Robot) IsCarrying(pkg *Package) bool {
	for _, p := range r.Carrying {
		if p == pkg {
			return true
		}
	}
	return false
}

// MoveTo relocates the robot and every package it carries. Validity and
// occupancy checks belong to the executor; this is the raw mutation.
func (r *Robot) MoveTo(pos Position) {
	r.Position = pos
	for _, pkg := range r.Carrying {
		pkg.Position = pos
	}
}

// Pickup loads a package onto the robot. It fails when the robot is full,
// the package is elsewhere, or the package is already carried.
func (r *Robot) Pickup(pkg *Package) bool {
	if !r.CanCarryMore() || pkg.Position != r.Position || pkg.Carried {
		return false
	}
	r.Carrying = append(r.Carrying, pkg)
	r.CarryingIDs = append(r.CarryingIDs, pkg.ID)
	pkg.Carried = true
	pkg.CarrierID = r.ID
	pkg.State = Transported
	return true
}

// Drop unloads a package at the robot's current cell. The package becomes
// Delivered when that cell is its destination, otherwise Waiting.
func (r *Robot) Drop(pkg *Package) bool {
	if !r.IsCarrying(pkg) {
		return false
	}
	for i, p := range r.Carrying {
		if p == pkg {
			r.Carrying = append(r.Carrying[:i], r.Carrying[i+1:]...)
			r.CarryingIDs = append(r.CarryingIDs[:i], r.CarryingIDs[i+1:]...)
			break
		}
	}
	pkg.Carried = false
	pkg.CarrierID = ""
	pkg.Position = r.Position
	if pkg.Position == pkg.Destination {
		pkg.State = Delivered
	} else {
		pkg.State = Waiting
	}
	return true
}
