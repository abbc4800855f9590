package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/portlogistics/portplan/core/model"
)

// Snapshot holds the directory data of one computation. Docks keep the
// directory order and are indexed by code; vessels are keyed by IMO.
type Snapshot struct {
	docks   []model.Dock
	dockIdx map[string]int
	vessels map[string]model.Vessel
	vvns    map[string]model.VVN
	staff   []model.StaffMember
}

// NewSnapshot builds a snapshot from already loaded data.
func NewSnapshot(docks []model.Dock, vessels []model.Vessel, vvns []model.VVN, staff []model.StaffMember) *Snapshot {
	s := &Snapshot{
		docks:   append([]model.Dock(nil), docks...),
		dockIdx: make(map[string]int, len(docks)),
		vessels: make(map[string]model.Vessel, len(vessels)),
		vvns:    make(map[string]model.VVN, len(vvns)),
		staff:   append([]model.StaffMember(nil), staff...),
	}
	for i, d := range s.docks {
		s.dockIdx[d.Code] = i
	}
	for _, v := range vessels {
		s.vessels[v.IMO] = v
	}
	for _, v := range vvns {
		s.vvns[v.ID] = v
	}
	return s
}

// LoadSnapshot reads the docks, the day's VVNs with their vessels and the
// staff holding one of qualifications.
func LoadSnapshot(ctx context.Context, dirs Directories, day string, qualifications []string) (*Snapshot, error) {
	docks, err := dirs.Docks.Docks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load docks: %w", err)
	}
	vvns, err := dirs.VVNs.VVNsForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load vvns for %s: %w", day, err)
	}
	var vessels []model.Vessel
	seen := make(map[string]bool)
	for _, v := range vvns {
		if seen[v.VesselIMO] {
			continue
		}
		seen[v.VesselIMO] = true
		vessel, err := dirs.Vessels.VesselByIMO(ctx, v.VesselIMO)
		if errors.Is(err, model.ErrVesselNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load vessel %s: %w", v.VesselIMO, err)
		}
		vessels = append(vessels, vessel)
	}
	var staff []model.StaffMember
	if dirs.Staff != nil {
		staff, err = dirs.Staff.StaffWithQualifications(ctx, qualifications)
		if err != nil {
			return nil, fmt.Errorf("load staff: %w", err)
		}
	}
	return NewSnapshot(docks, vessels, vvns, staff), nil
}

// Docks returns the docks in directory order.
func (s *Snapshot) Docks() []model.Dock { return s.docks }

// Dock returns the dock with the given code.
func (s *Snapshot) Dock(code string) (model.Dock, bool) {
	i, ok := s.dockIdx[code]
	if !ok {
		return model.Dock{}, false
	}
	return s.docks[i], true
}

// Vessel returns the vessel with the given IMO.
func (s *Snapshot) Vessel(imo string) (model.Vessel, bool) {
	v, ok := s.vessels[imo]
	return v, ok
}

// VVN returns the VVN with the given id.
func (s *Snapshot) VVN(id string) (model.VVN, bool) {
	v, ok := s.vvns[id]
	return v, ok
}

// VVNs returns the snapshot's VVNs.
func (s *Snapshot) VVNs() []model.VVN {
	out := make([]model.VVN, 0, len(s.vvns))
	for _, v := range s.vvns {
		out = append(out, v)
	}
	return out
}

// VesselTypeOf returns the vessel type of a VVN's vessel.
func (s *Snapshot) VesselTypeOf(vvnID string) (string, bool) {
	vvn, ok := s.vvns[vvnID]
	if !ok {
		return "", false
	}
	v, ok := s.vessels[vvn.VesselIMO]
	if !ok {
		return "", false
	}
	return v.VesselTypeID, true
}

// AllowedDocks returns the codes of docks accepting the vessel type, in
// directory order.
func (s *Snapshot) AllowedDocks(vesselTypeID string) []string {
	var out []string
	for _, d := range s.docks {
		if d.Allows(vesselTypeID) {
			out = append(out, d.Code)
		}
	}
	return out
}

// Staff returns the qualified staff pool.
func (s *Snapshot) Staff() []model.StaffMember { return s.staff }
