package model

// Dock is a berth entry from the dock directory.
type Dock struct {
	Code                 string   `json:"code" yaml:"code"`
	AllowedVesselTypeIDs []string `json:"allowedVesselTypeIds" yaml:"allowed_vessel_type_ids"`
	LengthM              float64  `json:"lengthM" yaml:"length_m"`
	DepthM               float64  `json:"depthM" yaml:"depth_m"`
	MaxDraftM            float64  `json:"maxDraftM" yaml:"max_draft_m"`
	Cranes               []string `json:"cranes" yaml:"cranes"`
}

// Allows reports whether vessels of the given type may berth at the dock.
func (d Dock) Allows(vesselTypeID string) bool {
	for _, id := range d.AllowedVesselTypeIDs {
		if id == vesselTypeID {
			return true
		}
	}
	return false
}

// Vessel is a vessel looked up by IMO number.
type Vessel struct {
	IMO          string `json:"imo" yaml:"imo"`
	Name         string `json:"name" yaml:"name"`
	VesselTypeID string `json:"vesselTypeId" yaml:"vessel_type_id"`
}

// StaffMember is an entry of the staff directory.
type StaffMember struct {
	Name               string   `json:"name" yaml:"name"`
	QualificationCodes []string `json:"qualificationCodes" yaml:"qualification_codes"`
}

// HasAny reports whether the member holds at least one of codes.
func (s StaffMember) HasAny(codes []string) bool {
	for _, c := range codes {
		for _, q := range s.QualificationCodes {
			if c == q {
				return true
			}
		}
	}
	return false
}
