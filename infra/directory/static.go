// Package directory provides a static, file-seeded implementation of the
// dock, vessel, staff and VVN directories.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/portlogistics/portplan/core/model"
)

// Seed is the on-disk layout of a directory file.
type Seed struct {
	Docks   []model.Dock        `yaml:"docks" json:"docks"`
	Vessels []model.Vessel      `yaml:"vessels" json:"vessels"`
	Staff   []model.StaffMember `yaml:"staff" json:"staff"`
	VVNs    []model.VVN         `yaml:"vvns" json:"vvns"`
}

// StaticDirectory serves the seed contents. It is never mutated after
// construction, so concurrent reads are safe.
type StaticDirectory struct {
	docks   []model.Dock
	vessels map[string]model.Vessel
	staff   []model.StaffMember
	vvns    map[string]model.VVN
	byDay   map[string][]model.VVN
}

// New indexes seed.
func New(seed Seed) (*StaticDirectory, error) {
	d := &StaticDirectory{
		docks:   append([]model.Dock(nil), seed.Docks...),
		vessels: make(map[string]model.Vessel, len(seed.Vessels)),
		staff:   append([]model.StaffMember(nil), seed.Staff...),
		vvns:    make(map[string]model.VVN, len(seed.VVNs)),
		byDay:   make(map[string][]model.VVN),
	}
	codes := make(map[string]bool, len(seed.Docks))
	for _, dk := range seed.Docks {
		if dk.Code == "" {
			return nil, fmt.Errorf("dock without code")
		}
		if codes[dk.Code] {
			return nil, fmt.Errorf("duplicate dock %s", dk.Code)
		}
		codes[dk.Code] = true
	}
	for _, v := range seed.Vessels {
		d.vessels[v.IMO] = v
	}
	for _, v := range seed.VVNs {
		if v.ID == "" {
			return nil, fmt.Errorf("vvn without id")
		}
		if _, dup := d.vvns[v.ID]; dup {
			return nil, fmt.Errorf("duplicate vvn %s", v.ID)
		}
		if v.Status == "" {
			v.Status = model.VVNInProgress
		}
		d.vvns[v.ID] = v
		d.byDay[v.Day] = append(d.byDay[v.Day], v)
	}
	return d, nil
}

// Load reads a YAML or JSON seed file.
func Load(path string) (*StaticDirectory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed Seed
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &seed)
	case ".json":
		err = json.Unmarshal(b, &seed)
	default:
		return nil, fmt.Errorf("unsupported directory format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return New(seed)
}

func (d *StaticDirectory) Docks(context.Context) ([]model.Dock, error) {
	return append([]model.Dock(nil), d.docks...), nil
}

func (d *StaticDirectory) VesselByIMO(_ context.Context, imo string) (model.Vessel, error) {
	v, ok := d.vessels[imo]
	if !ok {
		return model.Vessel{}, fmt.Errorf("%w: %s", model.ErrVesselNotFound, imo)
	}
	return v, nil
}

func (d *StaticDirectory) StaffWithQualifications(_ context.Context, codes []string) ([]model.StaffMember, error) {
	if len(codes) == 0 {
		return append([]model.StaffMember(nil), d.staff...), nil
	}
	var out []model.StaffMember
	for _, s := range d.staff {
		if s.HasAny(codes) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d *StaticDirectory) VVN(_ context.Context, id string) (model.VVN, error) {
	v, ok := d.vvns[id]
	if !ok {
		return model.VVN{}, fmt.Errorf("%w: %s", model.ErrVvnNotFound, id)
	}
	return v, nil
}

func (d *StaticDirectory) VVNsForDay(_ context.Context, day string) ([]model.VVN, error) {
	return append([]model.VVN(nil), d.byDay[day]...), nil
}
