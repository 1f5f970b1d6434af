// Package simulator drives a fleet of fake couriers against the tracking API.
// Each courier random-walks around its zone and reports its position over HTTP.
package simulator

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Zone is a circular area a courier wanders around. Radius is in degrees.
type Zone struct {
	Name   string  `yaml:"name"`
	Lat    float64 `yaml:"lat"`
	Lng    float64 `yaml:"lng"`
	Radius float64 `yaml:"radius"`
}

func (z Zone) Centre() Point {
	return Point{Lat: z.Lat, Lng: z.Lng}
}

type CourierSpec struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Zone  string `yaml:"zone"`
	Phone string `yaml:"phone,omitempty"`
}

type Fleet struct {
	Zones    []Zone        `yaml:"zones"`
	Couriers []CourierSpec `yaml:"couriers"`
}

// DefaultFleet is five couriers spread over five Paris zones.
func DefaultFleet() Fleet {
	return Fleet{
		Zones: []Zone{
			{Name: "Nord Paris", Lat: 48.882, Lng: 2.350, Radius: 0.01},
			{Name: "Sud Paris", Lat: 48.830, Lng: 2.355, Radius: 0.01},
			{Name: "Est Paris", Lat: 48.855, Lng: 2.390, Radius: 0.01},
			{Name: "Ouest Paris", Lat: 48.856, Lng: 2.310, Radius: 0.01},
			{Name: "Centre Paris", Lat: 48.856, Lng: 2.352, Radius: 0.008},
		},
		Couriers: []CourierSpec{
			{ID: "LIV001", Name: "Jean Dupont", Zone: "Nord Paris"},
			{ID: "LIV002", Name: "Marie Martin", Zone: "Sud Paris"},
			{ID: "LIV003", Name: "Pierre Durand", Zone: "Est Paris"},
			{ID: "LIV004", Name: "Sophie Lefebvre", Zone: "Ouest Paris"},
			{ID: "LIV005", Name: "Lucas Moreau", Zone: "Centre Paris"},
		},
	}
}

// LoadFleet reads a YAML fleet file.
func LoadFleet(path string) (Fleet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fleet{}, fmt.Errorf("read fleet file: %w", err)
	}
	return ParseFleet(raw)
}

func ParseFleet(raw []byte) (Fleet, error) {
	var f Fleet
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Fleet{}, fmt.Errorf("parse fleet file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Fleet{}, err
	}
	return f, nil
}

// Zone returns the zone called name.
func (f Fleet) Zone(name string) (Zone, bool) {
	for _, z := range f.Zones {
		if z.Name == name {
			return z, true
		}
	}
	return Zone{}, false
}

func (f Fleet) Validate() error {
	if len(f.Couriers) == 0 {
		return errors.New("fleet: no couriers")
	}

	for _, z := range f.Zones {
		if z.Radius <= 0 {
			return fmt.Errorf("fleet: zone %q: radius must be positive", z.Name)
		}
		if z.Lat < -90 || z.Lat > 90 || z.Lng < -180 || z.Lng > 180 {
			return fmt.Errorf("fleet: zone %q: centre out of range", z.Name)
		}
	}

	seen := make(map[string]struct{}, len(f.Couriers))
	for _, c := range f.Couriers {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
			return errors.New("fleet: courier id and name are required")
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("fleet: duplicate courier %q", c.ID)
		}
		seen[c.ID] = struct{}{}
		if _, ok := f.Zone(c.Zone); !ok {
			return fmt.Errorf("fleet: courier %q: unknown zone %q", c.ID, c.Zone)
		}
	}
	return nil
}
