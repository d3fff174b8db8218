package config

import (
	"github.com/ivlev/sky2wallpaper/internal/director"
	"github.com/ivlev/sky2wallpaper/internal/solar"
)

// Planner returns the keyframe planner described by the samples section
func (c *Config) Planner() (*director.Planner, error) {
	layers := c.PlannerLayers()
	if c.Samples.Step > 0 {
		return director.NewUniformPlanner(c.Samples.Step, layers...)
	}
	return director.NewPlanner(c.Samples.Percents, layers...), nil
}

// Policy returns the altitude policy described by the altitude section.
// An empty table falls back to the legacy table.
func (c *Config) Policy() (solar.AltitudePolicy, error) {
	switch c.Altitude.Policy {
	case PolicyTable:
		table, err := c.Altitude.TableMap()
		if err != nil {
			return nil, err
		}
		if len(table) == 0 {
			table = solar.LegacyTable()
		}
		return solar.NewTablePolicy(table)
	default:
		overrides, err := c.Altitude.OverrideMap()
		if err != nil {
			return nil, err
		}
		return solar.NewFormulaPolicy(c.Altitude.NightAltitude, overrides)
	}
}

// Builder returns the metadata builder naming records after the base layer
func (c *Config) Builder() *solar.Builder {
	return solar.NewBuilder(c.Layers.Base.Name)
}
