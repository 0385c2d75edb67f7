package sim

import "fmt"

// VehicleConfig describes one simulated vehicle owner.
type VehicleConfig struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Owner      string  `json:"owner"`
	StationID  string  `json:"station_id"`
	CarModel   string  `json:"car_model"`
	SoC        float64 `json:"state_of_charge"`
	BatteryKWh float64 `json:"battery_capacity_kwh"`
	MaxPower   float64 `json:"max_power_kw"`
	TargetSoC  float64 `json:"target_state_of_charge"`
	// TargetAfterHours places the charging deadline this many hours after
	// the simulation start.
	TargetAfterHours float64 `json:"target_after_hours"`
}

// StationConfig describes one simulated charging station.
type StationConfig struct {
	ID       string  `json:"id"`
	MaxPower float64 `json:"max_power_kw"`
}

// Config describes an in-process simulation run.
type Config struct {
	Epochs             int             `json:"epochs"`
	EpochLengthMinutes int             `json:"epoch_length_minutes"`
	Vehicles           []VehicleConfig `json:"vehicles"`
	Stations           []StationConfig `json:"stations"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Epochs == 0 {
		c.Epochs = 4
	}
	if c.EpochLengthMinutes == 0 {
		c.EpochLengthMinutes = 60
	}
}

// Validate checks the simulation parameters.
func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive")
	}
	if c.EpochLengthMinutes <= 0 {
		return fmt.Errorf("epoch_length_minutes must be positive")
	}
	if len(c.Vehicles) == 0 {
		return fmt.Errorf("at least one vehicle is required")
	}
	if len(c.Stations) == 0 {
		return fmt.Errorf("at least one station is required")
	}
	for _, v := range c.Vehicles {
		if v.ID == "" || v.StationID == "" {
			return fmt.Errorf("vehicle config requires id and station_id")
		}
	}
	for _, s := range c.Stations {
		if s.ID == "" {
			return fmt.Errorf("station config requires id")
		}
	}
	return nil
}
