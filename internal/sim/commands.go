package sim

import (
	"time"

	"globe-flight/internal/camera"
	"globe-flight/internal/flight"
	"globe-flight/internal/geo"
	"globe-flight/internal/illum"
)

type CommandType string

const (
	CmdTakeoff  CommandType = "takeoff"
	CmdControl  CommandType = "control"
	CmdSetView  CommandType = "set_view"
	CmdNextView CommandType = "next_view"
	CmdLighting CommandType = "lighting"
	CmdLand     CommandType = "land"
)

type Command interface {
	Type() CommandType
	ReceivedAt() time.Time
}

// TakeoffCommand starts a new flight. Submitted through Engine.Takeoff,
// the outcome is reported back to the caller.
type TakeoffCommand struct {
	At       time.Time
	Aircraft flight.AircraftType `json:"aircraft"`
	From     geo.Position        `json:"from"`
	To       *geo.Position       `json:"to,omitempty"`

	reply chan error
}

func (c TakeoffCommand) Type() CommandType     { return CmdTakeoff }
func (c TakeoffCommand) ReceivedAt() time.Time { return c.At }

// ControlCommand replaces the held control input until it expires.
type ControlCommand struct {
	At    time.Time
	Input flight.ControlInput `json:"input"`
}

func (c ControlCommand) Type() CommandType     { return CmdControl }
func (c ControlCommand) ReceivedAt() time.Time { return c.At }

type SetViewCommand struct {
	At      time.Time
	View    camera.View `json:"view"`
	Animate bool        `json:"animate"`
}

func (c SetViewCommand) Type() CommandType     { return CmdSetView }
func (c SetViewCommand) ReceivedAt() time.Time { return c.At }

type NextViewCommand struct{ At time.Time }

func (c NextViewCommand) Type() CommandType     { return CmdNextView }
func (c NextViewCommand) ReceivedAt() time.Time { return c.At }

type LightingCommand struct {
	At   time.Time
	Mode illum.Mode `json:"mode"`
}

func (c LightingCommand) Type() CommandType     { return CmdLighting }
func (c LightingCommand) ReceivedAt() time.Time { return c.At }

type LandCommand struct{ At time.Time }

func (c LandCommand) Type() CommandType     { return CmdLand }
func (c LandCommand) ReceivedAt() time.Time { return c.At }
