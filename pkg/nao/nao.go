// Package nao wraps the NAO robot SDK boundary.
//
// The bridge never links the proprietary SDK directly. Instead this package
// defines small, focused controller interfaces for each robot capability and
// a concrete HTTP transport that speaks to the on-robot daemon. Consumers
// should depend only on the interfaces they actually use.
package nao

import (
	"fmt"
	"strconv"
	"strings"
)

// Posture is a named body configuration.
type Posture string

const (
	PostureUnknown   Posture = "unknown"
	PostureStanding  Posture = "standing"
	PostureSitting   Posture = "sitting"
	PostureCrouching Posture = "crouching"
	PostureLying     Posture = "lying"
)

// Stand variants supported by the posture manager.
const (
	StandDefault = "Stand"
	StandInit    = "StandInit"
	StandZero    = "StandZero"
)

// Sit variants supported by the posture manager.
const (
	SitDefault = "Sit"
	SitRelax   = "SitRelax"
)

// Lie positions.
const (
	LieBack  = "back"
	LieBelly = "belly"
)

// LEDGroup identifies an addressable LED cluster.
type LEDGroup string

const (
	LEDEyes  LEDGroup = "eyes"
	LEDEars  LEDGroup = "ears"
	LEDChest LEDGroup = "chest"
	LEDFeet  LEDGroup = "feet"
)

// LEDGroups lists all addressable clusters.
var LEDGroups = []LEDGroup{LEDEyes, LEDEars, LEDChest, LEDFeet}

// Valid reports whether g names a known LED cluster.
func (g LEDGroup) Valid() bool {
	switch g {
	case LEDEyes, LEDEars, LEDChest, LEDFeet:
		return true
	}
	return false
}

// Color is a 24-bit RGB value as the SDK consumes it.
type Color uint32

// ParseColor parses a hex color string such as "#7ac5cd" or "ff0000".
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c))
}

// Chain is a named joint chain.
type Chain string

// Joint chains addressable through the motion proxy.
const (
	ChainHead Chain = "Head"
	ChainBody Chain = "Body"
	ChainLArm Chain = "LArm"
	ChainRArm Chain = "RArm"
	ChainLLeg Chain = "LLeg"
	ChainRLeg Chain = "RLeg"
)

// Chains lists all addressable joint chains.
var Chains = []Chain{ChainHead, ChainBody, ChainLArm, ChainRArm, ChainLLeg, ChainRLeg}

// Valid reports whether ch names a known joint chain.
func (ch Chain) Valid() bool {
	for _, c := range Chains {
		if c == ch {
			return true
		}
	}
	return false
}

// Head movement limits in degrees.
const (
	MaxHeadYawDeg   = 120
	MinHeadPitchDeg = -40
	MaxHeadPitchDeg = 30
)

// WalkVector describes a normalized walk command. X, Y and Theta are
// velocities in [-1, 1]; Speed scales step frequency in [0.1, 1].
type WalkVector struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
	Speed float64 `json:"speed"`
}

// Clamp returns a copy with all components forced into their legal ranges.
func (w WalkVector) Clamp() WalkVector {
	return WalkVector{
		X:     clamp(w.X, -1, 1),
		Y:     clamp(w.Y, -1, 1),
		Theta: clamp(w.Theta, -1, 1),
		Speed: clamp(w.Speed, 0.1, 1),
	}
}

// SonarReading holds one sample from both sonar sensors, in meters.
type SonarReading struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// State is a snapshot of robot-side state as reported by the daemon.
type State struct {
	BatteryLevel int     `json:"battery_level"`
	Awake        bool    `json:"awake"`
	LifeState    string  `json:"autonomous_life_state"`
	Posture      Posture `json:"posture"`
}

// Autonomous life states accepted by the SDK.
var LifeStates = []string{"disabled", "solitary", "interactive", "safeguard"}

// ValidLifeState reports whether s is an accepted autonomous life state.
func ValidLifeState(s string) bool {
	for _, v := range LifeStates {
		if v == s {
			return true
		}
	}
	return false
}

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
