// Package entities defines core domain models and data structures.
package entities

// Architecture classifies the CPU instruction sets an application bundle's
// main executable contains.
type Architecture string

const (
	ArchARM64     Architecture = "arm64"
	ArchX86_64    Architecture = "x86_64"
	ArchUniversal Architecture = "universal"
	ArchUnknown   Architecture = "unknown"
)

// ParseArchitecture maps common spellings onto an Architecture.
// Anything unrecognized is ArchUnknown.
func ParseArchitecture(s string) Architecture {
	switch s {
	case "arm64", "aarch64", "arm":
		return ArchARM64
	case "x86_64", "amd64", "intel", "x64":
		return ArchX86_64
	case "universal":
		return ArchUniversal
	default:
		return ArchUnknown
	}
}

// Slot is one of the two fixed architecture roles of a run.
type Slot string

const (
	SlotFirst  Slot = "first"
	SlotSecond Slot = "second"
)

// Slots lists both roles in processing order.
var Slots = []Slot{SlotFirst, SlotSecond}

// Expected returns the architecture a bundle in this slot must resolve to.
func (s Slot) Expected() Architecture {
	if s == SlotFirst {
		return ArchARM64
	}
	return ArchX86_64
}

// Label is the user-facing name of the slot.
func (s Slot) Label() string {
	if s == SlotFirst {
		return "Apple silicon"
	}
	return "Intel"
}
