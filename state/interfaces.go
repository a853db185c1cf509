// state/interfaces.go
package state

// NightPolicy decides the night number after a game ends. Implementations may
// only keep or raise it; lower values are ignored.
type NightPolicy interface {
	NextNight(current int, result Result) int
}

// NightPolicyFunc adapts a function to NightPolicy.
type NightPolicyFunc func(current int, result Result) int

func (f NightPolicyFunc) NextNight(current int, result Result) int {
	return f(current, result)
}

// KeepNight never advances the night.
type KeepNight struct{}

func (KeepNight) NextNight(current int, _ Result) int { return current }

// DrainPolicy computes how much energy one drain tick costs.
type DrainPolicy interface {
	Amount(s Snapshot) int
}

// DoorDrain charges a base amount plus a surcharge for every closed door.
type DoorDrain struct {
	Base          int
	PerClosedDoor int
}

func (d DoorDrain) Amount(s Snapshot) int {
	amount := d.Base
	for _, open := range s.Doors {
		if !open {
			amount += d.PerClosedDoor
		}
	}
	if amount < 0 {
		return 0
	}
	return amount
}
