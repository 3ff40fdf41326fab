package core

// SideType represents the direction of a position (LONG or SHORT)
type SideType string

// Position side constants
const (
	SideTypeLong  SideType = "LONG"
	SideTypeShort SideType = "SHORT"
)

// Position is an open leveraged position as reported by the exchange.
type Position struct {
	Instrument string
	Side       SideType
	EntryPrice float64
	Quantity   float64
}
