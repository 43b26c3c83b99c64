package domain

import "fmt"

type AuctionStatus int

const (
	AuctionOpen AuctionStatus = iota
	AuctionClosing
	AuctionSold
	// AuctionDeleted is a lifecycle terminal; it is never persisted.
	AuctionDeleted
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionOpen:
		return "Open"
	case AuctionClosing:
		return "Closing"
	case AuctionSold:
		return "Sold"
	case AuctionDeleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// ParseAuctionStatus maps a stored status back to the enum.
func ParseAuctionStatus(s string) (AuctionStatus, error) {
	switch s {
	case "Open":
		return AuctionOpen, nil
	case "Closing":
		return AuctionClosing, nil
	case "Sold":
		return AuctionSold, nil
	}
	return 0, fmt.Errorf("unknown auction status %q", s)
}

func (s AuctionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
