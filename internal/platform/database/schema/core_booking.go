package schema

// CoreBookingTable represents the 'core.booking' table
type CoreBookingTable struct {
	Table     string
	ID        string
	TourID    string
	UserID    string
	Price     string
	Paid      string
	CreatedAt string
	UpdatedAt string
	Version   string
}

// CoreBooking is the schema definition for core.booking
var CoreBooking = CoreBookingTable{
	Table:     "core.booking",
	ID:        "id",
	TourID:    "tourid",
	UserID:    "userid",
	Price:     "price",
	Paid:      "paid",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
	Version:   "version",
}
