package constants

// Permission strings carried in service token claims.
const (
	PermAny           = "any"
	PermCalendarAdmin = "calendar.admin"
)
