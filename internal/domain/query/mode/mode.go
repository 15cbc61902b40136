package mode

// Mode selects the response shape of a query.
type Mode string

// Query mode constants.
const (
	// Filtered keeps only chunks mentioning the requested company.
	Filtered Mode = "filtered"
	// Unfiltered returns every retrieved chunk with a count.
	Unfiltered Mode = "unfiltered"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Filtered || m == Unfiltered
}
