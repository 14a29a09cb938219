package mode

// Mode is how a sequential search obtained its company set.
type Mode string

// Search mode constants.
const (
	// Sequential ran the company query for this request.
	Sequential Mode = "sequential"
	// SequentialCached reused the company set carried by a session token.
	SequentialCached Mode = "sequential_cached"
	// Direct searched people without any company constraint.
	Direct Mode = "direct"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Sequential || m == SequentialCached || m == Direct
}

// UsesCompanies reports whether stage 2 was constrained by a company set.
func (m Mode) UsesCompanies() bool {
	return m == Sequential || m == SequentialCached
}
