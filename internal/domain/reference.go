package domain

// DispatchArea is a reference row: an ambulance dispatch area and the state it belongs to.
type DispatchArea struct {
	ID      int64
	Name    string
	StateID int64
}

// State is a reference row for a federal state.
type State struct {
	ID   int64
	Name string
}

// Indication is a raw (as imported) indication, optionally linked to a
// curated normalized indication.
type Indication struct {
	ID           int64
	Code         *int
	Text         string
	Hash         string
	NormalizedID *int64
}
