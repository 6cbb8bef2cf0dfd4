package domain

// StoreItem is implemented by every value the launcher funnels through its
// database write channel.
type StoreItem interface {
	// GetType returns a string identifier for the type of store item.
	GetType() string
}

func (log *Log) GetType() string {
	return "log"
}

func (line *OutputLine) GetType() string {
	return "output"
}
