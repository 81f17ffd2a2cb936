package domain

// NoChildPolicy decides what happens when a non-selector node is entered and none of
// its children is satisfied.
type NoChildPolicy string

const (
	// NoChildEnd finishes the conversation silently.
	NoChildEnd NoChildPolicy = "end"
	// NoChildErrorAndEnd logs an error and finishes the conversation.
	NoChildErrorAndEnd NoChildPolicy = "error_and_end"
	// NoChildContinue stays on the node with zero options; the host decides what to do.
	NoChildContinue NoChildPolicy = "continue"
)

// Valid reports whether p is a known policy.
func (p NoChildPolicy) Valid() bool {
	switch p {
	case NoChildEnd, NoChildErrorAndEnd, NoChildContinue:
		return true
	}
	return false
}
