package llm

// TurnStore persists conversation turns keyed by conversation id
type TurnStore interface {
	TurnReader
	TurnWriter
}
