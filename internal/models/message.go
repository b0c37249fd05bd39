package models

import "time"

type MessageType int

const (
	Program MessageType = iota
	Info
	Error
	Tx
)

type Message struct {
	Content string
	Type    MessageType
	Time    time.Time
	TxHash  string // For Tx messages
}
