package types

type CommandType string

const (
	CommandStop    CommandType = "stop"
	CommandNext    CommandType = "next"
	CommandRefresh CommandType = "refresh"
	CommandStatus  CommandType = "status"
)

type Command struct {
	Type CommandType `json:"type"`
	Args []string    `json:"args"`
}
