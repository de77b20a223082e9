package ipc

import (
	"io"

	"github.com/matjam/slideframe/internal/types"
)

// Controller is the part of the slideshow engine the control socket drives.
type Controller interface {
	Status() types.Status
	EnqueueCommand(types.Command) error
	WriteMetrics(io.Writer)
}

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type StatusResponse struct {
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	Version   string       `json:"version"`
	PID       int          `json:"pid"`
	Socket    string       `json:"socket"`
	Config    string       `json:"config"`
	Slideshow types.Status `json:"slideshow"`
}
