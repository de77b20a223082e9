package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/matjam/slideframe/internal/types"
	"resty.dev/v3"
)

func newClient() *resty.Client {
	path := SocketPath()

	client := resty.NewWithClient(&http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	})

	client.SetBaseURL("http://slideframe")
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "slideframe")

	return client
}

// SendCommand posts cmd to the running slideframe.
func SendCommand(cmd types.Command) (*Response, error) {
	client := newClient()
	defer client.Close()

	result := Response{}
	failure := Response{}

	response, err := client.R().SetResult(&result).SetError(&failure).Post("/" + string(cmd.Type))
	if err != nil {
		return nil, err
	}

	if response.StatusCode() != http.StatusOK {
		if failure.Message != "" {
			return nil, fmt.Errorf("error sending %s: %s: %s", cmd.Type, response.Status(), failure.Message)
		}
		return nil, fmt.Errorf("error sending %s: %s", cmd.Type, response.Status())
	}

	return &result, nil
}

func SendStatus() (*StatusResponse, error) {
	client := newClient()
	defer client.Close()

	result := StatusResponse{}

	response, err := client.R().SetResult(&result).Get("/status")
	if err != nil {
		return nil, err
	}

	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("error getting status: %s", response.Status())
	}

	return &result, nil
}

// SendMetrics returns the Prometheus text exposition of the running slideframe.
func SendMetrics() (string, error) {
	client := newClient()
	defer client.Close()

	response, err := client.R().SetHeader("Accept", "text/plain").Get("/metrics")
	if err != nil {
		return "", err
	}
	if response.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("error getting metrics: %s", response.Status())
	}
	return response.String(), nil
}

func SendNext() error {
	_, err := SendCommand(types.Command{Type: types.CommandNext})
	return err
}

func SendStop() error {
	_, err := SendCommand(types.Command{Type: types.CommandStop})
	return err
}

// SendRefresh asks the running slideframe to rescan its image directory.
func SendRefresh() error {
	_, err := SendCommand(types.Command{Type: types.CommandRefresh})
	return err
}
