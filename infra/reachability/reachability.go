// Package reachability provides the default connectivity probe. The
// application shell can replace it with a platform network monitor.
package reachability

import (
	"net"
	"net/url"
	"time"

	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/service"
	"subskit/internal/errors"
)

const probeTimeout = 3 * time.Second

type dialProbe struct {
	address string
}

// Params holds dependencies for the dial probe, injected by Fx.
type Params struct {
	fx.In

	Config *config.Config
}

// New builds a probe that dials the API host to decide reachability.
func New(params Params) (service.Reachability, error) {
	parsed, err := url.Parse(params.Config.API.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}

	port := parsed.Port()
	if port == "" {
		if parsed.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}

	return &dialProbe{address: net.JoinHostPort(parsed.Hostname(), port)}, nil
}

func (p *dialProbe) IsReachable() bool {
	conn, err := net.DialTimeout("tcp", p.address, probeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()

	return true
}

// Always reports the network as reachable. Useful when the shell already
// gates calls on its own monitor.
func Always() service.Reachability { return alwaysReachable{} }

type alwaysReachable struct{}

func (alwaysReachable) IsReachable() bool { return true }
