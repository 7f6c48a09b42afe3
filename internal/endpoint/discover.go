// Package endpoint discovers live inference endpoints by probing a
// local port range. The discovered set is immutable for the life of a
// batch.
package endpoint

import (
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Descriptor identifies one live inference endpoint. Descriptors are
// shared read-only across workers.
type Descriptor struct {
	URL   string
	Model string
}

// Options bounds the probe. The worst-case discovery time is
// (MaxPort-BasePort+1) x ProbeTimeout, but probes run concurrently.
type Options struct {
	Host         string
	BasePort     int
	MaxPort      int
	ProbeTimeout time.Duration
	Model        string
	FallbackURL  string
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = "127.0.0.1"
	}
	if o.BasePort <= 0 {
		o.BasePort = 11434
	}
	if o.MaxPort < o.BasePort {
		o.MaxPort = o.BasePort + 31
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 100 * time.Millisecond
	}
	return o
}

// Discover probes every port in [BasePort, MaxPort] concurrently and
// returns a descriptor per open port, in port order. When nothing
// answers it falls back to the statically configured endpoint so a
// batch can always start.
func Discover(opts Options) []Descriptor {
	opts = opts.withDefaults()

	var (
		mu   sync.Mutex
		open []int
		wg   sync.WaitGroup
	)
	for port := opts.BasePort; port <= opts.MaxPort; port++ {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			addr := net.JoinHostPort(opts.Host, fmt.Sprintf("%d", port))
			conn, err := net.DialTimeout("tcp", addr, opts.ProbeTimeout)
			if err != nil {
				return
			}
			conn.Close()
			mu.Lock()
			open = append(open, port)
			mu.Unlock()
		}(port)
	}
	wg.Wait()
	sort.Ints(open)

	if len(open) == 0 {
		log.Info().Str("fallback", opts.FallbackURL).Msg("no inference endpoints detected, using fallback")
		return []Descriptor{{URL: opts.FallbackURL, Model: opts.Model}}
	}

	eps := make([]Descriptor, 0, len(open))
	for _, port := range open {
		eps = append(eps, Descriptor{
			URL:   fmt.Sprintf("http://%s:%d/api/generate", opts.Host, port),
			Model: opts.Model,
		})
	}
	log.Info().Int("endpoints", len(eps)).Msg("discovered inference endpoints")
	return eps
}
