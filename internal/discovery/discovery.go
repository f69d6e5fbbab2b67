// Package discovery finds workspace servers advertised over mDNS.
package discovery

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_wsbridge._tcp"

type Server struct {
	Instance   string
	Host       string
	Port       int
	URL        string
	Version    string
	APIVersion string
	InstanceID string
}

// Lookup browses the local network for advertised servers until timeout.
func Lookup(timeout time.Duration) ([]Server, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(ServiceType)
	params.Timeout = timeout
	params.Entries = entries
	params.DisableIPv6 = true

	done := make(chan error, 1)
	go func() {
		done <- mdns.Query(params)
		close(entries)
	}()

	var out []Server
	for entry := range entries {
		if s, ok := serverFromEntry(entry); ok {
			out = append(out, s)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return dedupe(out), nil
}

func serverFromEntry(e *mdns.ServiceEntry) (Server, bool) {
	if e == nil || e.Port <= 0 {
		return Server{}, false
	}
	var ip net.IP
	switch {
	case e.AddrV4 != nil:
		ip = e.AddrV4
	case e.AddrV6 != nil:
		ip = e.AddrV6
	default:
		return Server{}, false
	}
	s := Server{
		Instance: strings.TrimSuffix(e.Name, "."),
		Host:     strings.TrimSuffix(e.Host, "."),
		Port:     e.Port,
		URL:      "http://" + net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)),
	}
	for _, field := range e.InfoFields {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch k {
		case "version":
			s.Version = v
		case "api_version":
			s.APIVersion = v
		case "instance_id":
			s.InstanceID = v
		}
	}
	return s, true
}

func dedupe(in []Server) []Server {
	seen := map[string]struct{}{}
	out := make([]Server, 0, len(in))
	for _, s := range in {
		key := s.URL
		if s.InstanceID != "" {
			key = s.InstanceID
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
