package server

import (
	"log/slog"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/mdns"

	"github.com/izzyreal/wsbridge/internal/discovery"
	"github.com/izzyreal/wsbridge/internal/protocol"
	"github.com/izzyreal/wsbridge/internal/version"
)

func startMDNSAdvertiser(serverAddr, instanceID string) func() {
	if strings.TrimSpace(envOrDefault("WSBRIDGE_MDNS_ENABLE", "true")) == "false" {
		return func() {}
	}

	portNum, err := strconv.Atoi(listenPortFromAddr(serverAddr))
	if err != nil || portNum <= 0 {
		return func() {}
	}

	host, _ := os.Hostname()
	if strings.TrimSpace(host) == "" {
		host = "wsbridge"
	}
	instance := strings.TrimSpace(envOrDefault("WSBRIDGE_MDNS_INSTANCE", "wsbridge-"+host))
	if instance == "" {
		instance = "wsbridge"
	}

	service, err := mdns.NewMDNSService(instance, discovery.ServiceType, "", "", portNum, discoverAdvertiseIPs(), advertiseMeta(instanceID))
	if err != nil {
		slog.Error("mdns advertise service setup failed", "error", err)
		return func() {}
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		slog.Error("mdns advertise start failed", "error", err)
		return func() {}
	}
	slog.Info("mdns advertising enabled", "service", discovery.ServiceType, "instance", instance, "port", portNum)

	return func() {
		_ = server.Shutdown()
	}
}

func advertiseMeta(instanceID string) []string {
	meta := []string{
		"name=wsbridge",
		"api_version=" + protocol.APIVersion,
		"version=" + version.Current(),
	}
	if instanceID != "" {
		meta = append(meta, "instance_id="+instanceID)
	}
	return meta
}

func discoverAdvertiseIPs() []net.IP {
	ifAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	return filterAdvertiseIPs(ifAddrs)
}

// filterAdvertiseIPs keeps routable unicast addresses, IPv4 first.
func filterAdvertiseIPs(addrs []net.Addr) []net.IP {
	seen := map[string]struct{}{}
	var out []net.IP
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet == nil || ipNet.IP == nil {
			continue
		}
		ip := ipNet.IP
		if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			continue
		}
		normalized := ip.To16()
		if normalized == nil {
			continue
		}
		if _, exists := seen[normalized.String()]; exists {
			continue
		}
		seen[normalized.String()] = struct{}{}
		out = append(out, normalized)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].To4() != nil, out[j].To4() != nil
		if ai != aj {
			return ai
		}
		return out[i].String() < out[j].String()
	})
	return out
}

func listenPortFromAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return "8113"
	case strings.HasPrefix(addr, ":"):
		return strings.TrimPrefix(addr, ":")
	case !strings.Contains(addr, ":"):
		return addr
	}
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return p
}
