// ABOUTME: mDNS advertisement for the remote control surface
// ABOUTME: Announces _brownnoise._tcp so controllers can find the player
package remote

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/harperreed/brownnoise/internal/version"
	"github.com/hashicorp/mdns"
)

// ServiceType is the advertised DNS-SD service
const ServiceType = "_brownnoise._tcp"

// Advertiser owns one mDNS responder
type Advertiser struct {
	server *mdns.Server
}

// serviceTXT returns the TXT records for the service
func serviceTXT() []string {
	return []string{
		"path=/control",
		"state=/state",
		"version=" + version.Version,
		"manufacturer=" + version.Manufacturer,
	}
}

// Advertise announces name on port until Shutdown
func Advertise(name string, port int, logger *slog.Logger) (*Advertiser, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ips, err := getLocalIPs()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		name,
		ServiceType,
		"",
		"",
		port,
		ips,
		serviceTXT(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns server: %w", err)
	}

	logger.Info("advertising mDNS service", "name", name, "port", port, "type", ServiceType)
	return &Advertiser{server: server}, nil
}

// Shutdown stops answering queries
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// getLocalIPs returns local IPv4 addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
