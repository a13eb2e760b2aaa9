// Package enrich derives device, browser, OS and location attributes from the
// raw user-agent and source address of a scan request. Enrichment never fails:
// anything that cannot be determined is reported as Unknown.
package enrich

import (
	"net/http"
	"net/netip"
	"strings"
)

// Unknown is the value stored for any attribute that could not be derived.
const Unknown = "unknown"

// Device classes.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = Unknown
)

// Enrichment is the derived context of a single scan.
type Enrichment struct {
	DeviceClass string
	Browser     string
	OS          string
	Country     string
	City        string
	IPAddress   string
}

// Agent is what a Source extracts from a user-agent string. Device holds the
// raw device-type signal: DeviceMobile, DeviceTablet, empty when the agent
// carries no device-type signal, or any other signal such as "bot".
type Agent struct {
	Device  string
	Browser string
	OS      string
}

// Location is a geo lookup result. Empty fields are treated as unknown.
type Location struct {
	Country string
	City    string
}

// Source supplies user-agent parsing and geo lookup.
type Source interface {
	ParseAgent(userAgent string) Agent
	Locate(addr netip.Addr) (Location, bool)
}

type Enricher struct {
	src Source
}

func New(src Source) *Enricher {
	if src == nil {
		src = StubSource{}
	}
	return &Enricher{src: src}
}

// Enrich derives the scan context for userAgent and sourceAddress.
func (e *Enricher) Enrich(userAgent, sourceAddress string) Enrichment {
	agent := e.src.ParseAgent(userAgent)

	out := Enrichment{
		DeviceClass: ClassifyDevice(agent.Device),
		Browser:     orUnknown(agent.Browser),
		OS:          orUnknown(agent.OS),
		Country:     Unknown,
		City:        Unknown,
		IPAddress:   Unknown,
	}

	addr, ok := NormalizeAddress(sourceAddress)
	if !ok {
		return out
	}
	out.IPAddress = addr.String()

	if loc, found := e.src.Locate(addr); found {
		out.Country = orUnknown(loc.Country)
		out.City = orUnknown(loc.City)
	}
	return out
}

// ClassifyDevice maps a raw device-type signal to a device class. Mobile and
// tablet map directly, no signal means desktop, anything else is unknown.
func ClassifyDevice(signal string) string {
	switch strings.ToLower(strings.TrimSpace(signal)) {
	case DeviceMobile:
		return DeviceMobile
	case DeviceTablet:
		return DeviceTablet
	case "":
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

// NormalizeAddress parses raw as an IP address, accepting an optional port,
// and unmaps IPv4-in-IPv6 addresses.
func NormalizeAddress(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		ap, perr := netip.ParseAddrPort(raw)
		if perr != nil {
			return netip.Addr{}, false
		}
		addr = ap.Addr()
	}
	return addr.WithZone("").Unmap(), true
}

// ClientAddress returns the source address of r: the first X-Forwarded-For
// entry when present, otherwise the host part of RemoteAddr.
func ClientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().String()
	}
	return r.RemoteAddr
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Unknown
	}
	return s
}
