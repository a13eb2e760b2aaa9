package enrich

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/mileusna/useragent"
	"github.com/oschwald/geoip2-golang"
)

// LookupSource parses user agents with mileusna/useragent and resolves
// locations from a MaxMind City database. Geo lookup is disabled when no
// database is configured.
type LookupSource struct {
	geo *geoip2.Reader
}

// NewLookupSource opens the MaxMind database at geoDBPath. An empty path
// yields a source without geo lookup.
func NewLookupSource(geoDBPath string) (*LookupSource, error) {
	if geoDBPath == "" {
		return &LookupSource{}, nil
	}

	reader, err := geoip2.Open(geoDBPath)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &LookupSource{geo: reader}, nil
}

func (s *LookupSource) ParseAgent(userAgent string) Agent {
	if userAgent == "" {
		return Agent{}
	}

	ua := useragent.Parse(userAgent)

	var device string
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Tablet:
		device = DeviceTablet
	case ua.Mobile:
		device = DeviceMobile
	}

	return Agent{
		Device:  device,
		Browser: ua.Name,
		OS:      ua.OS,
	}
}

func (s *LookupSource) Locate(addr netip.Addr) (Location, bool) {
	if s.geo == nil || !addr.IsValid() {
		return Location{}, false
	}

	rec, err := s.geo.City(net.IP(addr.AsSlice()))
	if err != nil {
		return Location{}, false
	}

	loc := Location{
		Country: rec.Country.IsoCode,
		City:    rec.City.Names["en"],
	}
	if loc.Country == "" && loc.City == "" {
		return Location{}, false
	}
	return loc, true
}

// GeoEnabled reports whether a geo database is loaded.
func (s *LookupSource) GeoEnabled() bool { return s.geo != nil }

func (s *LookupSource) Close() error {
	if s.geo == nil {
		return nil
	}
	return s.geo.Close()
}

// StubSource answers from fixed tables. Unlisted agents carry no device
// signal and unlisted addresses have no location.
type StubSource struct {
	Agents    map[string]Agent
	Locations map[string]Location
}

func (s StubSource) ParseAgent(userAgent string) Agent {
	return s.Agents[userAgent]
}

func (s StubSource) Locate(addr netip.Addr) (Location, bool) {
	loc, ok := s.Locations[addr.String()]
	return loc, ok
}
