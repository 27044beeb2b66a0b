package platform

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"syscall"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
)

// watchCommand asks gpsd to stream JSON reports.
const watchCommand = `?WATCH={"enable":true,"json":true};` + "\n"

// Ensure GPSDProvider implements the interface.
var _ driven.LocationProvider = (*GPSDProvider)(nil)

// GPSDProvider reads the first usable TPV report from a gpsd daemon.
type GPSDProvider struct {
	address string
	dialer  net.Dialer
	now     func() time.Time
}

// NewGPSDProvider creates a provider for a gpsd host:port (usually localhost:2947).
func NewGPSDProvider(address string) *GPSDProvider {
	return &GPSDProvider{
		address: address,
		dialer:  net.Dialer{Timeout: DefaultDialTimeout},
		now:     time.Now,
	}
}

// Supported reports true; whether a receiver is attached is only known
// once gpsd answers.
func (p *GPSDProvider) Supported() bool { return true }

// gpsdReport is the subset of gpsd's JSON protocol read here.
type gpsdReport struct {
	Class string    `json:"class"`
	Mode  int       `json:"mode"`
	Time  time.Time `json:"time"`
	Lat   *float64  `json:"lat"`
	Lon   *float64  `json:"lon"`
	Epx   float64   `json:"epx"`
	Epy   float64   `json:"epy"`
}

// CurrentPosition connects, enables watching and returns the first TPV
// report with a 2D or 3D fix no older than opts.MaximumAge.
func (p *GPSDProvider) CurrentPosition(ctx context.Context, opts domain.GeoOptions) (domain.GeoFix, error) {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		if ctx.Err() != nil {
			return domain.GeoFix{}, ctx.Err()
		}
		return domain.GeoFix{}, classifyDialError(err)
	}
	defer conn.Close()

	// Unblock the reader when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()
	if opts.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
	}

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return domain.GeoFix{}, p.readError(ctx, err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report gpsdReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		fix, ok := p.fixFrom(report, opts.MaximumAge)
		if ok {
			return fix, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.GeoFix{}, p.readError(ctx, err)
	}
	return domain.GeoFix{}, domain.NewGeolocationError(domain.GeoErrUnavailable, "gpsd closed the connection before a fix")
}

// fixFrom converts a TPV report into a fix when it carries a position.
func (p *GPSDProvider) fixFrom(r gpsdReport, maximumAge time.Duration) (domain.GeoFix, bool) {
	if r.Class != "TPV" || r.Mode < 2 || r.Lat == nil || r.Lon == nil {
		return domain.GeoFix{}, false
	}
	captured := r.Time
	if captured.IsZero() {
		captured = p.now()
	}
	if maximumAge > 0 && p.now().Sub(captured) > maximumAge {
		return domain.GeoFix{}, false
	}
	fix := domain.GeoFix{
		Latitude:   *r.Lat,
		Longitude:  *r.Lon,
		Accuracy:   math.Max(r.Epx, r.Epy),
		CapturedAt: captured,
	}
	if err := fix.Validate(); err != nil {
		return domain.GeoFix{}, false
	}
	return fix, true
}

func (p *GPSDProvider) readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewGeolocationError(domain.GeoErrTimeout, "gpsd produced no fix in time")
	}
	return domain.NewGeolocationError(domain.GeoErrUnavailable, fmt.Sprintf("gpsd read: %v", err))
}

func classifyDialError(err error) error {
	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return domain.NewGeolocationError(domain.GeoErrPermissionDenied, fmt.Sprintf("gpsd: %v", err))
	}
	return domain.NewGeolocationError(domain.GeoErrUnavailable, fmt.Sprintf("gpsd unreachable: %v", err))
}
