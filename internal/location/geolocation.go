package location

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"

	"github.com/i474232898/spaceweather/internal/weather"
)

// GeolocationLocator asks the Google Geolocation API for a position, sending nearby
// Wi-Fi access points when nmcli can list them.
type GeolocationLocator struct {
	client  *maps.Client
	timeout time.Duration
	scan    func(ctx context.Context) ([]maps.WiFiAccessPoint, error)
	logger  zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewGeolocationLocator(apiKey string, timeout time.Duration, logger zerolog.Logger) (*GeolocationLocator, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google geolocation client: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultDeviceTimeout
	}
	return &GeolocationLocator{
		client:  c,
		timeout: timeout,
		scan:    wifiAccessPoints,
		logger:  logger,
	}, nil
}

// Start issues one geolocation request in the background and reports its result to onFix.
func (g *GeolocationLocator) Start(onFix func(weather.Coordinates)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		return errAlreadyStarted
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	g.cancel = cancel

	go func() {
		req := &maps.GeolocationRequest{ConsiderIP: true}
		if aps, err := g.scan(ctx); err != nil {
			g.logger.Debug().Err(err).Msg("wifi scan unavailable")
		} else {
			req.WiFiAccessPoints = aps
		}

		resp, err := g.client.Geolocate(ctx, req)
		if err != nil {
			if ctx.Err() == nil {
				g.logger.Warn().Err(err).Msg("google geolocation failed")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		g.logger.Debug().Float64("accuracy_m", resp.Accuracy).Msg("google geolocation fix")
		onFix(weather.Coordinates{Lat: resp.Location.Lat, Lon: resp.Location.Lng})
	}()
	return nil
}

// Stop cancels an outstanding request.
func (g *GeolocationLocator) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	return nil
}

func wifiAccessPoints(ctx context.Context) ([]maps.WiFiAccessPoint, error) {
	if _, err := exec.LookPath("nmcli"); err != nil {
		return nil, fmt.Errorf("nmcli not found: %w", err)
	}
	out, err := exec.CommandContext(ctx, "nmcli", "-t", "-f", "BSSID,SIGNAL", "dev", "wifi", "list").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run nmcli: %w", err)
	}
	return parseWiFiList(string(out)), nil
}

// parseWiFiList reads nmcli terse output. nmcli escapes the colons inside a BSSID,
// so the signal is whatever follows the last unescaped colon. Signal quality
// (0-100) is converted to an approximate dBm value.
func parseWiFiList(out string) []maps.WiFiAccessPoint {
	var aps []maps.WiFiAccessPoint
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		i := strings.LastIndex(line, ":")
		if i <= 0 || line[i-1] == '\\' {
			continue
		}
		mac := strings.ReplaceAll(line[:i], `\:`, ":")
		quality, err := strconv.Atoi(strings.TrimSpace(line[i+1:]))
		if err != nil || len(mac) != 17 {
			continue
		}
		aps = append(aps, maps.WiFiAccessPoint{
			MACAddress:     strings.ToLower(mac),
			SignalStrength: float64(quality)/2 - 100,
		})
	}
	return aps
}
