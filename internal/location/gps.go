package location

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog"
	"github.com/tarm/serial"

	"github.com/i474232898/spaceweather/internal/weather"
)

var errAlreadyStarted = errors.New("device locator already started")

// idlePause spaces out reads while the port returns nothing.
var idlePause = 50 * time.Millisecond

// GPSLocator streams NMEA sentences from a GPS receiver on a serial port.
type GPSLocator struct {
	port   string
	open   func() (io.ReadCloser, error)
	logger zerolog.Logger

	mu   sync.Mutex
	rc   io.ReadCloser
	quit chan struct{}
}

// NewGPSLocator creates a locator for the receiver at port (e.g. /dev/ttyUSB0).
func NewGPSLocator(port string, baudRate int, logger zerolog.Logger) *GPSLocator {
	return &GPSLocator{
		port: port,
		open: func() (io.ReadCloser, error) {
			return serial.OpenPort(&serial.Config{
				Name:        port,
				Baud:        baudRate,
				ReadTimeout: 500 * time.Millisecond,
			})
		},
		logger: logger,
	}
}

// Start opens the port and calls onFix for every sentence that carries a valid fix.
func (g *GPSLocator) Start(onFix func(weather.Coordinates)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rc != nil {
		return errAlreadyStarted
	}
	rc, err := g.open()
	if err != nil {
		return fmt.Errorf("open gps port %s: %w", g.port, err)
	}
	g.rc = rc
	g.quit = make(chan struct{})

	go g.read(rc, g.quit, onFix)
	return nil
}

// Stop closes the port. onFix is not called after Stop returns, apart from a
// sentence already being handled.
func (g *GPSLocator) Stop() error {
	g.mu.Lock()
	rc, quit := g.rc, g.quit
	g.rc, g.quit = nil, nil
	g.mu.Unlock()

	if rc == nil {
		return nil
	}
	close(quit)
	return rc.Close()
}

func (g *GPSLocator) read(r io.Reader, quit <-chan struct{}, onFix func(weather.Coordinates)) {
	br := bufio.NewReader(r)
	var line strings.Builder

	for {
		select {
		case <-quit:
			return
		default:
		}

		chunk, err := br.ReadString('\n')
		line.WriteString(chunk)
		if strings.HasSuffix(chunk, "\n") {
			if c, ok := ParseFix(line.String()); ok {
				select {
				case <-quit:
					return
				default:
					onFix(c)
				}
			}
			line.Reset()
		}
		if err != nil {
			// tarm/serial reports a quiet line (VMIN=0) as io.EOF once
			// ReadTimeout elapses; keep reading until Stop.
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrNoProgress) {
				if chunk == "" {
					select {
					case <-quit:
						return
					case <-time.After(idlePause):
					}
				}
				continue
			}
			g.logger.Debug().Err(err).Str("port", g.port).Msg("gps read stopped")
			return
		}
	}
}

// ParseFix extracts a position from a GGA or RMC sentence. Sentences without a
// fix, with a bad checksum, or of any other type are rejected.
func ParseFix(line string) (weather.Coordinates, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return weather.Coordinates{}, false
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		return weather.Coordinates{}, false
	}

	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == "" || s.FixQuality == nmea.Invalid {
			return weather.Coordinates{}, false
		}
		return weather.Coordinates{Lat: s.Latitude, Lon: s.Longitude}, true
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return weather.Coordinates{}, false
		}
		return weather.Coordinates{Lat: s.Latitude, Lon: s.Longitude}, true
	default:
		return weather.Coordinates{}, false
	}
}
