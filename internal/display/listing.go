package display

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	portMarker        = "Monitor ["
	displayNameMarker = "display-name:"
)

var modePattern = regexp.MustCompile(`^\d+x\d+@[\d.]+$`)

// Monitor is one physical output from the monitor-configuration listing
type Monitor struct {
	Port        string   `json:"port" yaml:"port"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Vendor      string   `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Product     string   `json:"product,omitempty" yaml:"product,omitempty"`
	Serial      string   `json:"serial,omitempty" yaml:"serial,omitempty"`
	Modes       []string `json:"modes,omitempty" yaml:"modes,omitempty"`
	CurrentMode string   `json:"current_mode,omitempty" yaml:"current_mode,omitempty"`
}

// FindPort scans a listing for the port of the monitor whose display-name
// line contains name. The port is taken from the most recent
// "Monitor [ <port> ]" line seen before the match.
func FindPort(listing, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("monitor display name cannot be empty")
	}

	currentPort := ""
	for _, line := range strings.Split(listing, "\n") {
		line = strings.TrimSpace(line)

		if port, ok := parsePortLine(line); ok {
			currentPort = port
			continue
		}

		if strings.Contains(line, displayNameMarker) && strings.Contains(line, name) {
			if currentPort == "" {
				return "", fmt.Errorf("monitor %q listed before any port", name)
			}
			return currentPort, nil
		}
	}
	return "", fmt.Errorf("could not find monitor with display name: %s", name)
}

// ParseMonitors turns a full listing into Monitor records
func ParseMonitors(listing string) []Monitor {
	var (
		monitors []Monitor
		current  *Monitor
	)
	flush := func() {
		if current != nil {
			monitors = append(monitors, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(listing, "\n") {
		line = strings.TrimSpace(line)

		if port, ok := parsePortLine(line); ok {
			flush()
			current = &Monitor{Port: port}
			continue
		}
		if strings.HasPrefix(line, "Logical monitor") {
			flush()
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, displayNameMarker):
			current.DisplayName = fieldValue(line)
		case strings.HasPrefix(line, "vendor:"):
			current.Vendor = fieldValue(line)
		case strings.HasPrefix(line, "product:"):
			current.Product = fieldValue(line)
		case strings.HasPrefix(line, "serial:"):
			current.Serial = fieldValue(line)
		default:
			fields := strings.Fields(line)
			if len(fields) == 0 || !modePattern.MatchString(fields[0]) {
				continue
			}
			current.Modes = append(current.Modes, fields[0])
			if strings.Contains(line, "CURRENT") {
				current.CurrentMode = fields[0]
			}
		}
	}
	flush()

	return monitors
}

func parsePortLine(line string) (string, bool) {
	idx := strings.Index(line, portMarker)
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(portMarker):]
	end := strings.Index(rest, "]")
	if end < 0 {
		return "", false
	}
	port := strings.TrimSpace(rest[:end])
	return port, port != ""
}

func fieldValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}
