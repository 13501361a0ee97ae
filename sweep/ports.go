package sweep

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/banshee-data/sweep/internal/monitoring"
)

// The Sweep connects through an FTDI USB-serial bridge.
const ftdiVendorID = "0403"

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string `json:"name"`
	USB          bool   `json:"usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
	// Candidate is set for ports behind an FTDI bridge, which is how a Sweep
	// appears.
	Candidate bool `json:"candidate"`
}

// Replaced in tests.
var (
	detailedPortsList = enumerator.GetDetailedPortsList
	portsList         = serial.GetPortsList
)

// ListPorts enumerates the serial ports on the host, likely Sweep ports first.
// It falls back to a plain list of names where USB details are unavailable.
// Nothing here talks to the native driver.
func ListPorts() ([]PortInfo, error) {
	details, err := detailedPortsList()
	if err != nil {
		monitoring.Logf("detailed port enumeration failed, falling back to names: %v", err)
		names, err := portsList()
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
		}
		ports := make([]PortInfo, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortInfo{Name: name})
		}
		sortPorts(ports)
		return ports, nil
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, PortInfo{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
			Candidate:    d.IsUSB && strings.EqualFold(d.VID, ftdiVendorID),
		})
	}
	sortPorts(ports)
	return ports, nil
}

func sortPorts(ports []PortInfo) {
	sort.SliceStable(ports, func(i, j int) bool {
		if ports[i].Candidate != ports[j].Candidate {
			return ports[i].Candidate
		}
		return ports[i].Name < ports[j].Name
	})
}
