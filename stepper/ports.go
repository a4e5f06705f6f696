package stepper

import (
	"fmt"
	"slices"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ListPorts returns the names of the serial ports available on the host, sorted.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("stepper: failed to list serial ports: %w", err)
	}
	slices.Sort(ports)
	return ports, nil
}

// PortDetails describes a serial port available on the host.
type PortDetails struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

func (pd *PortDetails) String() string {
	if !pd.IsUSB {
		return pd.Name
	}
	s := fmt.Sprintf("%s (USB %s:%s", pd.Name, pd.VID, pd.PID)
	if pd.Product != "" {
		s += " " + pd.Product
	}
	if pd.SerialNumber != "" {
		s += " S/N " + pd.SerialNumber
	}
	return s + ")"
}

// ListPortDetails returns details of the serial ports available on the host, sorted by name.
func ListPortDetails() ([]*PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("stepper: failed to list serial ports: %w", err)
	}
	portDetails := make([]*PortDetails, 0, len(ports))
	for _, port := range ports {
		portDetails = append(portDetails, &PortDetails{
			Name:         port.Name,
			IsUSB:        port.IsUSB,
			VID:          port.VID,
			PID:          port.PID,
			SerialNumber: port.SerialNumber,
			Product:      port.Product,
		})
	}
	slices.SortFunc(portDetails, func(a, b *PortDetails) int {
		return strings.Compare(a.Name, b.Name)
	})
	return portDetails, nil
}
