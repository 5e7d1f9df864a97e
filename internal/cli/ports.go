package cli

import (
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/espdecode/internal/output"
	"github.com/vburojevic/espdecode/internal/transport"
)

// PortsCmd lists the serial ports of the host
type PortsCmd struct{}

type portRecord struct {
	Type          string `json:"type"` // "port"
	SchemaVersion int    `json:"schemaVersion"`
	transport.PortInfo
}

// Run executes the ports command
func (c *PortsCmd) Run(globals *Globals) error {
	ports, err := transport.ListPorts()
	if err != nil {
		return outputErrorCommon(globals, codeNoPort, err.Error())
	}
	return c.render(globals, ports)
}

func (c *PortsCmd) render(globals *Globals, ports []transport.PortInfo) error {
	if globals.Format == "ndjson" {
		enc := json.NewEncoder(globals.Stdout)
		for _, p := range ports {
			if err := enc.Encode(portRecord{Type: "port", SchemaVersion: output.SchemaVersion, PortInfo: p}); err != nil {
				return err
			}
		}
		return nil
	}

	if len(ports) == 0 {
		fmt.Fprintln(globals.Stdout, "No serial ports found")
		return nil
	}

	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("Port", "USB", "VID:PID", "Serial", "Product")
	for _, p := range ports {
		usb, id := "no", ""
		if p.USB {
			usb, id = "yes", p.VID+":"+p.PID
		}
		if err := table.Append([]string{p.Name, usb, id, p.SerialNumber, p.Product}); err != nil {
			return err
		}
	}
	return table.Render()
}
