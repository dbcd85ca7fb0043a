// Package pcp implements the PcpHandler core state machine: every public
// operation advertising, discovery, connection request/accept/reject,
// option updates, and endpoint injection dispatch onto a single serial
// executor, so the central pending/discovered-endpoint state needs no
// locking beyond what internal/discovery.Table already does for
// cross-thread medium callbacks (spec.md §4.5, §5).
package pcp

import "nearcore/internal/medium"

// Status is the subset of result codes the core produces (spec.md §6.4).
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusAlreadyConnectedToEndpoint
	StatusOutOfOrderApiCall
	StatusEndpointUnknown
	StatusEndpointIOError
	StatusConnectionRejected
	StatusBluetoothError
	StatusBLEError
	StatusWifiLanError
	StatusAlreadyListening
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusAlreadyConnectedToEndpoint:
		return "ALREADY_CONNECTED_TO_ENDPOINT"
	case StatusOutOfOrderApiCall:
		return "OUT_OF_ORDER_API_CALL"
	case StatusEndpointUnknown:
		return "ENDPOINT_UNKNOWN"
	case StatusEndpointIOError:
		return "ENDPOINT_IO_ERROR"
	case StatusConnectionRejected:
		return "CONNECTION_REJECTED"
	case StatusBluetoothError:
		return "BLUETOOTH_ERROR"
	case StatusBLEError:
		return "BLE_ERROR"
	case StatusWifiLanError:
		return "WIFI_LAN_ERROR"
	case StatusAlreadyListening:
		return "ALREADY_LISTENING"
	default:
		return "ERROR"
	}
}

// mediumErrorStatus maps a medium that failed to start to the status code
// family spec.md §6.4 reserves for it; mediums with no dedicated code fall
// back to the generic error.
func mediumErrorStatus(m medium.Medium) Status {
	switch m {
	case medium.Bluetooth:
		return StatusBluetoothError
	case medium.BLE:
		return StatusBLEError
	case medium.WifiLan:
		return StatusWifiLanError
	default:
		return StatusError
	}
}
