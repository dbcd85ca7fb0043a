package pcp

import (
	"testing"

	"nearcore/internal/medium"
)

func TestStatusStringCoversEveryConstant(t *testing.T) {
	cases := map[Status]string{
		StatusSuccess:                    "SUCCESS",
		StatusError:                      "ERROR",
		StatusAlreadyConnectedToEndpoint: "ALREADY_CONNECTED_TO_ENDPOINT",
		StatusOutOfOrderApiCall:          "OUT_OF_ORDER_API_CALL",
		StatusEndpointUnknown:            "ENDPOINT_UNKNOWN",
		StatusEndpointIOError:            "ENDPOINT_IO_ERROR",
		StatusConnectionRejected:         "CONNECTION_REJECTED",
		StatusBluetoothError:             "BLUETOOTH_ERROR",
		StatusBLEError:                   "BLE_ERROR",
		StatusWifiLanError:               "WIFI_LAN_ERROR",
		StatusAlreadyListening:           "ALREADY_LISTENING",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestStatusStringDefaultsToError(t *testing.T) {
	if got := Status(999).String(); got != "ERROR" {
		t.Fatalf("expected unknown status to render as ERROR, got %q", got)
	}
}

func TestMediumErrorStatusMapsKnownMediums(t *testing.T) {
	cases := map[medium.Medium]Status{
		medium.Bluetooth:  StatusBluetoothError,
		medium.BLE:        StatusBLEError,
		medium.WifiLan:    StatusWifiLanError,
		medium.WifiDirect: StatusError,
		medium.WebRTC:     StatusError,
	}
	for m, want := range cases {
		if got := mediumErrorStatus(m); got != want {
			t.Errorf("mediumErrorStatus(%s) = %v, want %v", m, got, want)
		}
	}
}
