// Package ble sends transcripts to a hardware keyboard bridge over
// Bluetooth Low Energy. The bridge presents itself as a USB HID keyboard
// to its host and replays whatever this client writes to its text
// characteristic. Payloads are AES-256-GCM encrypted with a pre-shared
// key so a passive listener cannot read dictated text off the air.
package ble

import "context"

// GATT UUIDs of the keyboard bridge service.
const (
	ServiceUUID = "8f1d0001-4c59-4af3-9d2e-b51e7a530c11"
	TextUUID    = "8f1d0002-4c59-4af3-9d2e-b51e7a530c11"
)

// Device is a discovered bridge peripheral.
type Device struct {
	Name string
	Addr string // MAC address, or CoreBluetooth UUID on macOS
	RSSI int
}

// Characteristic is one writable GATT characteristic.
type Characteristic interface {
	Write(data []byte) error
}

// Connection is an active link to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the link drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter so the client is testable
// without a radio.
type Adapter interface {
	// Enable powers on the adapter.
	Enable() error
	// Scan discovers peripherals advertising the given service UUID
	// until ctx is cancelled.
	Scan(ctx context.Context, serviceUUID string) ([]Device, error)
	// Connect establishes a connection to the peripheral at addr.
	Connect(ctx context.Context, addr string) (Connection, error)
}
