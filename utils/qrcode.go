package utils

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// EventCheckinQR renders the check-in deep link for an event as a PNG QR
// code. The mobile app scans it at the door.
func EventCheckinQR(eventID string) ([]byte, error) {
	content := "pbr://event/" + eventID + "/checkin"

	qrCode, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %v", err)
	}

	qrCode, err = barcode.Scale(qrCode, 300, 300)
	if err != nil {
		return nil, fmt.Errorf("failed to scale QR code: %v", err)
	}

	buffer := new(bytes.Buffer)
	if err := png.Encode(buffer, qrCode); err != nil {
		return nil, fmt.Errorf("failed to encode QR code as PNG: %v", err)
	}

	return buffer.Bytes(), nil
}
