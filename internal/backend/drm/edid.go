package drm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEDID is returned for blobs without a valid EDID base block
var ErrInvalidEDID = errors.New("invalid EDID")

var edidHeader = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

// EDID holds the fields of an EDID base block the backend reports
type EDID struct {
	Manufacturer string // three letter PNP ID
	Product      uint16
	Serial       uint32
	MonitorName  string
	SerialString string
	WidthMM      int32
	HeightMM     int32
	// Preferred timing from the first detailed timing descriptor
	Preferred *Timing
}

// Timing is a detailed timing descriptor reduced to a mode
type Timing struct {
	Width   int32
	Height  int32
	Refresh int32 // mHz
}

// Make returns the vendor name for the manufacturer ID, or the ID itself
func (e *EDID) Make() string {
	if name, ok := pnpVendors[e.Manufacturer]; ok {
		return name
	}
	return e.Manufacturer
}

// Model returns the monitor name descriptor, or the product code
func (e *EDID) Model() string {
	if e.MonitorName != "" {
		return e.MonitorName
	}
	return fmt.Sprintf("0x%04X", e.Product)
}

// ParseEDID decodes the 128 byte base block
func ParseEDID(data []byte) (*EDID, error) {
	if len(data) < 128 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidEDID, len(data))
	}
	if !bytes.Equal(data[:8], edidHeader) {
		return nil, fmt.Errorf("%w: bad header", ErrInvalidEDID)
	}

	id := binary.BigEndian.Uint16(data[8:10])
	e := &EDID{
		Manufacturer: string([]byte{
			byte('A' - 1 + (id>>10)&0x1f),
			byte('A' - 1 + (id>>5)&0x1f),
			byte('A' - 1 + id&0x1f),
		}),
		Product:  binary.LittleEndian.Uint16(data[10:12]),
		Serial:   binary.LittleEndian.Uint32(data[12:16]),
		WidthMM:  int32(data[21]) * 10,
		HeightMM: int32(data[22]) * 10,
	}

	for i := 0; i < 4; i++ {
		d := data[54+18*i : 72+18*i]
		if d[0] != 0 || d[1] != 0 {
			if i == 0 {
				e.parseTiming(d)
			}
			continue
		}
		switch d[3] {
		case 0xfc:
			e.MonitorName = descriptorText(d[5:])
		case 0xff:
			e.SerialString = descriptorText(d[5:])
		}
	}
	return e, nil
}

func (e *EDID) parseTiming(d []byte) {
	clock := int64(binary.LittleEndian.Uint16(d[0:2])) * 10000 // Hz
	hactive := int64(d[2]) | int64(d[4]&0xf0)<<4
	hblank := int64(d[3]) | int64(d[4]&0x0f)<<8
	vactive := int64(d[5]) | int64(d[7]&0xf0)<<4
	vblank := int64(d[6]) | int64(d[7]&0x0f)<<8

	total := (hactive + hblank) * (vactive + vblank)
	if total == 0 {
		return
	}
	e.Preferred = &Timing{
		Width:   int32(hactive),
		Height:  int32(vactive),
		Refresh: int32((clock*1000 + total/2) / total),
	}

	// the timing carries the size in millimeters, more precise than the
	// centimeters in the basic parameters
	wmm := int32(d[12]) | int32(d[14]&0xf0)<<4
	hmm := int32(d[13]) | int32(d[14]&0x0f)<<8
	if wmm > 0 && hmm > 0 {
		e.WidthMM, e.HeightMM = wmm, hmm
	}
}

func descriptorText(b []byte) string {
	if i := bytes.IndexByte(b, 0x0a); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

var pnpVendors = map[string]string{
	"ACR": "Acer Technologies",
	"APP": "Apple Computer Inc",
	"AUO": "AU Optronics",
	"AUS": "ASUSTek COMPUTER INC",
	"BNQ": "BenQ Corporation",
	"BOE": "BOE",
	"CMN": "Chimei Innolux Corporation",
	"DEL": "Dell Inc.",
	"GSM": "LG Electronics",
	"HWP": "HP Inc.",
	"LEN": "Lenovo Group Limited",
	"PHL": "Philips Consumer Electronics Company",
	"SAM": "Samsung Electric Company",
	"SHP": "Sharp Corporation",
	"VSC": "ViewSonic Corporation",
}
