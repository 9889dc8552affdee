// Package codec provides a zero-copy-minded view over the fixed-layout
// binary packets emitted by the simulator's UDP telemetry stream.
//
// Every accessor here trusts the caller's buffer to outlive the returned
// view; nothing is copied beyond what Go's slicing already shares.
package codec

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the byte length of the shared packet header.
const HeaderSize = 29

// SupportedProtocolFormat is the only packet_format this codec accepts.
// Anything else means the simulator is speaking a wire version this
// service was not built against.
const SupportedProtocolFormat = 2024

// PacketClass identifies the payload that follows the header.
type PacketClass uint8

const (
	ClassMotion PacketClass = iota
	ClassSession
	ClassLapData
	ClassEvent
	ClassParticipants
	ClassCarSetups
	ClassCarTelemetry
	ClassCarStatus
	ClassFinalClassification
	ClassLobbyInfo
	ClassCarDamage
	ClassSessionHistory
	ClassTyreSets
	ClassMotionEx
	ClassTimeTrial
)

// Consumed reports whether the ingestion engine acts on this class at all.
// The remaining classes are recognised (so header parsing never treats
// them as malformed) but are dropped without further parsing.
func (c PacketClass) Consumed() bool {
	switch c {
	case ClassMotion, ClassSession, ClassEvent, ClassParticipants,
		ClassFinalClassification, ClassSessionHistory,
		ClassCarDamage, ClassCarStatus, ClassCarTelemetry:
		return true
	default:
		return false
	}
}

func (c PacketClass) known() bool {
	return c <= ClassTimeTrial
}

// Header is the 29-byte prefix shared by every packet class.
type Header struct {
	PacketFormat            uint16
	GameYear                uint8
	GameMajorVersion        uint8
	GameMinorVersion        uint8
	PacketVersion           uint8
	PacketID                uint8
	SessionUID              uint64
	SessionTime             float32
	FrameIdentifier         uint32
	OverallFrameIdentifier  uint32
	PlayerCarIndex          uint8
	SecondaryPlayerCarIndex uint8
}

// Class returns the packet class this header declares, or false if the
// byte is outside the known set entirely (as opposed to merely unconsumed).
func (h Header) Class() (PacketClass, bool) {
	c := PacketClass(h.PacketID)
	return c, c.known()
}

// ParseHeader reads the fixed header prefix from buf. It fails only when
// buf is shorter than HeaderSize; it never validates field values (that is
// the caller's job, e.g. checking PacketFormat against SupportedProtocolFormat).
func ParseHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("codec: buffer of %d bytes shorter than header size %d", len(buf), HeaderSize)
	}

	h.PacketFormat = binary.LittleEndian.Uint16(buf[0:2])
	h.GameYear = buf[2]
	h.GameMajorVersion = buf[3]
	h.GameMinorVersion = buf[4]
	h.PacketVersion = buf[5]
	h.PacketID = buf[6]
	h.SessionUID = binary.LittleEndian.Uint64(buf[7:15])
	h.SessionTime = float32FromBits(binary.LittleEndian.Uint32(buf[15:19]))
	h.FrameIdentifier = binary.LittleEndian.Uint32(buf[19:23])
	h.OverallFrameIdentifier = binary.LittleEndian.Uint32(buf[23:27])
	h.PlayerCarIndex = buf[27]
	h.SecondaryPlayerCarIndex = buf[28]
	return h, nil
}
