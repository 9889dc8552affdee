package codec

import "github.com/racewire/telemetry-hub/internal/apperrors"

// EventCode is the 4-character ASCII code the event packet carries
// verbatim from the simulator (e.g. "FTLP", "PENA").
type EventCode string

const (
	EventFastestLap               EventCode = "FTLP"
	EventRetirement                EventCode = "RTMT"
	EventDRSEnabled                 EventCode = "DRSE"
	EventDRSDisabled                EventCode = "DRSD"
	EventTeamMateInPits            EventCode = "TMPT"
	EventChequeredFlag              EventCode = "CHQF"
	EventRaceWinner                 EventCode = "RCWN"
	EventPenaltyIssued              EventCode = "PENA"
	EventSpeedTrapTriggered         EventCode = "SPTP"
	EventStartLights                EventCode = "STLG"
	EventLightsOut                  EventCode = "LGOT"
	EventDriveThroughServed         EventCode = "DTSV"
	EventStopGoServed               EventCode = "SGSV"
	EventFlashback                  EventCode = "FLBK"
	EventButtons                    EventCode = "BUTN"
	EventOvertake                   EventCode = "OVTK"
	EventSafetyCar                  EventCode = "SCAR"
	EventCollision                  EventCode = "COLL"
	EventSendToClient               EventCode = "SEND"
	EventReturnToGrid               EventCode = "RFGO"
)

// droppedEventCodes never reach a session: they are either pure UI noise
// (button telemetry, flashback bookkeeping) or redundant with state the
// session already tracks some other way (DRS state is visible on every
// telemetry tick; the chequered flag and lights-out moments are implied by
// session phase transitions).
var droppedEventCodes = map[EventCode]bool{
	EventDRSEnabled:      true,
	EventDRSDisabled:     true,
	EventChequeredFlag:   true,
	EventLightsOut:       true,
	EventFlashback:       true,
	EventButtons:         true,
	EventTeamMateInPits:  true,
	EventSendToClient:    true,
	EventReturnToGrid:    true,
}

// Dropped reports whether code is intentionally discarded rather than
// turned into an EventDetails value.
func (c EventCode) Dropped() bool { return droppedEventCodes[c] }

// EventDetails is a tagged union over the per-code event payload. Exactly
// one of the typed fields is meaningful, selected by Code; callers should
// switch on Code rather than probe for zero values, since a zero
// VehicleIdx is itself meaningful (car 0).
type EventDetails struct {
	Code EventCode

	FastestLap               *FastestLapDetails
	Retirement                *VehicleDetail
	RaceWinner                *VehicleDetail
	Penalty                   *PenaltyDetails
	SpeedTrap                 *SpeedTrapDetails
	StartLights               *StartLightsDetails
	DriveThroughServed        *VehicleDetail
	StopGoServed              *VehicleDetail
	Overtake                  *OvertakeDetails
	SafetyCar                 *SafetyCarDetails
	Collision                 *CollisionDetails
}

// FastestLapDetails reports the car that just set the session's fastest lap.
type FastestLapDetails struct {
	VehicleIdx uint8
	LapTime    float32
}

// VehicleDetail is the shared shape for every event whose only payload is
// a single car index (retirement, race winner, drive-through/stop-go
// penalty service).
type VehicleDetail struct {
	VehicleIdx uint8
}

// PenaltyDetails reports a penalty handed to one car, optionally involving
// a second car (e.g. a collision penalty).
type PenaltyDetails struct {
	PenaltyType       uint8
	InfringementType  uint8
	VehicleIdx        uint8
	OtherVehicleIdx    uint8
	Time               uint8
	LapNum             uint8
	PlacesGained       uint8
}

// SpeedTrapDetails reports a speed-trap crossing and whether it was a
// session- or driver-best.
type SpeedTrapDetails struct {
	VehicleIdx                  uint8
	Speed                       float32
	IsOverallFastestInSession   bool
	IsDriverFastestInSession    bool
	FastestVehicleIdxInSession  uint8
	FastestSpeedInSession       float32
}

// StartLightsDetails reports the current light count in the starting
// sequence.
type StartLightsDetails struct {
	NumLights uint8
}

// OvertakeDetails reports one car passing another.
type OvertakeDetails struct {
	OvertakingVehicleIdx      uint8
	BeingOvertakenVehicleIdx  uint8
}

// SafetyCarDetails reports a safety car deployment or withdrawal.
type SafetyCarDetails struct {
	SafetyCarType uint8
	EventType     uint8
}

// CollisionDetails reports a collision between two cars.
type CollisionDetails struct {
	Vehicle1Idx uint8
	Vehicle2Idx uint8
}

const eventDetailsUnionSize = 12 // SpeedTrap is the union's widest member.

// ParseEventPacket parses an Event class packet body: a 4-byte string
// code followed by a fixed-size union whose active member depends on
// that code.
func ParseEventPacket(h Header, body []byte) (EventPacket, error) {
	var p EventPacket
	p.Header = h
	if err := expectSize(body, 4+eventDetailsUnionSize, "event"); err != nil {
		return p, err
	}
	code := EventCode(body[0:4])
	union := body[4 : 4+eventDetailsUnionSize]
	p.Details = decodeEventDetails(code, union)
	return p, nil
}

// EventPacket is the header-plus-union payload of an Event class packet.
type EventPacket struct {
	Header  Header
	Details EventDetails
}

func decodeEventDetails(code EventCode, union []byte) EventDetails {
	d := EventDetails{Code: code}
	switch code {
	case EventFastestLap:
		d.FastestLap = &FastestLapDetails{
			VehicleIdx: union[0],
			LapTime:    readF32(union, 1),
		}
	case EventRetirement:
		d.Retirement = &VehicleDetail{VehicleIdx: union[0]}
	case EventRaceWinner:
		d.RaceWinner = &VehicleDetail{VehicleIdx: union[0]}
	case EventPenaltyIssued:
		d.Penalty = &PenaltyDetails{
			PenaltyType:      union[0],
			InfringementType: union[1],
			VehicleIdx:       union[2],
			OtherVehicleIdx:  union[3],
			Time:             union[4],
			LapNum:           union[5],
			PlacesGained:     union[6],
		}
	case EventSpeedTrapTriggered:
		d.SpeedTrap = &SpeedTrapDetails{
			VehicleIdx:                 union[0],
			Speed:                      readF32(union, 1),
			IsOverallFastestInSession:  union[5] != 0,
			IsDriverFastestInSession:   union[6] != 0,
			FastestVehicleIdxInSession: union[7],
			FastestSpeedInSession:      readF32(union, 8),
		}
	case EventStartLights:
		d.StartLights = &StartLightsDetails{NumLights: union[0]}
	case EventDriveThroughServed:
		d.DriveThroughServed = &VehicleDetail{VehicleIdx: union[0]}
	case EventStopGoServed:
		d.StopGoServed = &VehicleDetail{VehicleIdx: union[0]}
	case EventOvertake:
		d.Overtake = &OvertakeDetails{
			OvertakingVehicleIdx:     union[0],
			BeingOvertakenVehicleIdx: union[1],
		}
	case EventSafetyCar:
		d.SafetyCar = &SafetyCarDetails{
			SafetyCarType: union[0],
			EventType:     union[1],
		}
	case EventCollision:
		d.Collision = &CollisionDetails{
			Vehicle1Idx: union[0],
			Vehicle2Idx: union[1],
		}
	}
	return d
}

// knownEventCode reports whether code is one this codec recognises at
// all, dropped or not. Unknown codes indicate a protocol mismatch rather
// than an uninteresting event and should be logged as such upstream.
func knownEventCode(code EventCode) bool {
	switch code {
	case EventFastestLap, EventRetirement, EventDRSEnabled, EventDRSDisabled,
		EventTeamMateInPits, EventChequeredFlag, EventRaceWinner, EventPenaltyIssued,
		EventSpeedTrapTriggered, EventStartLights, EventLightsOut, EventDriveThroughServed,
		EventStopGoServed, EventFlashback, EventButtons, EventOvertake, EventSafetyCar,
		EventCollision, EventSendToClient, EventReturnToGrid:
		return true
	default:
		return false
	}
}

// ValidateEventCode returns an error if code is not one the simulator is
// known to emit.
func ValidateEventCode(code EventCode) error {
	if !knownEventCode(code) {
		return apperrors.Errorf(apperrors.KindValidation, "codec: unrecognised event code %q", string(code))
	}
	return nil
}
