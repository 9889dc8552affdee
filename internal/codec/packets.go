package codec

import (
	"github.com/racewire/telemetry-hub/internal/apperrors"
)

// NumCars is the fixed car-slot count every per-car array in the wire
// format carries, active or not.
const NumCars = 22

const (
	carMotionSize            = 60
	participantSize          = 58
	finalClassificationSize  = 45
	lapHistorySize           = 14
	tyreStintHistorySize     = 3
	carTelemetrySize         = 60
	carStatusSize            = 55
	carDamageSize            = 42
	marshalZoneSize          = 5
	weatherForecastSize      = 8
	numMarshalZones          = 21
	numWeatherForecastSlots  = 56
	numLapHistorySlots       = 100
	numTyreStintSlots        = 8
	numWeekendStructureSlots = 12
)

func expectSize(buf []byte, want int, class string) error {
	if len(buf) != want {
		return apperrors.Errorf(apperrors.KindValidation,
			"codec: %s payload is %d bytes, want exactly %d", class, len(buf), want)
	}
	return nil
}

// CarMotionData is one car's physics sample from the motion packet.
type CarMotionData struct {
	WorldPositionX, WorldPositionY, WorldPositionZ float32
	WorldVelocityX, WorldVelocityY, WorldVelocityZ float32
	WorldForwardDirX, WorldForwardDirY, WorldForwardDirZ int16
	WorldRightDirX, WorldRightDirY, WorldRightDirZ       int16
	GForceLateral, GForceLongitudinal, GForceVertical    float32
	Yaw, Pitch, Roll                                     float32
}

func parseCarMotion(c *cursor) CarMotionData {
	var m CarMotionData
	m.WorldPositionX = c.f32()
	m.WorldPositionY = c.f32()
	m.WorldPositionZ = c.f32()
	m.WorldVelocityX = c.f32()
	m.WorldVelocityY = c.f32()
	m.WorldVelocityZ = c.f32()
	m.WorldForwardDirX = c.i16()
	m.WorldForwardDirY = c.i16()
	m.WorldForwardDirZ = c.i16()
	m.WorldRightDirX = c.i16()
	m.WorldRightDirY = c.i16()
	m.WorldRightDirZ = c.i16()
	m.GForceLateral = c.f32()
	m.GForceLongitudinal = c.f32()
	m.GForceVertical = c.f32()
	m.Yaw = c.f32()
	m.Pitch = c.f32()
	m.Roll = c.f32()
	return m
}

// MotionPacket is the header-plus-22-cars payload of a Motion class packet.
type MotionPacket struct {
	Header Header
	Cars   [NumCars]CarMotionData
}

// ParseMotionPacket parses a Motion packet body (header already stripped).
func ParseMotionPacket(h Header, body []byte) (MotionPacket, error) {
	var p MotionPacket
	p.Header = h
	if err := expectSize(body, NumCars*carMotionSize, "motion"); err != nil {
		return p, err
	}
	c := &cursor{buf: body}
	for i := 0; i < NumCars; i++ {
		p.Cars[i] = parseCarMotion(c)
	}
	return p, nil
}

// MarshalZone describes one marshal zone on the current track.
type MarshalZone struct {
	ZoneStart float32
	ZoneFlag  int8
}

func parseMarshalZone(c *cursor) MarshalZone {
	return MarshalZone{ZoneStart: c.f32(), ZoneFlag: c.i8()}
}

// WeatherForecastSample is one forward-looking weather prediction slot.
type WeatherForecastSample struct {
	SessionType               uint8
	TimeOffset                uint8
	Weather                   uint8
	TrackTemperature          int8
	TrackTemperatureChange    int8
	AirTemperature            int8
	AirTemperatureChange      int8
	RainPercentage            uint8
}

func parseWeatherForecastSample(c *cursor) WeatherForecastSample {
	var w WeatherForecastSample
	w.SessionType = c.u8()
	w.TimeOffset = c.u8()
	w.Weather = c.u8()
	w.TrackTemperature = c.i8()
	w.TrackTemperatureChange = c.i8()
	w.AirTemperature = c.i8()
	w.AirTemperatureChange = c.i8()
	w.RainPercentage = c.u8()
	return w
}

// SessionPacket carries the session-wide state the simulator reports once
// per tick: weather, track, rules and assists, plus the current weekend's
// session structure and safety-car/red-flag counters.
//
// WeekendStructure/NumSessionsInWeekend and the two sector-distance fields
// are a protocol-year addition on top of the raw struct layout the rest of
// this packet mirrors; they are carried because session diffing and the
// weekend-structure delta both depend on them.
type SessionPacket struct {
	Header Header

	Weather               uint8
	TrackTemperature      int8
	AirTemperature        int8
	TotalLaps             uint8
	TrackLength           uint16
	SessionType           uint8
	TrackID               int8
	Formula               uint8
	SessionTimeLeft       uint16
	SessionDuration       uint16
	PitSpeedLimit         uint8
	GamePaused            uint8
	IsSpectating          uint8
	SpectatorCarIndex     uint8
	SLIProNativeSupport   uint8
	NumMarshalZones       uint8
	MarshalZones          [numMarshalZones]MarshalZone
	SafetyCarStatus       uint8
	NetworkGame           uint8
	NumWeatherForecastSamples uint8
	WeatherForecastSamples    [numWeatherForecastSlots]WeatherForecastSample
	ForecastAccuracy      uint8
	AIDifficulty          uint8
	SeasonLinkIdentifier  uint32
	WeekendLinkIdentifier uint32
	SessionLinkIdentifier uint32
	PitStopWindowIdealLap   uint8
	PitStopWindowLatestLap  uint8
	PitStopRejoinPosition   uint8
	SteeringAssist        uint8
	BrakingAssist         uint8
	GearboxAssist         uint8
	PitAssist             uint8
	PitReleaseAssist      uint8
	ERSAssist             uint8
	DRSAssist             uint8
	DynamicRacingLine     uint8
	DynamicRacingLineType uint8
	GameMode              uint8
	RuleSet               uint8
	TimeOfDay             uint32
	SessionLength         uint8
	SpeedUnitsLeadPlayer        uint8
	TemperatureUnitsLeadPlayer  uint8
	SpeedUnitsSecondaryPlayer   uint8
	TemperatureUnitsSecondaryPlayer uint8
	NumSafetyCarPeriods        uint8
	NumVirtualSafetyCarPeriods uint8
	NumRedFlagPeriods          uint8

	Sector2LapDistanceStart float32
	Sector3LapDistanceStart float32
	NumSessionsInWeekend    uint8
	WeekendStructure        [numWeekendStructureSlots]uint8
}

// ParseSessionPacket parses a Session class packet body.
func ParseSessionPacket(h Header, body []byte) (SessionPacket, error) {
	var p SessionPacket
	p.Header = h
	want := 19 + numMarshalZones*marshalZoneSize + 3 + numWeatherForecastSlots*weatherForecastSize +
		2 + 12 + 14 + 4 + 8 + 4 + 4 + 1 + numWeekendStructureSlots
	if err := expectSize(body, want, "session"); err != nil {
		return p, err
	}
	c := &cursor{buf: body}
	p.Weather = c.u8()
	p.TrackTemperature = c.i8()
	p.AirTemperature = c.i8()
	p.TotalLaps = c.u8()
	p.TrackLength = c.u16()
	p.SessionType = c.u8()
	p.TrackID = c.i8()
	p.Formula = c.u8()
	p.SessionTimeLeft = c.u16()
	p.SessionDuration = c.u16()
	p.PitSpeedLimit = c.u8()
	p.GamePaused = c.u8()
	p.IsSpectating = c.u8()
	p.SpectatorCarIndex = c.u8()
	p.SLIProNativeSupport = c.u8()
	p.NumMarshalZones = c.u8()
	for i := range p.MarshalZones {
		p.MarshalZones[i] = parseMarshalZone(c)
	}
	p.SafetyCarStatus = c.u8()
	p.NetworkGame = c.u8()
	p.NumWeatherForecastSamples = c.u8()
	for i := range p.WeatherForecastSamples {
		p.WeatherForecastSamples[i] = parseWeatherForecastSample(c)
	}
	p.ForecastAccuracy = c.u8()
	p.AIDifficulty = c.u8()
	p.SeasonLinkIdentifier = c.u32()
	p.WeekendLinkIdentifier = c.u32()
	p.SessionLinkIdentifier = c.u32()
	p.PitStopWindowIdealLap = c.u8()
	p.PitStopWindowLatestLap = c.u8()
	p.PitStopRejoinPosition = c.u8()
	p.SteeringAssist = c.u8()
	p.BrakingAssist = c.u8()
	p.GearboxAssist = c.u8()
	p.PitAssist = c.u8()
	p.PitReleaseAssist = c.u8()
	p.ERSAssist = c.u8()
	p.DRSAssist = c.u8()
	p.DynamicRacingLine = c.u8()
	p.DynamicRacingLineType = c.u8()
	p.GameMode = c.u8()
	p.RuleSet = c.u8()
	p.TimeOfDay = c.u32()
	p.SessionLength = c.u8()
	p.SpeedUnitsLeadPlayer = c.u8()
	p.TemperatureUnitsLeadPlayer = c.u8()
	p.SpeedUnitsSecondaryPlayer = c.u8()
	p.TemperatureUnitsSecondaryPlayer = c.u8()
	p.NumSafetyCarPeriods = c.u8()
	p.NumVirtualSafetyCarPeriods = c.u8()
	p.NumRedFlagPeriods = c.u8()
	p.Sector2LapDistanceStart = c.f32()
	p.Sector3LapDistanceStart = c.f32()
	p.NumSessionsInWeekend = c.u8()
	copy(p.WeekendStructure[:], c.bytes(numWeekendStructureSlots))
	return p, nil
}

// ActiveWeekendStructure returns only the populated prefix of
// WeekendStructure, per NumSessionsInWeekend.
func (p SessionPacket) ActiveWeekendStructure() []uint8 {
	n := int(p.NumSessionsInWeekend)
	if n > len(p.WeekendStructure) {
		n = len(p.WeekendStructure)
	}
	return p.WeekendStructure[:n]
}

// ParticipantData describes one driver slot in the participants packet.
type ParticipantData struct {
	AIControlled    uint8
	DriverID        uint8
	NetworkID       uint8
	TeamID          uint8
	MyTeam          uint8
	RaceNumber      uint8
	Nationality     uint8
	Name            string
	YourTelemetry   uint8
	ShowOnlineNames uint8
	Platform        uint8
}

func parseParticipant(c *cursor) ParticipantData {
	var p ParticipantData
	p.AIControlled = c.u8()
	p.DriverID = c.u8()
	p.NetworkID = c.u8()
	p.TeamID = c.u8()
	p.MyTeam = c.u8()
	p.RaceNumber = c.u8()
	p.Nationality = c.u8()
	p.Name = nulTerminatedString(c.bytes(48))
	p.YourTelemetry = c.u8()
	p.ShowOnlineNames = c.u8()
	p.Platform = c.u8()
	return p
}

// ParticipantsPacket is the header-plus-roster payload of a Participants
// class packet.
type ParticipantsPacket struct {
	Header        Header
	NumActiveCars uint8
	Participants  [NumCars]ParticipantData
}

// ParseParticipantsPacket parses a Participants class packet body.
func ParseParticipantsPacket(h Header, body []byte) (ParticipantsPacket, error) {
	var p ParticipantsPacket
	p.Header = h
	if err := expectSize(body, 1+NumCars*participantSize, "participants"); err != nil {
		return p, err
	}
	c := &cursor{buf: body}
	p.NumActiveCars = c.u8()
	for i := range p.Participants {
		p.Participants[i] = parseParticipant(c)
	}
	return p, nil
}

// ActiveParticipants returns only the populated prefix of Participants,
// per NumActiveCars.
func (p ParticipantsPacket) ActiveParticipants() []ParticipantData {
	n := int(p.NumActiveCars)
	if n > len(p.Participants) {
		n = len(p.Participants)
	}
	return p.Participants[:n]
}

// FinalClassificationData is one car's result row at the end of a session.
type FinalClassificationData struct {
	Position             uint8
	NumLaps               uint8
	GridPosition          uint8
	Points                uint8
	NumPitStops           uint8
	ResultStatus          uint8
	BestLapTimeInMS       uint32
	TotalRaceTime         float64
	PenaltiesTime         uint8
	NumPenalties          uint8
	NumTyreStints         uint8
	TyreStintsActual      [numTyreStintSlots]uint8
	TyreStintsVisual      [numTyreStintSlots]uint8
	TyreStintsEndLaps     [numTyreStintSlots]uint8
}

func parseFinalClassification(c *cursor) FinalClassificationData {
	var f FinalClassificationData
	f.Position = c.u8()
	f.NumLaps = c.u8()
	f.GridPosition = c.u8()
	f.Points = c.u8()
	f.NumPitStops = c.u8()
	f.ResultStatus = c.u8()
	f.BestLapTimeInMS = c.u32()
	f.TotalRaceTime = c.f64()
	f.PenaltiesTime = c.u8()
	f.NumPenalties = c.u8()
	f.NumTyreStints = c.u8()
	copy(f.TyreStintsActual[:], c.bytes(numTyreStintSlots))
	copy(f.TyreStintsVisual[:], c.bytes(numTyreStintSlots))
	copy(f.TyreStintsEndLaps[:], c.bytes(numTyreStintSlots))
	return f
}

// FinalClassificationPacket carries the end-of-session results table.
type FinalClassificationPacket struct {
	Header             Header
	NumCars            uint8
	ClassificationData [NumCars]FinalClassificationData
}

// ParseFinalClassificationPacket parses a FinalClassification class packet body.
func ParseFinalClassificationPacket(h Header, body []byte) (FinalClassificationPacket, error) {
	var p FinalClassificationPacket
	p.Header = h
	if err := expectSize(body, 1+NumCars*finalClassificationSize, "final_classification"); err != nil {
		return p, err
	}
	c := &cursor{buf: body}
	p.NumCars = c.u8()
	for i := range p.ClassificationData {
		p.ClassificationData[i] = parseFinalClassification(c)
	}
	return p, nil
}

// LapHistoryData is one completed lap's sector split for a single driver.
type LapHistoryData struct {
	LapTimeInMS        uint32
	Sector1TimeInMS    uint16
	Sector1TimeMinutes uint8
	Sector2TimeInMS    uint16
	Sector2TimeMinutes uint8
	Sector3TimeInMS    uint16
	Sector3TimeMinutes uint8
	LapValidBitFlags   uint8
}

func parseLapHistory(c *cursor) LapHistoryData {
	var l LapHistoryData
	l.LapTimeInMS = c.u32()
	l.Sector1TimeInMS = c.u16()
	l.Sector1TimeMinutes = c.u8()
	l.Sector2TimeInMS = c.u16()
	l.Sector2TimeMinutes = c.u8()
	l.Sector3TimeInMS = c.u16()
	l.Sector3TimeMinutes = c.u8()
	l.LapValidBitFlags = c.u8()
	return l
}

// TyreStintHistoryData is one tyre stint in a driver's session history.
type TyreStintHistoryData struct {
	EndLap              uint8
	TyreActualCompound  uint8
	TyreVisualCompound  uint8
}

func parseTyreStintHistory(c *cursor) TyreStintHistoryData {
	return TyreStintHistoryData{
		EndLap:             c.u8(),
		TyreActualCompound: c.u8(),
		TyreVisualCompound: c.u8(),
	}
}

// SessionHistoryPacket is one driver's full lap/stint history, sent
// round-robin across all cars on track.
type SessionHistoryPacket struct {
	Header               Header
	CarIdx                uint8
	NumLaps               uint8
	NumTyreStints         uint8
	BestLapTimeLapNum     uint8
	BestSector1LapNum     uint8
	BestSector2LapNum     uint8
	BestSector3LapNum     uint8
	LapHistoryData        [numLapHistorySlots]LapHistoryData
	TyreStintsHistoryData [numTyreStintSlots]TyreStintHistoryData
}

// ParseSessionHistoryPacket parses a SessionHistory class packet body.
func ParseSessionHistoryPacket(h Header, body []byte) (SessionHistoryPacket, error) {
	var p SessionHistoryPacket
	p.Header = h
	want := 7 + numLapHistorySlots*lapHistorySize + numTyreStintSlots*tyreStintHistorySize
	if err := expectSize(body, want, "session_history"); err != nil {
		return p, err
	}
	c := &cursor{buf: body}
	p.CarIdx = c.u8()
	p.NumLaps = c.u8()
	p.NumTyreStints = c.u8()
	p.BestLapTimeLapNum = c.u8()
	p.BestSector1LapNum = c.u8()
	p.BestSector2LapNum = c.u8()
	p.BestSector3LapNum = c.u8()
	for i := range p.LapHistoryData {
		p.LapHistoryData[i] = parseLapHistory(c)
	}
	for i := range p.TyreStintsHistoryData {
		p.TyreStintsHistoryData[i] = parseTyreStintHistory(c)
	}
	return p, nil
}

// ActiveLapHistory returns only the populated prefix of LapHistoryData,
// per NumLaps.
func (p SessionHistoryPacket) ActiveLapHistory() []LapHistoryData {
	n := int(p.NumLaps)
	if n > len(p.LapHistoryData) {
		n = len(p.LapHistoryData)
	}
	return p.LapHistoryData[:n]
}

// ActiveTyreStints returns only the populated prefix of
// TyreStintsHistoryData, per NumTyreStints.
func (p SessionHistoryPacket) ActiveTyreStints() []TyreStintHistoryData {
	n := int(p.NumTyreStints)
	if n > len(p.TyreStintsHistoryData) {
		n = len(p.TyreStintsHistoryData)
	}
	return p.TyreStintsHistoryData[:n]
}

// CarTelemetryData is one car's live driver-input and powertrain readout.
type CarTelemetryData struct {
	Speed                    uint16
	Throttle                 float32
	Steer                    float32
	Brake                    float32
	Clutch                   uint8
	Gear                     int8
	EngineRPM                uint16
	DRS                      uint8
	RevLightsPercent         uint8
	RevLightsBitValue        uint16
	BrakesTemperature        [4]uint16
	TyresSurfaceTemperature  [4]uint8
	TyresInnerTemperature    [4]uint8
	EngineTemperature        uint16
	TyresPressure            [4]float32
	SurfaceType              [4]uint8
}

func parseCarTelemetry(c *cursor) CarTelemetryData {
	var t CarTelemetryData
	t.Speed = c.u16()
	t.Throttle = c.f32()
	t.Steer = c.f32()
	t.Brake = c.f32()
	t.Clutch = c.u8()
	t.Gear = c.i8()
	t.EngineRPM = c.u16()
	t.DRS = c.u8()
	t.RevLightsPercent = c.u8()
	t.RevLightsBitValue = c.u16()
	for i := range t.BrakesTemperature {
		t.BrakesTemperature[i] = c.u16()
	}
	for i := range t.TyresSurfaceTemperature {
		t.TyresSurfaceTemperature[i] = c.u8()
	}
	for i := range t.TyresInnerTemperature {
		t.TyresInnerTemperature[i] = c.u8()
	}
	t.EngineTemperature = c.u16()
	for i := range t.TyresPressure {
		t.TyresPressure[i] = c.f32()
	}
	for i := range t.SurfaceType {
		t.SurfaceType[i] = c.u8()
	}
	return t
}

// CarTelemetryPacket carries a full car-array telemetry sample.
type CarTelemetryPacket struct {
	Header                           Header
	Cars                             [NumCars]CarTelemetryData
	MFDPanelIndex                    uint8
	MFDPanelIndexSecondaryPlayer     int8
	SuggestedGear                    int8
}

// ParseCarTelemetryPacket parses a CarTelemetry class packet body.
func ParseCarTelemetryPacket(h Header, body []byte) (CarTelemetryPacket, error) {
	var p CarTelemetryPacket
	p.Header = h
	if err := expectSize(body, NumCars*carTelemetrySize+3, "car_telemetry"); err != nil {
		return p, err
	}
	c := &cursor{buf: body}
	for i := range p.Cars {
		p.Cars[i] = parseCarTelemetry(c)
	}
	p.MFDPanelIndex = c.u8()
	p.MFDPanelIndexSecondaryPlayer = c.i8()
	p.SuggestedGear = c.i8()
	return p, nil
}

// CarStatusData is one car's setup/assist/ERS status readout.
type CarStatusData struct {
	TractionControl        uint8
	AntiLockBrakes         uint8
	FuelMix                uint8
	FrontBrakeBias         uint8
	PitLimiterStatus       uint8
	FuelInTank             float32
	FuelCapacity           float32
	FuelRemainingLaps      float32
	MaxRPM                 uint16
	IdleRPM                uint16
	MaxGears               uint8
	DRSAllowed             uint8
	DRSActivationDistance  uint16
	ActualTyreCompound     uint8
	VisualTyreCompound     uint8
	TyresAgeLaps           uint8
	VehicleFIAFlags        int8
	EnginePowerICE         float32
	EnginePowerMGUK        float32
	ERSStoreEnergy         float32
	ERSDeployMode          uint8
	ERSHarvestedThisLapMGUK float32
	ERSHarvestedThisLapMGUH float32
	ERSDeployedThisLap     float32
	NetworkPaused          uint8
}

func parseCarStatus(c *cursor) CarStatusData {
	var s CarStatusData
	s.TractionControl = c.u8()
	s.AntiLockBrakes = c.u8()
	s.FuelMix = c.u8()
	s.FrontBrakeBias = c.u8()
	s.PitLimiterStatus = c.u8()
	s.FuelInTank = c.f32()
	s.FuelCapacity = c.f32()
	s.FuelRemainingLaps = c.f32()
	s.MaxRPM = c.u16()
	s.IdleRPM = c.u16()
	s.MaxGears = c.u8()
	s.DRSAllowed = c.u8()
	s.DRSActivationDistance = c.u16()
	s.ActualTyreCompound = c.u8()
	s.VisualTyreCompound = c.u8()
	s.TyresAgeLaps = c.u8()
	s.VehicleFIAFlags = c.i8()
	s.EnginePowerICE = c.f32()
	s.EnginePowerMGUK = c.f32()
	s.ERSStoreEnergy = c.f32()
	s.ERSDeployMode = c.u8()
	s.ERSHarvestedThisLapMGUK = c.f32()
	s.ERSHarvestedThisLapMGUH = c.f32()
	s.ERSDeployedThisLap = c.f32()
	s.NetworkPaused = c.u8()
	return s
}

// CarStatusPacket carries a full car-array status sample.
type CarStatusPacket struct {
	Header Header
	Cars   [NumCars]CarStatusData
}

// ParseCarStatusPacket parses a CarStatus class packet body.
func ParseCarStatusPacket(h Header, body []byte) (CarStatusPacket, error) {
	var p CarStatusPacket
	p.Header = h
	if err := expectSize(body, NumCars*carStatusSize, "car_status"); err != nil {
		return p, err
	}
	c := &cursor{buf: body}
	for i := range p.Cars {
		p.Cars[i] = parseCarStatus(c)
	}
	return p, nil
}

// CarDamageData is one car's bodywork/mechanical wear readout.
type CarDamageData struct {
	TyresWear              [4]float32
	TyresDamage            [4]uint8
	BrakesDamage           [4]uint8
	FrontLeftWingDamage    uint8
	FrontRightWingDamage   uint8
	RearWingDamage         uint8
	FloorDamage            uint8
	DiffuserDamage         uint8
	SidepodDamage          uint8
	DRSFault               uint8
	ERSFault               uint8
	GearBoxDamage          uint8
	EngineDamage           uint8
	EngineMGUHWear         uint8
	EngineESWear           uint8
	EngineCEWear           uint8
	EngineICEWear          uint8
	EngineMGUKWear         uint8
	EngineTCWear           uint8
	EngineBlown            uint8
	EngineSeized           uint8
}

func parseCarDamage(c *cursor) CarDamageData {
	var d CarDamageData
	for i := range d.TyresWear {
		d.TyresWear[i] = c.f32()
	}
	for i := range d.TyresDamage {
		d.TyresDamage[i] = c.u8()
	}
	for i := range d.BrakesDamage {
		d.BrakesDamage[i] = c.u8()
	}
	d.FrontLeftWingDamage = c.u8()
	d.FrontRightWingDamage = c.u8()
	d.RearWingDamage = c.u8()
	d.FloorDamage = c.u8()
	d.DiffuserDamage = c.u8()
	d.SidepodDamage = c.u8()
	d.DRSFault = c.u8()
	d.ERSFault = c.u8()
	d.GearBoxDamage = c.u8()
	d.EngineDamage = c.u8()
	d.EngineMGUHWear = c.u8()
	d.EngineESWear = c.u8()
	d.EngineCEWear = c.u8()
	d.EngineICEWear = c.u8()
	d.EngineMGUKWear = c.u8()
	d.EngineTCWear = c.u8()
	d.EngineBlown = c.u8()
	d.EngineSeized = c.u8()
	return d
}

// CarDamagePacket carries a full car-array damage sample.
type CarDamagePacket struct {
	Header Header
	Cars   [NumCars]CarDamageData
}

// ParseCarDamagePacket parses a CarDamage class packet body.
func ParseCarDamagePacket(h Header, body []byte) (CarDamagePacket, error) {
	var p CarDamagePacket
	p.Header = h
	if err := expectSize(body, NumCars*carDamageSize, "car_damage"); err != nil {
		return p, err
	}
	c := &cursor{buf: body}
	for i := range p.Cars {
		p.Cars[i] = parseCarDamage(c)
	}
	return p, nil
}

// ParsePayload dispatches buf (header already validated) to the matching
// per-class parser and returns the result as the empty interface the
// ingestion engine switches on. Classes the engine does not consume are
// rejected here rather than silently parsed, since no caller should be
// asking for them.
func ParsePayload(h Header, class PacketClass, body []byte) (any, error) {
	switch class {
	case ClassMotion:
		return ParseMotionPacket(h, body)
	case ClassSession:
		return ParseSessionPacket(h, body)
	case ClassEvent:
		return ParseEventPacket(h, body)
	case ClassParticipants:
		return ParseParticipantsPacket(h, body)
	case ClassFinalClassification:
		return ParseFinalClassificationPacket(h, body)
	case ClassSessionHistory:
		return ParseSessionHistoryPacket(h, body)
	case ClassCarDamage:
		return ParseCarDamagePacket(h, body)
	case ClassCarStatus:
		return ParseCarStatusPacket(h, body)
	case ClassCarTelemetry:
		return ParseCarTelemetryPacket(h, body)
	default:
		return nil, apperrors.Errorf(apperrors.KindValidation, "codec: class %d is not consumed", class)
	}
}
