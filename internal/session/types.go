package session

import "github.com/racewire/telemetry-hub/internal/codec"

// DriverInfo is the stable identity assigned to a car slot the first time
// a real participant (not "Player", not empty) is seen in it.
type DriverInfo struct {
	Name   string
	TeamID uint8
}

// ParticipantSummary is the subset of ParticipantData that the diff loop
// actually tracks for a driver; it deliberately drops fields (AI flag,
// my-team flag, show-online-names) the original distillation never
// surfaces downstream.
type ParticipantSummary struct {
	TeamID      uint32
	RaceNumber  uint32
	Nationality uint32
	Platform    uint32
}

// CarMotionSummary is the reduced per-tick position the general snapshot
// carries — just enough for a trackmap, not the full physics sample C1
// exposes.
type CarMotionSummary struct {
	X, Y, Yaw float32
}

// LapHistoryEntry is one completed lap's sector split, as tracked in a
// player's running history.
type LapHistoryEntry struct {
	LapTimeMS        uint32
	Sector1TimeMS    uint32
	Sector2TimeMS    uint32
	Sector3TimeMS    uint32
	LapValidBitFlags uint32
}

// TyreStintEntry is one tyre stint in a player's running history.
type TyreStintEntry struct {
	ActualCompound uint32
	VisualCompound uint32
	EndLap         uint32
}

// HistoryData is a player's running lap/stint history, built up
// incrementally as SessionHistory packets arrive.
type HistoryData struct {
	NumLaps           uint32
	NumTyreStints     uint32
	BestLapTimeLapNum uint32
	BestSector1LapNum uint32
	BestSector2LapNum uint32
	BestSector3LapNum uint32
	LapHistory        []LapHistoryEntry
	TyreStintsHistory []TyreStintEntry
}

// FinalClassificationSummary is a player's end-of-session result row.
type FinalClassificationSummary struct {
	Position          uint32
	Laps              uint32
	GridPosition      uint32
	Points            uint32
	PitStops          uint32
	ResultStatus      uint32
	BestLapTimeMS     uint32
	RaceTimeSeconds   float64
	PenaltiesSeconds  uint32
	NumPenalties      uint32
	TyreStintsActual  []uint32
	TyreStintsVisual  []uint32
	TyreStintsEndLaps []uint32
}

// PlayerInfo is everything the general (low-rate) stream tracks about one
// driver. Each field is a pointer so "never seen yet" and "seen and
// zero-valued" remain distinguishable — the diff logic depends on that.
type PlayerInfo struct {
	Participant         *ParticipantSummary
	CarMotion           *CarMotionSummary
	LapHistory          *HistoryData
	FinalClassification *FinalClassificationSummary
}

// SessionData is the session-wide state tracked by the general stream.
type SessionData struct {
	Weather              uint32
	TrackTemperature     int32
	AirTemperature       int32
	TotalLaps            uint32
	TrackLength          uint32
	SessionType          uint32
	TrackID              int32
	SessionTimeLeft      uint32
	SessionDuration      uint32
	SafetyCarStatus      uint32
	SessionLength        uint32
	NumSafetyCar         uint32
	NumVirtualSafetyCar  uint32
	NumRedFlags          uint32
	Sector2LapDistanceStart float32
	Sector3LapDistanceStart float32
	WeekendStructure     []uint32
}

// EventRecord is one kept event, tagged by its 4-byte code and carrying
// only the fields relevant to that code (codec.EventDetails already does
// this narrowing; session retains it as is, with no timestamp).
type EventRecord struct {
	Code    codec.EventCode
	Details codec.EventDetails
}

// GeneralInfo is the complete low-rate snapshot: session state, kept
// events, and per-driver general info, keyed by driver name.
type GeneralInfo struct {
	Session *SessionData
	Events  []EventRecord
	Players map[string]*PlayerInfo
}

func newGeneralInfo() *GeneralInfo {
	return &GeneralInfo{Players: make(map[string]*PlayerInfo)}
}

// CarTelemetrySummary is the subset of CarTelemetryData the telemetry
// stream tracks per driver.
type CarTelemetrySummary struct {
	Speed                   uint32
	Throttle, Steer, Brake  float32
	Gear                    int32
	EngineRPM               uint32
	DRS                     bool
	EngineTemperature       uint32
	BrakesTemperature       []uint32
	TyresSurfaceTemperature []uint32
	TyresInnerTemperature   []uint32
	TyresPressure           []float32
}

// CarStatusSummary is the subset of CarStatusData the telemetry stream
// tracks per driver.
type CarStatusSummary struct {
	FuelMix                 uint32
	FrontBrakeBias          uint32
	FuelInTank              float32
	FuelCapacity            float32
	FuelRemainingLaps       float32
	DRSAllowed              bool
	DRSActivationDistance   uint32
	ActualTyreCompound      uint32
	VisualTyreCompound      uint32
	TyresAgeLaps            uint32
	VehicleFIAFlags         int32
	EnginePowerICE          float32
	EnginePowerMGUK         float32
	ERSStoreEnergy          float32
	ERSDeployMode           uint32
	ERSHarvestedThisLapMGUK float32
	ERSHarvestedThisLapMGUH float32
	ERSDeployedThisLap      float32
}

// CarDamageSummary is the subset of CarDamageData the telemetry stream
// tracks per driver. Unlike the other two telemetry summaries, this one
// retains nearly every wire field since bodywork wear is what engineer
// subscribers actually watch for.
type CarDamageSummary struct {
	TyresWear            []float32
	TyresDamage          []uint32
	BrakesDamage         []uint32
	FrontLeftWingDamage  uint32
	FrontRightWingDamage uint32
	RearWingDamage       uint32
	FloorDamage          uint32
	DiffuserDamage       uint32
	SidepodDamage        uint32
	DRSFault             bool
	ERSFault             bool
	GearBoxDamage        uint32
	EngineDamage         uint32
	EngineMGUHWear       uint32
	EngineESWear         uint32
	EngineCEWear         uint32
	EngineICEWear        uint32
	EngineMGUKWear       uint32
	EngineTCWear         uint32
	EngineBlown          bool
	EngineSeized         bool
}

// PlayerTelemetry is the complete high-rate snapshot for one driver.
type PlayerTelemetry struct {
	CarTelemetry *CarTelemetrySummary
	CarStatus    *CarStatusSummary
	CarDamage    *CarDamageSummary
}

// TelemetryInfo is the complete high-rate snapshot across all drivers,
// keyed by driver name.
type TelemetryInfo struct {
	PlayerTelemetry map[string]*PlayerTelemetry
}

func newTelemetryInfo() *TelemetryInfo {
	return &TelemetryInfo{PlayerTelemetry: make(map[string]*PlayerTelemetry)}
}
