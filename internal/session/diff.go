package session

// SessionDiff carries only the session-wide scalar fields that changed
// since the last emitted snapshot. A nil pointer means "unchanged";
// WeekendStructure carries only the entries appended since last time,
// since it only ever grows within a session.
type SessionDiff struct {
	Weather                 *uint32
	TrackTemperature        *int32
	AirTemperature          *int32
	TotalLaps               *uint32
	TrackLength              *uint32
	SessionType              *uint32
	TrackID                  *int32
	SessionTimeLeft          *uint32
	SessionDuration          *uint32
	SafetyCarStatus          *uint32
	SessionLength            *uint32
	NumSafetyCar             *uint32
	NumVirtualSafetyCar      *uint32
	NumRedFlags              *uint32
	Sector2LapDistanceStart  *float32
	Sector3LapDistanceStart  *float32
	WeekendStructure         []uint32
}

func (d *SessionDiff) empty() bool {
	return d == nil ||
		(d.Weather == nil && d.TrackTemperature == nil && d.AirTemperature == nil &&
			d.TotalLaps == nil && d.TrackLength == nil && d.SessionType == nil &&
			d.TrackID == nil && d.SessionTimeLeft == nil && d.SessionDuration == nil &&
			d.SafetyCarStatus == nil && d.SessionLength == nil && d.NumSafetyCar == nil &&
			d.NumVirtualSafetyCar == nil && d.NumRedFlags == nil &&
			d.Sector2LapDistanceStart == nil && d.Sector3LapDistanceStart == nil &&
			len(d.WeekendStructure) == 0)
}

func diffSession(cur, last *SessionData) *SessionDiff {
	if cur == nil {
		return nil
	}
	d := &SessionDiff{}
	if last == nil {
		d.Weather = u32ptr(cur.Weather)
		d.TrackTemperature = i32ptr(cur.TrackTemperature)
		d.AirTemperature = i32ptr(cur.AirTemperature)
		d.TotalLaps = u32ptr(cur.TotalLaps)
		d.TrackLength = u32ptr(cur.TrackLength)
		d.SessionType = u32ptr(cur.SessionType)
		d.TrackID = i32ptr(cur.TrackID)
		d.SessionTimeLeft = u32ptr(cur.SessionTimeLeft)
		d.SessionDuration = u32ptr(cur.SessionDuration)
		d.SafetyCarStatus = u32ptr(cur.SafetyCarStatus)
		d.SessionLength = u32ptr(cur.SessionLength)
		d.NumSafetyCar = u32ptr(cur.NumSafetyCar)
		d.NumVirtualSafetyCar = u32ptr(cur.NumVirtualSafetyCar)
		d.NumRedFlags = u32ptr(cur.NumRedFlags)
		d.Sector2LapDistanceStart = f32ptr(cur.Sector2LapDistanceStart)
		d.Sector3LapDistanceStart = f32ptr(cur.Sector3LapDistanceStart)
		d.WeekendStructure = append([]uint32(nil), cur.WeekendStructure...)
		return d
	}
	if cur.Weather != last.Weather {
		d.Weather = u32ptr(cur.Weather)
	}
	if cur.TrackTemperature != last.TrackTemperature {
		d.TrackTemperature = i32ptr(cur.TrackTemperature)
	}
	if cur.AirTemperature != last.AirTemperature {
		d.AirTemperature = i32ptr(cur.AirTemperature)
	}
	if cur.TotalLaps != last.TotalLaps {
		d.TotalLaps = u32ptr(cur.TotalLaps)
	}
	if cur.TrackLength != last.TrackLength {
		d.TrackLength = u32ptr(cur.TrackLength)
	}
	if cur.SessionType != last.SessionType {
		d.SessionType = u32ptr(cur.SessionType)
	}
	if cur.TrackID != last.TrackID {
		d.TrackID = i32ptr(cur.TrackID)
	}
	if cur.SessionTimeLeft != last.SessionTimeLeft {
		d.SessionTimeLeft = u32ptr(cur.SessionTimeLeft)
	}
	if cur.SessionDuration != last.SessionDuration {
		d.SessionDuration = u32ptr(cur.SessionDuration)
	}
	if cur.SafetyCarStatus != last.SafetyCarStatus {
		d.SafetyCarStatus = u32ptr(cur.SafetyCarStatus)
	}
	if cur.SessionLength != last.SessionLength {
		d.SessionLength = u32ptr(cur.SessionLength)
	}
	if cur.NumSafetyCar != last.NumSafetyCar {
		d.NumSafetyCar = u32ptr(cur.NumSafetyCar)
	}
	if cur.NumVirtualSafetyCar != last.NumVirtualSafetyCar {
		d.NumVirtualSafetyCar = u32ptr(cur.NumVirtualSafetyCar)
	}
	if cur.NumRedFlags != last.NumRedFlags {
		d.NumRedFlags = u32ptr(cur.NumRedFlags)
	}
	if cur.Sector2LapDistanceStart != last.Sector2LapDistanceStart {
		d.Sector2LapDistanceStart = f32ptr(cur.Sector2LapDistanceStart)
	}
	if cur.Sector3LapDistanceStart != last.Sector3LapDistanceStart {
		d.Sector3LapDistanceStart = f32ptr(cur.Sector3LapDistanceStart)
	}
	if len(cur.WeekendStructure) > len(last.WeekendStructure) {
		d.WeekendStructure = append([]uint32(nil), cur.WeekendStructure[len(last.WeekendStructure):]...)
	}
	return d
}

// HistoryDiff is emitted whenever a driver's history record changed:
// header scalars are always the current values (they're cheap and
// small), while LapHistory/TyreStintsHistory carry only the suffix
// appended since the last snapshot.
type HistoryDiff struct {
	NumLaps           uint32
	NumTyreStints     uint32
	BestLapTimeLapNum uint32
	BestSector1LapNum uint32
	BestSector2LapNum uint32
	BestSector3LapNum uint32
	NewLapHistory     []LapHistoryEntry
	NewTyreStints     []TyreStintEntry
}

func diffHistory(cur, last *HistoryData) *HistoryDiff {
	if cur == nil {
		return nil
	}
	var lastLaps, lastStints int
	changed := last == nil
	if last != nil {
		lastLaps = len(last.LapHistory)
		lastStints = len(last.TyreStintsHistory)
		changed = changed ||
			cur.NumLaps != last.NumLaps || cur.NumTyreStints != last.NumTyreStints ||
			cur.BestLapTimeLapNum != last.BestLapTimeLapNum ||
			cur.BestSector1LapNum != last.BestSector1LapNum ||
			cur.BestSector2LapNum != last.BestSector2LapNum ||
			cur.BestSector3LapNum != last.BestSector3LapNum ||
			len(cur.LapHistory) > lastLaps || len(cur.TyreStintsHistory) > lastStints
	}
	if !changed {
		return nil
	}
	return &HistoryDiff{
		NumLaps:           cur.NumLaps,
		NumTyreStints:     cur.NumTyreStints,
		BestLapTimeLapNum: cur.BestLapTimeLapNum,
		BestSector1LapNum: cur.BestSector1LapNum,
		BestSector2LapNum: cur.BestSector2LapNum,
		BestSector3LapNum: cur.BestSector3LapNum,
		NewLapHistory:     append([]LapHistoryEntry(nil), cur.LapHistory[lastLaps:]...),
		NewTyreStints:     append([]TyreStintEntry(nil), cur.TyreStintsHistory[lastStints:]...),
	}
}

// PlayerDiff is the per-driver delta within a general tick.
// Participant, CarMotion and FinalClassification are emitted whole when
// new or changed at all; History is a HistoryDiff (see above); unset
// fields are omitted from the wire rather than sent as zero
// values.
type PlayerDiff struct {
	Participant         *ParticipantSummary
	CarMotion           *CarMotionSummary
	History             *HistoryDiff
	FinalClassification *FinalClassificationSummary
}

func (d *PlayerDiff) empty() bool {
	return d.Participant == nil && d.CarMotion == nil && d.History == nil && d.FinalClassification == nil
}

func diffPlayer(cur, last *PlayerInfo) *PlayerDiff {
	d := &PlayerDiff{}
	var lastParticipant *ParticipantSummary
	var lastMotion *CarMotionSummary
	var lastHistory *HistoryData
	var lastFinal *FinalClassificationSummary
	if last != nil {
		lastParticipant = last.Participant
		lastMotion = last.CarMotion
		lastHistory = last.LapHistory
		lastFinal = last.FinalClassification
	}

	if cur.Participant != nil && (lastParticipant == nil || *cur.Participant != *lastParticipant) {
		p := *cur.Participant
		d.Participant = &p
	}
	if cur.CarMotion != nil && (lastMotion == nil || *cur.CarMotion != *lastMotion) {
		m := *cur.CarMotion
		d.CarMotion = &m
	}
	d.History = diffHistory(cur.LapHistory, lastHistory)
	if cur.FinalClassification != nil && (lastFinal == nil || !finalClassificationEqual(*cur.FinalClassification, *lastFinal)) {
		f := *cur.FinalClassification
		d.FinalClassification = &f
	}
	return d
}

func finalClassificationEqual(a, b FinalClassificationSummary) bool {
	return a.Position == b.Position && a.Laps == b.Laps && a.GridPosition == b.GridPosition &&
		a.Points == b.Points && a.PitStops == b.PitStops && a.ResultStatus == b.ResultStatus &&
		a.BestLapTimeMS == b.BestLapTimeMS && a.RaceTimeSeconds == b.RaceTimeSeconds &&
		a.PenaltiesSeconds == b.PenaltiesSeconds && a.NumPenalties == b.NumPenalties &&
		uintSliceEqual(a.TyreStintsActual, b.TyreStintsActual) &&
		uintSliceEqual(a.TyreStintsVisual, b.TyreStintsVisual) &&
		uintSliceEqual(a.TyreStintsEndLaps, b.TyreStintsEndLaps)
}

// GeneralDiff is the complete delta published on a general tick.
type GeneralDiff struct {
	Session *SessionDiff
	Events  []EventRecord
	Players map[string]*PlayerDiff
}

func (d *GeneralDiff) Empty() bool {
	if !d.Session.empty() {
		return false
	}
	if len(d.Events) != 0 {
		return false
	}
	for _, p := range d.Players {
		if !p.empty() {
			return false
		}
	}
	return true
}

// diffGeneral computes what changed in cur relative to last. Event
// growth is a plain append-only-suffix diff, same as the history lists:
// ingestion only ever appends to Events, filtering out dropped codes
// before they're recorded.
func diffGeneral(cur, last *GeneralInfo) *GeneralDiff {
	d := &GeneralDiff{Players: make(map[string]*PlayerDiff, len(cur.Players))}

	var lastSession *SessionData
	var lastEventCount int
	lastPlayers := map[string]*PlayerInfo{}
	if last != nil {
		lastSession = last.Session
		lastEventCount = len(last.Events)
		lastPlayers = last.Players
	}
	d.Session = diffSession(cur.Session, lastSession)
	if len(cur.Events) > lastEventCount {
		d.Events = append([]EventRecord(nil), cur.Events[lastEventCount:]...)
	}
	for name, p := range cur.Players {
		pd := diffPlayer(p, lastPlayers[name])
		if !pd.empty() {
			d.Players[name] = pd
		}
	}
	return d
}

// TelemetryDiff is the complete delta published on a telemetry tick,
// restricted by the caller to drivers on actively-subscribed teams.
type TelemetryDiff struct {
	PlayerTelemetry map[string]*PlayerTelemetry
}

func (d *TelemetryDiff) Empty() bool { return len(d.PlayerTelemetry) == 0 }

// diffTelemetry emits, for each driver, those of its three sub-records
// that are new or changed, each one whole; unchanged sub-records are left
// nil. Like the other per-car payloads these are small enough that
// sub-field diffing isn't worth the complexity.
func diffTelemetry(cur, last *TelemetryInfo) *TelemetryDiff {
	d := &TelemetryDiff{PlayerTelemetry: make(map[string]*PlayerTelemetry, len(cur.PlayerTelemetry))}
	var lastMap map[string]*PlayerTelemetry
	if last != nil {
		lastMap = last.PlayerTelemetry
	}
	for name, t := range cur.PlayerTelemetry {
		lt := lastMap[name]
		changed := lt == nil
		out := &PlayerTelemetry{}

		var lastTel *CarTelemetrySummary
		var lastStat *CarStatusSummary
		var lastDmg *CarDamageSummary
		if lt != nil {
			lastTel, lastStat, lastDmg = lt.CarTelemetry, lt.CarStatus, lt.CarDamage
		}

		if t.CarTelemetry != nil && (lastTel == nil || !carTelemetryEqual(*t.CarTelemetry, *lastTel)) {
			v := *t.CarTelemetry
			out.CarTelemetry = &v
			changed = true
		}
		if t.CarStatus != nil && (lastStat == nil || *t.CarStatus != *lastStat) {
			v := *t.CarStatus
			out.CarStatus = &v
			changed = true
		}
		if t.CarDamage != nil && (lastDmg == nil || !carDamageEqual(*t.CarDamage, *lastDmg)) {
			v := *t.CarDamage
			out.CarDamage = &v
			changed = true
		}
		if changed {
			d.PlayerTelemetry[name] = out
		}
	}
	return d
}

func carTelemetryEqual(a, b CarTelemetrySummary) bool {
	return a.Speed == b.Speed && a.Throttle == b.Throttle && a.Steer == b.Steer &&
		a.Brake == b.Brake && a.Gear == b.Gear && a.EngineRPM == b.EngineRPM &&
		a.DRS == b.DRS && a.EngineTemperature == b.EngineTemperature &&
		uintSliceEqual(a.BrakesTemperature, b.BrakesTemperature) &&
		uintSliceEqual(a.TyresSurfaceTemperature, b.TyresSurfaceTemperature) &&
		uintSliceEqual(a.TyresInnerTemperature, b.TyresInnerTemperature) &&
		floatSliceEqual(a.TyresPressure, b.TyresPressure)
}

// carDamageEqual exists because CarDamageSummary holds slice fields,
// which make it non-comparable with ==.
func carDamageEqual(a, b CarDamageSummary) bool {
	return floatSliceEqual(a.TyresWear, b.TyresWear) &&
		uintSliceEqual(a.TyresDamage, b.TyresDamage) &&
		uintSliceEqual(a.BrakesDamage, b.BrakesDamage) &&
		a.FrontLeftWingDamage == b.FrontLeftWingDamage &&
		a.FrontRightWingDamage == b.FrontRightWingDamage &&
		a.RearWingDamage == b.RearWingDamage &&
		a.FloorDamage == b.FloorDamage &&
		a.DiffuserDamage == b.DiffuserDamage &&
		a.SidepodDamage == b.SidepodDamage &&
		a.DRSFault == b.DRSFault &&
		a.ERSFault == b.ERSFault &&
		a.GearBoxDamage == b.GearBoxDamage &&
		a.EngineDamage == b.EngineDamage &&
		a.EngineMGUHWear == b.EngineMGUHWear &&
		a.EngineESWear == b.EngineESWear &&
		a.EngineCEWear == b.EngineCEWear &&
		a.EngineICEWear == b.EngineICEWear &&
		a.EngineMGUKWear == b.EngineMGUKWear &&
		a.EngineTCWear == b.EngineTCWear &&
		a.EngineBlown == b.EngineBlown &&
		a.EngineSeized == b.EngineSeized
}

func floatSliceEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func uintSliceEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func u32ptr(v uint32) *uint32   { return &v }
func i32ptr(v int32) *int32     { return &v }
func f32ptr(v float32) *float32 { return &v }
