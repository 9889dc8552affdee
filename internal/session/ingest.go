package session

import "github.com/racewire/telemetry-hub/internal/codec"

// SaveParticipants registers the driver roster. A car slot is only
// registered once: the first time it carries a real participant (not an
// empty name, not the placeholder "Player" a game shows before a human
// takes the seat). Re-registering on every packet would let a driver who
// temporarily goes idle get silently dropped and re-added under a fresh
// identity.
func (m *Manager) SaveParticipants(pkt codec.ParticipantsPacket) {
	m.driverIndexMu.Lock()
	m.generalMu.Lock()
	m.telemetryMu.Lock()
	defer m.driverIndexMu.Unlock()
	defer m.generalMu.Unlock()
	defer m.telemetryMu.Unlock()

	for idx, participant := range pkt.ActiveParticipants() {
		if participant.Name == "" || participant.Name == "Player" {
			continue
		}
		if _, known := m.driverIndex[idx]; known {
			continue
		}
		m.driverIndex[idx] = DriverInfo{Name: participant.Name, TeamID: participant.TeamID}
		m.general.Players[participant.Name] = &PlayerInfo{
			Participant: &ParticipantSummary{
				TeamID:      uint32(participant.TeamID),
				RaceNumber:  uint32(participant.RaceNumber),
				Nationality: uint32(participant.Nationality),
				Platform:    uint32(participant.Platform),
			},
		}
		m.telemetry.PlayerTelemetry[participant.Name] = &PlayerTelemetry{}
		m.ensureTeamChannel(participant.TeamID)
	}
}

// SaveSession replaces the tracked session-wide state wholesale; there is
// exactly one session record, not one per car.
func (m *Manager) SaveSession(pkt codec.SessionPacket) {
	weekend := pkt.ActiveWeekendStructure()
	ws := make([]uint32, len(weekend))
	for i, v := range weekend {
		ws[i] = uint32(v)
	}

	m.generalMu.Lock()
	defer m.generalMu.Unlock()
	m.general.Session = &SessionData{
		Weather:                 uint32(pkt.Weather),
		TrackTemperature:        int32(pkt.TrackTemperature),
		AirTemperature:          int32(pkt.AirTemperature),
		TotalLaps:               uint32(pkt.TotalLaps),
		TrackLength:             uint32(pkt.TrackLength),
		SessionType:             uint32(pkt.SessionType),
		TrackID:                 int32(pkt.TrackID),
		SessionTimeLeft:         uint32(pkt.SessionTimeLeft),
		SessionDuration:         uint32(pkt.SessionDuration),
		SafetyCarStatus:         uint32(pkt.SafetyCarStatus),
		SessionLength:           uint32(pkt.SessionLength),
		NumSafetyCar:            uint32(pkt.NumSafetyCarPeriods),
		NumVirtualSafetyCar:     uint32(pkt.NumVirtualSafetyCarPeriods),
		NumRedFlags:             uint32(pkt.NumRedFlagPeriods),
		Sector2LapDistanceStart: pkt.Sector2LapDistanceStart,
		Sector3LapDistanceStart: pkt.Sector3LapDistanceStart,
		WeekendStructure:        ws,
	}
}

// SaveMotion updates each known driver's on-track position. A car slot
// whose world-X is still exactly zero hasn't been placed on track yet
// (the game zeroes the whole array before a session starts broadcasting
// real positions), and one with no driverIndex entry has no name to key
// the general snapshot by — both are skipped.
func (m *Manager) SaveMotion(pkt codec.MotionPacket) {
	m.driverIndexMu.RLock()
	defer m.driverIndexMu.RUnlock()

	m.generalMu.Lock()
	defer m.generalMu.Unlock()

	for idx, car := range pkt.Cars {
		if car.WorldPositionX == 0 {
			continue
		}
		driver, ok := m.driverIndex[idx]
		if !ok {
			continue
		}
		player := m.playerLocked(driver.Name)
		player.CarMotion = &CarMotionSummary{X: car.WorldPositionX, Y: car.WorldPositionY, Yaw: car.Yaw}
	}
}

// SaveLapHistory applies the upsert rule for one driver's session
// history: laps before the last two are treated as final and never
// rewritten, while the last two (the lap in progress and the one just
// completed) are refreshed every time this packet arrives for that car,
// since the game keeps correcting sector splits shortly after a lap ends.
func (m *Manager) SaveLapHistory(pkt codec.SessionHistoryPacket) {
	m.driverIndexMu.RLock()
	driver, ok := m.driverIndex[int(pkt.CarIdx)]
	m.driverIndexMu.RUnlock()
	if !ok {
		return
	}

	laps := pkt.ActiveLapHistory()
	stints := pkt.ActiveTyreStints()

	m.generalMu.Lock()
	defer m.generalMu.Unlock()

	player := m.playerLocked(driver.Name)
	h := player.LapHistory
	if h == nil {
		h = &HistoryData{}
		player.LapHistory = h
	}
	h.NumLaps = uint32(pkt.NumLaps)
	h.NumTyreStints = uint32(pkt.NumTyreStints)
	h.BestLapTimeLapNum = uint32(pkt.BestLapTimeLapNum)
	h.BestSector1LapNum = uint32(pkt.BestSector1LapNum)
	h.BestSector2LapNum = uint32(pkt.BestSector2LapNum)
	h.BestSector3LapNum = uint32(pkt.BestSector3LapNum)

	refreshFrom := len(h.LapHistory) - 2
	if refreshFrom < 0 {
		refreshFrom = 0
	}
	for i := refreshFrom; i < len(laps); i++ {
		entry := lapHistoryEntry(laps[i])
		if i < len(h.LapHistory) {
			h.LapHistory[i] = entry
		} else {
			h.LapHistory = append(h.LapHistory, entry)
		}
	}

	for i := len(h.TyreStintsHistory); i < len(stints); i++ {
		h.TyreStintsHistory = append(h.TyreStintsHistory, tyreStintEntry(stints[i]))
	}
}

func lapHistoryEntry(l codec.LapHistoryData) LapHistoryEntry {
	return LapHistoryEntry{
		LapTimeMS:        l.LapTimeInMS,
		Sector1TimeMS:    uint32(l.Sector1TimeMinutes)*60000 + uint32(l.Sector1TimeInMS),
		Sector2TimeMS:    uint32(l.Sector2TimeMinutes)*60000 + uint32(l.Sector2TimeInMS),
		Sector3TimeMS:    uint32(l.Sector3TimeMinutes)*60000 + uint32(l.Sector3TimeInMS),
		LapValidBitFlags: uint32(l.LapValidBitFlags),
	}
}

func tyreStintEntry(t codec.TyreStintHistoryData) TyreStintEntry {
	return TyreStintEntry{
		ActualCompound: uint32(t.TyreActualCompound),
		VisualCompound: uint32(t.TyreVisualCompound),
		EndLap:         uint32(t.EndLap),
	}
}

// SaveFinalClassification records each known driver's end-of-session
// result row.
func (m *Manager) SaveFinalClassification(pkt codec.FinalClassificationPacket) {
	m.driverIndexMu.RLock()
	defer m.driverIndexMu.RUnlock()

	m.generalMu.Lock()
	defer m.generalMu.Unlock()

	for idx, row := range pkt.ClassificationData[:pkt.NumCars] {
		driver, ok := m.driverIndex[idx]
		if !ok {
			continue
		}
		player := m.playerLocked(driver.Name)
		player.FinalClassification = &FinalClassificationSummary{
			Position:          uint32(row.Position),
			Laps:              uint32(row.NumLaps),
			GridPosition:      uint32(row.GridPosition),
			Points:            uint32(row.Points),
			PitStops:          uint32(row.NumPitStops),
			ResultStatus:      uint32(row.ResultStatus),
			BestLapTimeMS:     row.BestLapTimeInMS,
			RaceTimeSeconds:   row.TotalRaceTime,
			PenaltiesSeconds:  uint32(row.PenaltiesTime),
			NumPenalties:      uint32(row.NumPenalties),
			TyreStintsActual:  u8SliceToU32(row.TyreStintsActual[:row.NumTyreStints]),
			TyreStintsVisual:  u8SliceToU32(row.TyreStintsVisual[:row.NumTyreStints]),
			TyreStintsEndLaps: u8SliceToU32(row.TyreStintsEndLaps[:row.NumTyreStints]),
		}
	}
}

func u8SliceToU32(in []uint8) []uint32 {
	out := make([]uint32, len(in))
	for i, v := range in {
		out[i] = uint32(v)
	}
	return out
}

// SaveCarTelemetry updates each known driver's high-rate telemetry sample.
func (m *Manager) SaveCarTelemetry(pkt codec.CarTelemetryPacket) {
	m.driverIndexMu.RLock()
	defer m.driverIndexMu.RUnlock()

	m.telemetryMu.Lock()
	defer m.telemetryMu.Unlock()

	for idx, car := range pkt.Cars {
		driver, ok := m.driverIndex[idx]
		if !ok {
			continue
		}
		t := m.telemetryLocked(driver.Name)
		t.CarTelemetry = &CarTelemetrySummary{
			Speed:                   uint32(car.Speed),
			Throttle:                car.Throttle,
			Steer:                   car.Steer,
			Brake:                   car.Brake,
			Gear:                    int32(car.Gear),
			EngineRPM:               uint32(car.EngineRPM),
			DRS:                     car.DRS != 0,
			EngineTemperature:       uint32(car.EngineTemperature),
			BrakesTemperature:       u16ArrayToU32(car.BrakesTemperature[:]),
			TyresSurfaceTemperature: u8ArrayToU32(car.TyresSurfaceTemperature[:]),
			TyresInnerTemperature:   u8ArrayToU32(car.TyresInnerTemperature[:]),
			TyresPressure:           append([]float32(nil), car.TyresPressure[:]...),
		}
	}
}

func u16ArrayToU32(in []uint16) []uint32 {
	out := make([]uint32, len(in))
	for i, v := range in {
		out[i] = uint32(v)
	}
	return out
}

func u8ArrayToU32(in []uint8) []uint32 {
	out := make([]uint32, len(in))
	for i, v := range in {
		out[i] = uint32(v)
	}
	return out
}

// SaveCarStatus updates each known driver's setup/assist/ERS status.
func (m *Manager) SaveCarStatus(pkt codec.CarStatusPacket) {
	m.driverIndexMu.RLock()
	defer m.driverIndexMu.RUnlock()

	m.telemetryMu.Lock()
	defer m.telemetryMu.Unlock()

	for idx, car := range pkt.Cars {
		driver, ok := m.driverIndex[idx]
		if !ok {
			continue
		}
		t := m.telemetryLocked(driver.Name)
		t.CarStatus = &CarStatusSummary{
			FuelMix:                 uint32(car.FuelMix),
			FrontBrakeBias:          uint32(car.FrontBrakeBias),
			FuelInTank:              car.FuelInTank,
			FuelCapacity:            car.FuelCapacity,
			FuelRemainingLaps:       car.FuelRemainingLaps,
			DRSAllowed:              car.DRSAllowed != 0,
			DRSActivationDistance:   uint32(car.DRSActivationDistance),
			ActualTyreCompound:      uint32(car.ActualTyreCompound),
			VisualTyreCompound:      uint32(car.VisualTyreCompound),
			TyresAgeLaps:            uint32(car.TyresAgeLaps),
			VehicleFIAFlags:         int32(car.VehicleFIAFlags),
			EnginePowerICE:          car.EnginePowerICE,
			EnginePowerMGUK:         car.EnginePowerMGUK,
			ERSStoreEnergy:          car.ERSStoreEnergy,
			ERSDeployMode:           uint32(car.ERSDeployMode),
			ERSHarvestedThisLapMGUK: car.ERSHarvestedThisLapMGUK,
			ERSHarvestedThisLapMGUH: car.ERSHarvestedThisLapMGUH,
			ERSDeployedThisLap:      car.ERSDeployedThisLap,
		}
	}
}

// SaveCarDamage updates each known driver's bodywork/mechanical wear.
func (m *Manager) SaveCarDamage(pkt codec.CarDamagePacket) {
	m.driverIndexMu.RLock()
	defer m.driverIndexMu.RUnlock()

	m.telemetryMu.Lock()
	defer m.telemetryMu.Unlock()

	for idx, car := range pkt.Cars {
		driver, ok := m.driverIndex[idx]
		if !ok {
			continue
		}
		t := m.telemetryLocked(driver.Name)
		t.CarDamage = &CarDamageSummary{
			TyresWear:            append([]float32(nil), car.TyresWear[:]...),
			TyresDamage:          u8ArrayToU32(car.TyresDamage[:]),
			BrakesDamage:         u8ArrayToU32(car.BrakesDamage[:]),
			FrontLeftWingDamage:  uint32(car.FrontLeftWingDamage),
			FrontRightWingDamage: uint32(car.FrontRightWingDamage),
			RearWingDamage:       uint32(car.RearWingDamage),
			FloorDamage:          uint32(car.FloorDamage),
			DiffuserDamage:       uint32(car.DiffuserDamage),
			SidepodDamage:        uint32(car.SidepodDamage),
			DRSFault:             car.DRSFault != 0,
			ERSFault:             car.ERSFault != 0,
			GearBoxDamage:        uint32(car.GearBoxDamage),
			EngineDamage:         uint32(car.EngineDamage),
			EngineMGUHWear:       uint32(car.EngineMGUHWear),
			EngineESWear:         uint32(car.EngineESWear),
			EngineCEWear:         uint32(car.EngineCEWear),
			EngineICEWear:        uint32(car.EngineICEWear),
			EngineMGUKWear:       uint32(car.EngineMGUKWear),
			EngineTCWear:         uint32(car.EngineTCWear),
			EngineBlown:          car.EngineBlown != 0,
			EngineSeized:         car.EngineSeized != 0,
		}
	}
}

// PushEvent appends a converted event to the running event log, unless
// its code is one the service never surfaces downstream (see
// codec.EventCode.Dropped).
func (m *Manager) PushEvent(pkt codec.EventPacket) {
	if pkt.Details.Code.Dropped() {
		return
	}
	m.generalMu.Lock()
	defer m.generalMu.Unlock()
	m.general.Events = append(m.general.Events, EventRecord{Code: pkt.Details.Code, Details: pkt.Details})
}

// playerLocked returns the PlayerInfo for name, creating it if this is
// the first general-stream write for a driver that SaveParticipants
// hasn't registered yet (packets can race across UDP datagrams). Caller
// must hold generalMu.
func (m *Manager) playerLocked(name string) *PlayerInfo {
	p, ok := m.general.Players[name]
	if !ok {
		p = &PlayerInfo{}
		m.general.Players[name] = p
	}
	return p
}

// telemetryLocked is playerLocked's telemetry-snapshot counterpart.
// Caller must hold telemetryMu.
func (m *Manager) telemetryLocked(name string) *PlayerTelemetry {
	t, ok := m.telemetry.PlayerTelemetry[name]
	if !ok {
		t = &PlayerTelemetry{}
		m.telemetry.PlayerTelemetry[name] = t
	}
	return t
}
