package session

import "time"

const (
	generalInterval   = 700 * time.Millisecond
	telemetryInterval = 100 * time.Millisecond
)

// sendGeneralUpdates is the general tick: compute a diff against the
// last emitted snapshot, and if anything changed, encode and publish it,
// then roll the snapshot forward. A tick with zero subscribers does no
// work at all — there's nobody to compute a diff for.
func (m *Manager) sendGeneralUpdates() {
	if m.GlobalSubscriberCount() == 0 {
		return
	}

	m.generalMu.RLock()
	m.lastGeneralMu.RLock()
	diff := diffGeneral(m.general, m.lastGeneral)
	snapshot := cloneGeneralInfo(m.general)
	m.lastGeneralMu.RUnlock()
	m.generalMu.RUnlock()

	if diff.Empty() {
		return
	}

	encoded := EncodeGeneral(diff)

	m.globalChannel.publish(encoded)

	m.lastGeneralMu.Lock()
	m.lastGeneral = snapshot
	m.lastGeneralMu.Unlock()

	m.lastGeneralEncodedMu.Lock()
	m.lastGeneralEncoded = encoded
	m.lastGeneralEncodedMu.Unlock()
}

// sendTelemetryUpdates is the telemetry tick. Each team's channel only
// gets a diff built from drivers on that team, and only teams with at
// least one live subscriber are computed at all. When at least one team
// is active, last_telemetry itself is rolled forward wholesale
// afterwards, including drivers of teams that were not active this
// tick. A tick with no active team returns before any of this and
// leaves last_telemetry unchanged.
func (m *Manager) sendTelemetryUpdates() {
	m.teamChannelsMu.RLock()
	activeTeams := make(map[uint8]*broadcaster, len(m.teamChannels))
	for teamID, ch := range m.teamChannels {
		if ch.subscriberCount() > 0 {
			activeTeams[teamID] = ch
		}
	}
	m.teamChannelsMu.RUnlock()

	if len(activeTeams) == 0 {
		return
	}

	m.driverIndexMu.RLock()
	teamOf := make(map[string]uint8, len(m.driverIndex))
	for _, d := range m.driverIndex {
		teamOf[d.Name] = d.TeamID
	}
	m.driverIndexMu.RUnlock()

	m.telemetryMu.RLock()
	m.lastTelemetryMu.RLock()
	full := diffTelemetry(m.telemetry, m.lastTelemetry)
	snapshot := cloneTelemetryInfo(m.telemetry)
	m.lastTelemetryMu.RUnlock()
	m.telemetryMu.RUnlock()

	for teamID, ch := range activeTeams {
		teamDiff := &TelemetryDiff{PlayerTelemetry: make(map[string]*PlayerTelemetry)}
		for name, pt := range full.PlayerTelemetry {
			if teamOf[name] == teamID {
				teamDiff.PlayerTelemetry[name] = pt
			}
		}
		if teamDiff.Empty() {
			continue
		}
		ch.publish(EncodeTelemetry(teamDiff))
	}

	m.lastTelemetryMu.Lock()
	m.lastTelemetry = snapshot
	m.lastTelemetryMu.Unlock()
}

func cloneGeneralInfo(g *GeneralInfo) *GeneralInfo {
	clone := &GeneralInfo{
		Events:  append([]EventRecord(nil), g.Events...),
		Players: make(map[string]*PlayerInfo, len(g.Players)),
	}
	if g.Session != nil {
		s := *g.Session
		s.WeekendStructure = append([]uint32(nil), g.Session.WeekendStructure...)
		clone.Session = &s
	}
	for name, p := range g.Players {
		cp := &PlayerInfo{}
		if p.Participant != nil {
			v := *p.Participant
			cp.Participant = &v
		}
		if p.CarMotion != nil {
			v := *p.CarMotion
			cp.CarMotion = &v
		}
		if p.LapHistory != nil {
			v := *p.LapHistory
			v.LapHistory = append([]LapHistoryEntry(nil), p.LapHistory.LapHistory...)
			v.TyreStintsHistory = append([]TyreStintEntry(nil), p.LapHistory.TyreStintsHistory...)
			cp.LapHistory = &v
		}
		if p.FinalClassification != nil {
			v := *p.FinalClassification
			v.TyreStintsActual = append([]uint32(nil), p.FinalClassification.TyreStintsActual...)
			v.TyreStintsVisual = append([]uint32(nil), p.FinalClassification.TyreStintsVisual...)
			v.TyreStintsEndLaps = append([]uint32(nil), p.FinalClassification.TyreStintsEndLaps...)
			cp.FinalClassification = &v
		}
		clone.Players[name] = cp
	}
	return clone
}

func cloneTelemetryInfo(t *TelemetryInfo) *TelemetryInfo {
	clone := &TelemetryInfo{PlayerTelemetry: make(map[string]*PlayerTelemetry, len(t.PlayerTelemetry))}
	for name, pt := range t.PlayerTelemetry {
		cp := &PlayerTelemetry{}
		if pt.CarTelemetry != nil {
			v := *pt.CarTelemetry
			v.BrakesTemperature = append([]uint32(nil), pt.CarTelemetry.BrakesTemperature...)
			v.TyresSurfaceTemperature = append([]uint32(nil), pt.CarTelemetry.TyresSurfaceTemperature...)
			v.TyresInnerTemperature = append([]uint32(nil), pt.CarTelemetry.TyresInnerTemperature...)
			v.TyresPressure = append([]float32(nil), pt.CarTelemetry.TyresPressure...)
			cp.CarTelemetry = &v
		}
		if pt.CarStatus != nil {
			v := *pt.CarStatus
			cp.CarStatus = &v
		}
		if pt.CarDamage != nil {
			v := *pt.CarDamage
			v.TyresWear = append([]float32(nil), pt.CarDamage.TyresWear...)
			v.TyresDamage = append([]uint32(nil), pt.CarDamage.TyresDamage...)
			v.BrakesDamage = append([]uint32(nil), pt.CarDamage.BrakesDamage...)
			cp.CarDamage = &v
		}
		clone.PlayerTelemetry[name] = cp
	}
	return clone
}
