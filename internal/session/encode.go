package session

import (
	"sort"

	"github.com/racewire/telemetry-hub/internal/codec"
	"github.com/racewire/telemetry-hub/internal/wire"
)

// EncodeGeneral serializes a GeneralDiff deterministically: every map is
// walked in sorted key order so the same diff value always produces the
// same byte string, as required of the wire contract.
func EncodeGeneral(d *GeneralDiff) []byte {
	w := wire.NewWriter(256)

	hasSession := d.Session != nil && !d.Session.empty()
	w.Bool(hasSession)
	if hasSession {
		w.Sub(func(sw *wire.Writer) { encodeSessionDiff(sw, d.Session) })
	}

	w.U32(uint32(len(d.Events)))
	for _, e := range d.Events {
		encodeEventRecord(w, e)
	}

	names := sortedKeys(d.Players)
	w.U32(uint32(len(names)))
	for _, name := range names {
		w.String(name)
		w.Sub(func(sw *wire.Writer) { encodePlayerDiff(sw, d.Players[name]) })
	}

	return w.Bytes()
}

// EncodeTelemetry serializes a TelemetryDiff the same deterministic way.
func EncodeTelemetry(d *TelemetryDiff) []byte {
	w := wire.NewWriter(256)

	names := sortedKeys(d.PlayerTelemetry)
	w.U32(uint32(len(names)))
	for _, name := range names {
		w.String(name)
		w.Sub(func(sw *wire.Writer) { encodePlayerTelemetry(sw, d.PlayerTelemetry[name]) })
	}

	return w.Bytes()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func optU32(w *wire.Writer, v *uint32) {
	w.Bool(v != nil)
	if v != nil {
		w.U32(*v)
	}
}

func optI32(w *wire.Writer, v *int32) {
	w.Bool(v != nil)
	if v != nil {
		w.I32(*v)
	}
}

func optF32(w *wire.Writer, v *float32) {
	w.Bool(v != nil)
	if v != nil {
		w.F32(*v)
	}
}

func encodeSessionDiff(w *wire.Writer, s *SessionDiff) {
	optU32(w, s.Weather)
	optI32(w, s.TrackTemperature)
	optI32(w, s.AirTemperature)
	optU32(w, s.TotalLaps)
	optU32(w, s.TrackLength)
	optU32(w, s.SessionType)
	optI32(w, s.TrackID)
	optU32(w, s.SessionTimeLeft)
	optU32(w, s.SessionDuration)
	optU32(w, s.SafetyCarStatus)
	optU32(w, s.SessionLength)
	optU32(w, s.NumSafetyCar)
	optU32(w, s.NumVirtualSafetyCar)
	optU32(w, s.NumRedFlags)
	optF32(w, s.Sector2LapDistanceStart)
	optF32(w, s.Sector3LapDistanceStart)
	w.U32(uint32(len(s.WeekendStructure)))
	for _, v := range s.WeekendStructure {
		w.U32(v)
	}
}

func encodeEventRecord(w *wire.Writer, e EventRecord) {
	w.Bytes4(string(e.Code))
	w.Sub(func(sw *wire.Writer) { encodeEventDetails(sw, e.Details) })
}

// encodeEventDetails writes only the populated variant of
// codec.EventDetails; a reader dispatches on the code written just
// before this sub-message to know which optional fields to expect.
func encodeEventDetails(w *wire.Writer, d codec.EventDetails) {
	if v := d.FastestLap; v != nil {
		w.U8(v.VehicleIdx)
		w.F32(v.LapTime)
		return
	}
	if v := d.Retirement; v != nil {
		w.U8(v.VehicleIdx)
		return
	}
	if v := d.RaceWinner; v != nil {
		w.U8(v.VehicleIdx)
		return
	}
	if v := d.Penalty; v != nil {
		w.U8(v.PenaltyType)
		w.U8(v.InfringementType)
		w.U8(v.VehicleIdx)
		w.U8(v.OtherVehicleIdx)
		w.U8(v.Time)
		w.U8(v.LapNum)
		w.U8(v.PlacesGained)
		return
	}
	if v := d.SpeedTrap; v != nil {
		w.U8(v.VehicleIdx)
		w.F32(v.Speed)
		w.Bool(v.IsOverallFastestInSession)
		w.Bool(v.IsDriverFastestInSession)
		w.U8(v.FastestVehicleIdxInSession)
		w.F32(v.FastestSpeedInSession)
		return
	}
	if v := d.StartLights; v != nil {
		w.U8(v.NumLights)
		return
	}
	if v := d.DriveThroughServed; v != nil {
		w.U8(v.VehicleIdx)
		return
	}
	if v := d.StopGoServed; v != nil {
		w.U8(v.VehicleIdx)
		return
	}
	if v := d.Overtake; v != nil {
		w.U8(v.OvertakingVehicleIdx)
		w.U8(v.BeingOvertakenVehicleIdx)
		return
	}
	if v := d.SafetyCar; v != nil {
		w.U8(v.SafetyCarType)
		w.U8(v.EventType)
		return
	}
	if v := d.Collision; v != nil {
		w.U8(v.Vehicle1Idx)
		w.U8(v.Vehicle2Idx)
		return
	}
}

func encodePlayerDiff(w *wire.Writer, p *PlayerDiff) {
	w.Bool(p.Participant != nil)
	if p.Participant != nil {
		pp := p.Participant
		w.U32(pp.TeamID)
		w.U32(pp.RaceNumber)
		w.U32(pp.Nationality)
		w.U32(pp.Platform)
	}

	w.Bool(p.CarMotion != nil)
	if p.CarMotion != nil {
		m := p.CarMotion
		w.F32(m.X)
		w.F32(m.Y)
		w.F32(m.Yaw)
	}

	w.Bool(p.History != nil)
	if p.History != nil {
		h := p.History
		w.U32(h.NumLaps)
		w.U32(h.NumTyreStints)
		w.U32(h.BestLapTimeLapNum)
		w.U32(h.BestSector1LapNum)
		w.U32(h.BestSector2LapNum)
		w.U32(h.BestSector3LapNum)
		w.U32(uint32(len(h.NewLapHistory)))
		for _, lap := range h.NewLapHistory {
			w.U32(lap.LapTimeMS)
			w.U32(lap.Sector1TimeMS)
			w.U32(lap.Sector2TimeMS)
			w.U32(lap.Sector3TimeMS)
			w.U32(lap.LapValidBitFlags)
		}
		w.U32(uint32(len(h.NewTyreStints)))
		for _, stint := range h.NewTyreStints {
			w.U32(stint.ActualCompound)
			w.U32(stint.VisualCompound)
			w.U32(stint.EndLap)
		}
	}

	w.Bool(p.FinalClassification != nil)
	if p.FinalClassification != nil {
		f := p.FinalClassification
		w.U32(f.Position)
		w.U32(f.Laps)
		w.U32(f.GridPosition)
		w.U32(f.Points)
		w.U32(f.PitStops)
		w.U32(f.ResultStatus)
		w.U32(f.BestLapTimeMS)
		w.F64(f.RaceTimeSeconds)
		w.U32(f.PenaltiesSeconds)
		w.U32(f.NumPenalties)
		w.U32(uint32(len(f.TyreStintsActual)))
		for _, v := range f.TyreStintsActual {
			w.U32(v)
		}
		w.U32(uint32(len(f.TyreStintsVisual)))
		for _, v := range f.TyreStintsVisual {
			w.U32(v)
		}
		w.U32(uint32(len(f.TyreStintsEndLaps)))
		for _, v := range f.TyreStintsEndLaps {
			w.U32(v)
		}
	}
}

func encodePlayerTelemetry(w *wire.Writer, p *PlayerTelemetry) {
	w.Bool(p.CarTelemetry != nil)
	if t := p.CarTelemetry; t != nil {
		w.U32(t.Speed)
		w.F32(t.Throttle)
		w.F32(t.Steer)
		w.F32(t.Brake)
		w.I32(t.Gear)
		w.U32(t.EngineRPM)
		w.Bool(t.DRS)
		w.U32(t.EngineTemperature)
		writeUint32Slice(w, t.BrakesTemperature)
		writeUint32Slice(w, t.TyresSurfaceTemperature)
		writeUint32Slice(w, t.TyresInnerTemperature)
		writeFloat32Slice(w, t.TyresPressure)
	}

	w.Bool(p.CarStatus != nil)
	if s := p.CarStatus; s != nil {
		w.U32(s.FuelMix)
		w.U32(s.FrontBrakeBias)
		w.F32(s.FuelInTank)
		w.F32(s.FuelCapacity)
		w.F32(s.FuelRemainingLaps)
		w.Bool(s.DRSAllowed)
		w.U32(s.DRSActivationDistance)
		w.U32(s.ActualTyreCompound)
		w.U32(s.VisualTyreCompound)
		w.U32(s.TyresAgeLaps)
		w.I32(s.VehicleFIAFlags)
		w.F32(s.EnginePowerICE)
		w.F32(s.EnginePowerMGUK)
		w.F32(s.ERSStoreEnergy)
		w.U32(s.ERSDeployMode)
		w.F32(s.ERSHarvestedThisLapMGUK)
		w.F32(s.ERSHarvestedThisLapMGUH)
		w.F32(s.ERSDeployedThisLap)
	}

	w.Bool(p.CarDamage != nil)
	if dm := p.CarDamage; dm != nil {
		writeFloat32Slice(w, dm.TyresWear)
		writeUint32Slice(w, dm.TyresDamage)
		writeUint32Slice(w, dm.BrakesDamage)
		w.U32(dm.FrontLeftWingDamage)
		w.U32(dm.FrontRightWingDamage)
		w.U32(dm.RearWingDamage)
		w.U32(dm.FloorDamage)
		w.U32(dm.DiffuserDamage)
		w.U32(dm.SidepodDamage)
		w.Bool(dm.DRSFault)
		w.Bool(dm.ERSFault)
		w.U32(dm.GearBoxDamage)
		w.U32(dm.EngineDamage)
		w.U32(dm.EngineMGUHWear)
		w.U32(dm.EngineESWear)
		w.U32(dm.EngineCEWear)
		w.U32(dm.EngineICEWear)
		w.U32(dm.EngineMGUKWear)
		w.U32(dm.EngineTCWear)
		w.Bool(dm.EngineBlown)
		w.Bool(dm.EngineSeized)
	}
}

func writeUint32Slice(w *wire.Writer, s []uint32) {
	w.U32(uint32(len(s)))
	for _, v := range s {
		w.U32(v)
	}
}

func writeFloat32Slice(w *wire.Writer, s []float32) {
	w.U32(uint32(len(s)))
	for _, v := range s {
		w.F32(v)
	}
}
