package session

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/racewire/telemetry-hub/internal/codec"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(zerolog.Nop())
	t.Cleanup(m.Close)
	return m
}

func participantsPacket(entries ...codec.ParticipantData) codec.ParticipantsPacket {
	var pkt codec.ParticipantsPacket
	pkt.NumActiveCars = uint8(len(entries))
	for i, e := range entries {
		pkt.Participants[i] = e
	}
	return pkt
}

func TestSaveParticipantsSkipsEmptyAndPlaceholderNames(t *testing.T) {
	m := newTestManager(t)

	pkt := participantsPacket(
		codec.ParticipantData{Name: "Alice", TeamID: 5, RaceNumber: 44},
		codec.ParticipantData{Name: ""},
		codec.ParticipantData{Name: "Player"},
	)
	m.SaveParticipants(pkt)

	require.Len(t, m.driverIndex, 1)
	require.Equal(t, DriverInfo{Name: "Alice", TeamID: 5}, m.driverIndex[0])
	require.Contains(t, m.general.Players, "Alice")
	require.Contains(t, m.telemetry.PlayerTelemetry, "Alice")
	require.Equal(t, 0, m.TeamSubscriberCount(5)) // channel exists but nobody has subscribed
}

func TestSaveParticipantsDoesNotReregisterKnownSlot(t *testing.T) {
	m := newTestManager(t)

	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice", TeamID: 1}))
	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice Renamed", TeamID: 2}))

	require.Equal(t, DriverInfo{Name: "Alice", TeamID: 1}, m.driverIndex[0])
}

func TestSaveMotionSkipsUnplacedAndUnknownCars(t *testing.T) {
	m := newTestManager(t)
	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice", TeamID: 1}))

	var pkt codec.MotionPacket
	pkt.Cars[0] = codec.CarMotionData{WorldPositionX: 0, WorldPositionY: 10} // untouched, skipped
	pkt.Cars[1] = codec.CarMotionData{WorldPositionX: 99, WorldPositionY: 1} // no driver registered, skipped
	m.SaveMotion(pkt)
	require.Nil(t, m.general.Players["Alice"].CarMotion)

	pkt.Cars[0] = codec.CarMotionData{WorldPositionX: 123.4, WorldPositionY: 5.6, Yaw: 0.1}
	m.SaveMotion(pkt)
	require.Equal(t, &CarMotionSummary{X: 123.4, Y: 5.6, Yaw: 0.1}, m.general.Players["Alice"].CarMotion)
}

func TestSaveLapHistoryUpsertsLastTwoLaps(t *testing.T) {
	m := newTestManager(t)
	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice", TeamID: 1}))

	var pkt codec.SessionHistoryPacket
	pkt.CarIdx = 0
	pkt.NumLaps = 1
	pkt.LapHistoryData[0] = codec.LapHistoryData{LapTimeInMS: 90000}
	m.SaveLapHistory(pkt)

	h := m.general.Players["Alice"].LapHistory
	require.Len(t, h.LapHistory, 1)
	require.Equal(t, uint32(90000), h.LapHistory[0].LapTimeMS)

	// The game corrects the in-progress lap's sector split on a later tick
	// for the same lap index; it must be overwritten in place, not appended.
	pkt.LapHistoryData[0] = codec.LapHistoryData{LapTimeInMS: 89500}
	m.SaveLapHistory(pkt)
	h = m.general.Players["Alice"].LapHistory
	require.Len(t, h.LapHistory, 1)
	require.Equal(t, uint32(89500), h.LapHistory[0].LapTimeMS)

	// A new lap beyond the refreshable window is appended, not merged.
	pkt.NumLaps = 2
	pkt.LapHistoryData[1] = codec.LapHistoryData{LapTimeInMS: 91000}
	m.SaveLapHistory(pkt)
	h = m.general.Players["Alice"].LapHistory
	require.Len(t, h.LapHistory, 2)
	require.Equal(t, uint32(89500), h.LapHistory[0].LapTimeMS)
	require.Equal(t, uint32(91000), h.LapHistory[1].LapTimeMS)
}

func TestSaveLapHistoryIgnoresUnknownCar(t *testing.T) {
	m := newTestManager(t)
	var pkt codec.SessionHistoryPacket
	pkt.CarIdx = 3
	pkt.NumLaps = 1
	m.SaveLapHistory(pkt)
	require.Empty(t, m.general.Players)
}

func TestSaveFinalClassificationRecordsKnownDriversOnly(t *testing.T) {
	m := newTestManager(t)
	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice", TeamID: 1}))

	var pkt codec.FinalClassificationPacket
	pkt.NumCars = 1
	pkt.ClassificationData[0] = codec.FinalClassificationData{
		Position: 1, NumLaps: 58, GridPosition: 3, Points: 25,
		NumPitStops: 2, ResultStatus: 3, BestLapTimeInMS: 88123,
		TotalRaceTime: 5412.9, PenaltiesTime: 5, NumPenalties: 1,
		NumTyreStints: 2,
	}
	pkt.ClassificationData[0].TyreStintsActual[0] = 16
	pkt.ClassificationData[0].TyreStintsActual[1] = 17
	pkt.ClassificationData[0].TyreStintsVisual[0] = 16
	pkt.ClassificationData[0].TyreStintsVisual[1] = 17
	pkt.ClassificationData[0].TyreStintsEndLaps[0] = 20
	pkt.ClassificationData[0].TyreStintsEndLaps[1] = 58

	m.SaveFinalClassification(pkt)

	fc := m.general.Players["Alice"].FinalClassification
	require.NotNil(t, fc)
	require.Equal(t, uint32(1), fc.Position)
	require.Equal(t, uint32(25), fc.Points)
	require.Equal(t, []uint32{16, 17}, fc.TyreStintsActual)
	require.Equal(t, []uint32{20, 58}, fc.TyreStintsEndLaps)
}

func TestSaveCarTelemetryConvertsKnownDrivers(t *testing.T) {
	m := newTestManager(t)
	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice", TeamID: 1}))

	var pkt codec.CarTelemetryPacket
	pkt.Cars[0] = codec.CarTelemetryData{
		Speed: 310, Throttle: 1.0, Steer: -0.2, Brake: 0, Gear: 7,
		EngineRPM: 11500, DRS: 1, EngineTemperature: 108,
	}
	pkt.Cars[0].BrakesTemperature = [4]uint16{400, 410, 420, 430}
	pkt.Cars[0].TyresSurfaceTemperature = [4]uint8{90, 91, 92, 93}
	pkt.Cars[0].TyresInnerTemperature = [4]uint8{95, 96, 97, 98}
	pkt.Cars[0].TyresPressure = [4]float32{22.1, 22.2, 22.3, 22.4}

	m.SaveCarTelemetry(pkt)

	ct := m.telemetry.PlayerTelemetry["Alice"].CarTelemetry
	require.NotNil(t, ct)
	require.Equal(t, uint32(310), ct.Speed)
	require.True(t, ct.DRS)
	require.Equal(t, []uint32{400, 410, 420, 430}, ct.BrakesTemperature)
	require.Equal(t, []float32{22.1, 22.2, 22.3, 22.4}, ct.TyresPressure)
}

func TestSaveCarStatusConvertsKnownDrivers(t *testing.T) {
	m := newTestManager(t)
	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice", TeamID: 1}))

	var pkt codec.CarStatusPacket
	pkt.Cars[0] = codec.CarStatusData{FuelMix: 2, DRSAllowed: 1, ActualTyreCompound: 16}
	m.SaveCarStatus(pkt)

	cs := m.telemetry.PlayerTelemetry["Alice"].CarStatus
	require.NotNil(t, cs)
	require.Equal(t, uint32(2), cs.FuelMix)
	require.True(t, cs.DRSAllowed)
	require.Equal(t, uint32(16), cs.ActualTyreCompound)
}

func TestSaveCarDamageConvertsKnownDrivers(t *testing.T) {
	m := newTestManager(t)
	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice", TeamID: 1}))

	var pkt codec.CarDamagePacket
	pkt.Cars[0].TyresWear = [4]float32{1, 2, 3, 4}
	pkt.Cars[0].EngineBlown = 1
	m.SaveCarDamage(pkt)

	cd := m.telemetry.PlayerTelemetry["Alice"].CarDamage
	require.NotNil(t, cd)
	require.Equal(t, []float32{1, 2, 3, 4}, cd.TyresWear)
	require.True(t, cd.EngineBlown)
	require.False(t, cd.EngineSeized)
}

func TestPushEventDropsNoiseCodesAndKeepsOthers(t *testing.T) {
	m := newTestManager(t)

	m.PushEvent(codec.EventPacket{Details: codec.EventDetails{Code: codec.EventDRSEnabled}})
	require.Empty(t, m.general.Events)

	m.PushEvent(codec.EventPacket{Details: codec.EventDetails{Code: codec.EventSendToClient}})
	m.PushEvent(codec.EventPacket{Details: codec.EventDetails{Code: codec.EventReturnToGrid}})
	require.Empty(t, m.general.Events, "SEND/RFGO must never reach subscribers")

	m.PushEvent(codec.EventPacket{Details: codec.EventDetails{
		Code:       codec.EventFastestLap,
		FastestLap: &codec.FastestLapDetails{VehicleIdx: 4, LapTime: 88.1},
	}})
	require.Len(t, m.general.Events, 1)
	require.Equal(t, codec.EventFastestLap, m.general.Events[0].Code)
}

func TestSaveSessionReplacesStateWholesale(t *testing.T) {
	m := newTestManager(t)

	var pkt codec.SessionPacket
	pkt.Weather = 2
	pkt.TrackTemperature = 35
	pkt.NumSessionsInWeekend = 2
	pkt.WeekendStructure[0] = 1
	pkt.WeekendStructure[1] = 5
	m.SaveSession(pkt)

	require.Equal(t, uint32(2), m.general.Session.Weather)
	require.Equal(t, int32(35), m.general.Session.TrackTemperature)
	require.Equal(t, []uint32{1, 5}, m.general.Session.WeekendStructure)
}
