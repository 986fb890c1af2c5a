package waterbalance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStep_OneHourEquivalentRain(t *testing.T) {
	res := Step(Inputs{
		RainfallMMh:  10,
		AreaM2:       100000,
		LevelM:       -0.60,
		DischargeM3s: 0,
	})

	assert.InDelta(t, -0.599833, res.NewLevel, 1e-6)
	assert.InDelta(t, 10.0/1000.0/60.0*100000, res.VolumeIn, 1e-6)
	assert.Equal(t, 0.0, res.VolumeOut)
	assert.Equal(t, 0.0, res.VolumeLoss)
}

func TestStep_NoRainEvaporationLowersLevel(t *testing.T) {
	res := Step(Inputs{
		AreaM2:         100000,
		LevelM:         0,
		EvaporationMMh: 2,
		InfiltrationMMh: 1,
	})

	assert.Less(t, res.NewLevel, 0.0)
	assert.Greater(t, res.VolumeLoss, 0.0)
}

func TestStep_RoundTripsWaterBalance(t *testing.T) {
	in := Inputs{
		RainfallMMh:     4.2,
		AreaM2:          54000,
		LevelM:          -0.30,
		DischargeM3s:    0.15,
		EvaporationMMh:  0.3,
		InfiltrationMMh: 0.1,
	}
	res := Step(in)

	expected := in.LevelM + (res.VolumeIn-res.VolumeOut-res.VolumeLoss)/in.AreaM2
	assert.InDelta(t, expected, res.NewLevel, 1e-9)
}

func TestStep_DeterministicPure(t *testing.T) {
	in := Inputs{RainfallMMh: 3, AreaM2: 20000, LevelM: -0.1, DischargeM3s: 0.02}
	a := Step(in)
	b := Step(in)
	assert.Equal(t, a, b)
}
