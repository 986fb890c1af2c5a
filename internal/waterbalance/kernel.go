// Package waterbalance implements the one-step volumetric water-balance
// kernel shared by the network simulator and the pump-schedule optimizer.
package waterbalance

// StepSeconds is the fixed simulation time step used throughout the
// kernel: 60 seconds.
const StepSeconds = 60.0

// Inputs to a single water-balance step, all in SI-adjacent units used
// throughout this system: rainfall/evaporation/infiltration in mm/h,
// area in m², level in m NAP, discharge in m³/s.
type Inputs struct {
	RainfallMMh     float64
	AreaM2          float64
	LevelM          float64
	DischargeM3s    float64
	EvaporationMMh  float64
	InfiltrationMMh float64
}

// Result of a single water-balance step.
type Result struct {
	NewLevel   float64
	VolumeIn   float64
	VolumeOut  float64
	VolumeLoss float64
}

// Step advances one StepSeconds-wide water balance for a single polder.
// The caller guarantees AreaM2 > 0; Step does not validate it.
func Step(in Inputs) Result {
	volumeIn := in.RainfallMMh * in.AreaM2 * StepSeconds / (1000.0 * 3600.0)
	volumeLoss := (in.EvaporationMMh + in.InfiltrationMMh) * in.AreaM2 * StepSeconds / (1000.0 * 3600.0)
	volumeOut := in.DischargeM3s * StepSeconds

	deltaH := (volumeIn - volumeOut - volumeLoss) / in.AreaM2

	return Result{
		NewLevel:   in.LevelM + deltaH,
		VolumeIn:   volumeIn,
		VolumeOut:  volumeOut,
		VolumeLoss: volumeLoss,
	}
}
