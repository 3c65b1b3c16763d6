package main

// RunSummary stores diagnostics of a single sampling run.
type RunSummary struct {
	// Name identifies the run (baseline or adapted).
	Name string `json:"name"`
	// Time is the sampling time in seconds, tuning included.
	Time float64 `json:"time"`
	// ESS is the bulk effective sample size per parameter.
	ESS []float64 `json:"ess"`
	// RHat is the split potential scale reduction per parameter.
	RHat []float64 `json:"rhat"`
	// MinESS is the smallest effective sample size.
	MinESS float64 `json:"minESS"`
	// MsPerEffSample is the cost of one effective sample in
	// milliseconds.
	MsPerEffSample float64 `json:"msPerEffSample"`
	// MaxRHat is the largest potential scale reduction.
	MaxRHat float64 `json:"maxRHat"`
	// AcceptanceRate is the fraction of accepted transitions over all
	// chains.
	AcceptanceRate float64 `json:"acceptanceRate"`
	// StepSizes are the tuned step sizes per chain (HMC only).
	StepSizes []float64 `json:"stepSizes,omitempty"`
	// Divergences is the number of divergent transitions.
	Divergences int `json:"divergences"`
}

// DemoSummary stores covadapt run summary information.
type DemoSummary struct {
	// Version stores covadapt version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// Dim is the dimension of the Gaussian target.
	Dim int `json:"dim"`
	// Method is the sampling method.
	Method string `json:"method"`
	// Metric is the mass-matrix form used after adaptation.
	Metric string `json:"metric"`
	// Windows is the tuning window schedule.
	Windows []int `json:"windows"`
	// MassMatrixError is the relative Frobenius error of the final
	// mass matrix against the true covariance.
	MassMatrixError float64 `json:"massMatrixError,omitempty"`
	// Baseline is the unit-metric run, omitted with -nobaseline.
	Baseline *RunSummary `json:"baseline,omitempty"`
	// Adapted is the run with the adapted mass matrix.
	Adapted *RunSummary `json:"adapted"`
	// Time is the total running time in seconds.
	Time float64 `json:"time"`
}
