package main

import (
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/gonum/matrix/mat64"
	bolt "go.etcd.io/bbolt"

	"bitbucket.org/cstatlab/covadapt/adapt"
	"bitbucket.org/cstatlab/covadapt/checkpoint"
	"bitbucket.org/cstatlab/covadapt/diag"
	"bitbucket.org/cstatlab/covadapt/mnorm"
	"bitbucket.org/cstatlab/covadapt/trace"
)

// runDemo samples a random correlated Gaussian twice, once with the
// unit metric and once with the adapted mass matrix, and reports the
// sampling efficiency of both runs.
func runDemo() (summary *DemoSummary) {
	startTime := time.Now()
	summary = &DemoSummary{
		Dim:    *dim,
		Method: *method,
		Metric: *metric,
	}

	rnd := rand.New(rand.NewSource(*seed))
	cov := mnorm.RandomCov(*dim, rnd)
	target, err := mnorm.NewTarget(make([]float64, *dim), cov)
	if err != nil {
		log.Fatal(err)
	}
	lo, hi := sdRange(cov)
	log.Noticef("Random %d-dimensional Gaussian target, sd range [%.3g, %.3g]", *dim, lo, hi)

	ss := newSamplerSettings(target, *seed)
	start := ss.start()

	if !*noBaseline {
		bss := newSamplerSettings(target, *seed)
		sampler, err := bss.builder()(nil)
		if err != nil {
			log.Fatal(err)
		}
		log.Noticef("Baseline run: unit metric, %d tuning steps, %d draws", *tune, *draws)
		t0 := time.Now()
		tr, err := sampler.Run(start, *tune, *draws, false)
		if err != nil {
			log.Fatal(err)
		}
		res := summarizeRun("baseline", tr, time.Since(t0))
		summary.Baseline = &res
	}

	as := adapt.NewSettings()
	as.InitialWindow = *window
	as.BurnIn = *burnIn
	as.TotalTune = *tune
	as.Draws = *draws
	as.RegularWindow = *regWin
	as.RegularVariance = *regVar
	as.Seed = *seed

	ad, err := adapt.New(ss.builder(), as)
	if err != nil {
		log.Fatal(err)
	}
	ad.SetStart(start)
	summary.Windows = ad.Windows()

	if *checkpointF != "" {
		db := setupCheckpoint(ad, ss)
		defer db.Close()
	}

	log.Noticef("Adapted run: %s metric, windows %v, %d burn-in steps, %d draws",
		*metric, ad.Windows(), *burnIn, *draws)
	t0 := time.Now()
	tr, err := ad.Run()
	if err != nil {
		log.Fatal(err)
	}
	elapsed := time.Since(t0)

	if m := ad.MassMatrix(); m != nil {
		e := frobErr(m, cov)
		log.Noticef("Mass-matrix relative error: %.3g", e)
		summary.MassMatrixError = e
	}

	res := summarizeRun("adapted", tr, elapsed)
	summary.Adapted = &res

	if *outF != "" {
		f, err := os.Create(*outF)
		if err != nil {
			log.Error("Error creating trace file:", err)
		} else {
			if err = tr.WriteTSV(f); err != nil {
				log.Error("Error writing trace:", err)
			}
			f.Close()
		}
	}

	printComparison(summary)

	endTime := time.Now()

	deltaT := endTime.Sub(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()

	return
}

// setupCheckpoint wires a bbolt database into the adapter and restores
// the saved state if the file holds an unfinished run with a matching
// seed.
func setupCheckpoint(ad *adapt.Adapter, ss *samplerSettings) *bolt.DB {
	db, err := bolt.Open(*checkpointF, 0600, nil)
	if err != nil {
		log.Fatal("Error opening checkpoint file:", err)
	}
	chkio := checkpoint.NewCheckpointIO(db, checkpoint.MAIN, *checkpointEvery)
	data, err := chkio.GetData()
	if err != nil {
		log.Fatal("Error reading checkpoint:", err)
	}
	switch {
	case data == nil:
	case data.Final:
		log.Warning("Checkpoint holds a finished run, starting over")
	case data.Seed != *seed:
		log.Warningf("Checkpoint seed %v does not match %v, starting over", data.Seed, *seed)
	default:
		if err := ad.Restore(data); err != nil {
			log.Fatal("Error restoring checkpoint:", err)
		}
		ss.skipBuilds(ad.Window())
	}
	ad.SetCheckpointIO(chkio)
	return db
}

// summarizeRun computes convergence diagnostics for one run.
func summarizeRun(name string, tr *trace.Trace, elapsed time.Duration) (s RunSummary) {
	ess := diag.ESSAll(tr)
	rhat := diag.RHatAll(tr)
	minESS := diag.MinESS(ess)
	s = RunSummary{
		Name:           name,
		Time:           elapsed.Seconds(),
		ESS:            ess,
		RHat:           rhat,
		MinESS:         minESS,
		MsPerEffSample: diag.MsPerEffSample(elapsed, minESS),
		MaxRHat:        diag.MaxRHat(rhat),
		AcceptanceRate: tr.AcceptanceRate(),
		Divergences:    tr.Divergences(),
	}
	if *method == "hmc" {
		s.StepSizes = tr.StepSizes()
	}
	log.Noticef("%s: %.1fs, min ESS %.0f, %.3f ms per effective sample, max Rhat %.3f",
		name, s.Time, s.MinESS, s.MsPerEffSample, s.MaxRHat)
	return
}

// printComparison logs the efficiency table of the runs.
func printComparison(s *DemoSummary) {
	log.Notice("run         time_s    min_ess  ms_per_ess  max_rhat  divergent")
	for _, r := range []*RunSummary{s.Baseline, s.Adapted} {
		if r == nil {
			continue
		}
		log.Noticef("%-9s %8.1f %10.0f %11.3f %9.3f %10d",
			r.Name, r.Time, r.MinESS, r.MsPerEffSample, r.MaxRHat, r.Divergences)
	}
	if s.Baseline != nil && s.Adapted != nil && s.Adapted.MsPerEffSample > 0 {
		log.Noticef("Speedup: %.1fx per effective sample",
			s.Baseline.MsPerEffSample/s.Adapted.MsPerEffSample)
	}
}

// frobErr returns the relative Frobenius-norm error of a covariance
// estimate.
func frobErr(est, truth *mat64.SymDense) float64 {
	n := truth.Symmetric()
	var num, den float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := est.At(i, j) - truth.At(i, j)
			num += d * d
			den += truth.At(i, j) * truth.At(i, j)
		}
	}
	return math.Sqrt(num / den)
}

func sdRange(cov *mat64.SymDense) (lo, hi float64) {
	lo = math.Inf(1)
	for i := 0; i < cov.Symmetric(); i++ {
		sd := math.Sqrt(cov.At(i, i))
		if sd < lo {
			lo = sd
		}
		if sd > hi {
			hi = sd
		}
	}
	return lo, hi
}
