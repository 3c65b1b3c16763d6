/*

Covadapt estimates a dense mass matrix for MCMC samplers using a
schedule of doubling tuning windows and demonstrates the effect on a
correlated Gaussian target.

The basic usage looks like this:

	covadapt

, this will tune a dense metric for HMC on a random 5-dimensional
target and compare it against the unit-metric baseline.

You can change the sampler, the metric and the target dimension:

	covadapt -method walk -metric diag -dim 20

To see all the options run:

	covadapt -h

*/
package main

import (
	"encoding/json"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = "branch: " + gitbranch + ", revision: " + githash + ", build time: " + buildstamp

// Logger settings.
var log = logging.MustGetLogger("covadapt")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("covadapt", "windowed mass-matrix adaptation for MCMC samplers").Version(version)

	// target
	dim = app.Flag("dim", "dimension of the random Gaussian target").Default("5").Int()

	// sampler parameters
	method = app.Flag("method", "sampling method to use "+
		"(hmc: Hamiltonian Monte Carlo, "+
		"walk: random-walk Metropolis-Hastings"+
		")").Default("hmc").Enum("hmc", "walk")
	metric = app.Flag("metric", "mass-matrix form used after adaptation "+
		"(dense: full covariance, "+
		"diag: diagonal of the covariance"+
		")").Default("dense").Enum("dense", "diag")
	chains   = app.Flag("chains", "number of independent chains").Default("4").Int()
	draws    = app.Flag("draws", "number of production draws per chain").Default("5000").Int()
	stepSize = app.Flag("stepsize", "initial leapfrog step size").Default("0.1").Float64()
	pathLen  = app.Flag("pathlen", "leapfrog integration path length").Default("2").Float64()
	accept   = app.Flag("accept", "target acceptance rate for step-size tuning").Default("0.9").Float64()
	mapStart = app.Flag("mapstart", "start chains from the posterior mode found with LBFGS-B; "+
		"by default random starting points are used").Bool()

	// adaptation parameters
	tune   = app.Flag("tune", "total tuning budget per chain, windows plus burn-in").Default("5000").Int()
	burnIn = app.Flag("burnin", "burn-in length of the final run").Default("500").Int()
	window = app.Flag("window", "length of the first tuning window").Default("25").Int()
	regWin = app.Flag("regwindow", "weight of the shrinkage regularization of "+
		"covariance estimates (disabled by default)").Default("0").Int()
	regVar     = app.Flag("regvar", "prior diagonal variance for the regularization").Default("1e-3").Float64()
	noBaseline = app.Flag("nobaseline", "skip the unit-metric baseline run").Bool()

	// checkpoint
	checkpointF     = app.Flag("checkpoint", "use checkpoint file to resume interrupted tuning").String()
	checkpointEvery = app.Flag("chkseconds", "minimum number of seconds between checkpoints").Default("30").Float64()

	// technical
	nThreads   = app.Flag("nt", "number of threads to use").Int()
	seed       = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	outF     = app.Flag("out", "write the production trace to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "covadapt")
	logging.SetLevel(level, "adapt")
	logging.SetLevel(level, "sample")
	logging.SetLevel(level, "checkpoint")

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	runtime.GOMAXPROCS(*nThreads)

	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.\n", effectiveNThreads)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	summary := runDemo()
	summary.NThreads = effectiveNThreads
	summary.Version = version
	summary.CommandLine = os.Args
	summary.Seed = *seed

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
