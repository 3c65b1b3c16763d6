// traceplot draws per-chain sampling trajectories from a covadapt
// trace file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func main() {
	in := flag.String("in", "", "trace file in TSV format (default stdin)")
	par := flag.String("par", "", "parameter to plot (default the first one, lnp for the log-density)")
	out := flag.String("out", "trace.png", "output file")
	flag.Parse()

	f := os.Stdin
	if *in != "" {
		var err error
		f, err = os.Open(*in)
		if err != nil {
			panic(err)
		}
		defer f.Close()
	}

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		panic("empty trace")
	}
	header := strings.Split(scanner.Text(), "\t")

	col := -1
	switch {
	case *par != "":
		for i := 2; i < len(header); i++ {
			if header[i] == *par {
				col = i
			}
		}
	case len(header) > 3:
		col = 3
	case len(header) > 2:
		col = 2
	}
	if col < 0 {
		panic(fmt.Sprintf("no parameter %q in the trace", *par))
	}

	chains := make(map[int]plotter.XYs)
	var order []int
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != len(header) {
			panic("malformed trace line: " + scanner.Text())
		}
		it, err := strconv.Atoi(fields[0])
		if err != nil {
			panic(err)
		}
		c, err := strconv.Atoi(fields[1])
		if err != nil {
			panic(err)
		}
		v, err := strconv.ParseFloat(fields[col], 64)
		if err != nil {
			panic(err)
		}
		if _, ok := chains[c]; !ok {
			order = append(order, c)
		}
		chains[c] = append(chains[c], plotter.XY{X: float64(it), Y: v})
	}
	if err := scanner.Err(); err != nil {
		panic(err)
	}

	p := plot.New()
	p.Title.Text = header[col]
	p.X.Label.Text = "iteration"

	vs := make([]interface{}, 0, 2*len(order))
	for _, c := range order {
		vs = append(vs, "chain "+strconv.Itoa(c), chains[c])
	}
	if err := plotutil.AddLines(p, vs...); err != nil {
		panic(err)
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, *out); err != nil {
		panic(err)
	}
}
