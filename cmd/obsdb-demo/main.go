// Command obsdb-demo is a thin CLI wrapper around the obsdb library. It
// is not part of the core: it exists only to exercise a query from a
// terminal for manual testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nimbuswx/obsdb"
)

func main() {
	var (
		site      = flag.String("site", "", "reporting site identifier (required)")
		start     = flag.String("start", "", "range start, RFC3339 UTC (required)")
		end       = flag.String("end", "", "range end, RFC3339 UTC (required)")
		mode      = flag.String("mode", "max", "max, min, or precip")
		windowLen = flag.Int("window-length", 24, "window length in hours")
		windowInc = flag.Int("window-increment", 24, "precipitation window step in hours")
		apiKey    = flag.String("api-key", os.Getenv("SYNOPTIC_API_KEY"), "upstream API token")
	)
	flag.Parse()

	if *site == "" || *start == "" || *end == "" {
		flag.Usage()
		os.Exit(2)
	}

	startT, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		log.Fatalf("parsing -start: %v", err)
	}
	endT, err := time.Parse(time.RFC3339, *end)
	if err != nil {
		log.Fatalf("parsing -end: %v", err)
	}

	st, err := obsdb.Connect(*apiKey)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer st.Close()

	rng, err := newRange(startT, endT)
	if err != nil {
		log.Fatalf("invalid range: %v", err)
	}

	ctx := context.Background()

	switch *mode {
	case "max":
		obs, err := st.QueryMaxT(ctx, *site, rng, 0, *windowLen)
		if err != nil {
			log.Fatalf("query: %v", err)
		}
		printTemps(obs)
	case "min":
		obs, err := st.QueryMinT(ctx, *site, rng, 0, *windowLen)
		if err != nil {
			log.Fatalf("query: %v", err)
		}
		printTemps(obs)
	case "precip":
		obs, err := st.QueryPrecipitation(ctx, *site, rng, *windowLen, *windowInc, 0)
		if err != nil {
			log.Fatalf("query: %v", err)
		}
		printPrecip(obs)
	default:
		log.Fatalf("unknown -mode %q (want max, min, or precip)", *mode)
	}
}

func newRange(start, end time.Time) (obsdb.TimeRange, error) {
	if start.After(end) {
		return obsdb.TimeRange{}, fmt.Errorf("start %s is after end %s", start, end)
	}
	return obsdb.TimeRange{Start: start, End: end}, nil
}

func printTemps(obs []obsdb.TemperatureOb) {
	for _, o := range obs {
		fmt.Printf("%s\t%.1f\n", o.ValidTime.UTC().Format(time.RFC3339), o.TemperatureF)
	}
}

func printPrecip(obs []obsdb.PrecipitationOb) {
	for _, o := range obs {
		fmt.Printf("%s\t%.3f\n", o.ValidTime.UTC().Format(time.RFC3339), o.PrecipIn)
	}
}
