package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-cat/internal/bank"
	"github.com/danielpatrickdp/adaptive-cat/internal/config"
	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
)

// #region main

func main() {
	bankPath := flag.String("bank", "", "path to item bank JSON")
	configPath := flag.String("config", "", "optional study YAML to check coverage against")
	theta := flag.Float64("theta", 0.0, "trait level for the information column")
	flag.Parse()

	if *bankPath == "" {
		fmt.Fprintln(os.Stderr, "usage: bankcheck --bank items.json [--config study.yaml] [--theta X]")
		os.Exit(2)
	}

	b, err := bank.LoadFile(*bankPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bank invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d items, %d dimensions\n\n", b.Len(), len(b.Dimensions()))

	for _, dim := range b.Dimensions() {
		pool := b.Pool(dim)
		models := make(map[irt.ModelFamily]int)
		var totalInfo float64
		for _, it := range pool {
			models[it.Model]++
			totalInfo += irt.Information(it, *theta)
		}

		fmt.Printf("%-16s  %3d items  mix:", dim, len(pool))
		for _, fam := range []irt.ModelFamily{irt.OnePL, irt.TwoPL, irt.ThreePL, irt.GRM} {
			if n := models[fam]; n > 0 {
				fmt.Printf(" %s=%d", fam, n)
			}
		}
		fmt.Printf("  pool info at theta=%.1f: %.4f\n", *theta, totalInfo)
	}

	if *configPath != "" {
		study, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
			os.Exit(1)
		}
		if err := b.CheckCoverage(study.DimensionIDs()); err != nil {
			fmt.Fprintf(os.Stderr, "coverage: %v\n", err)
			os.Exit(1)
		}
		for _, dim := range study.Dimensions {
			stop := study.StoppingFor(dim.ID)
			if pool := b.Pool(dim.ID); len(pool) < stop.MaxItems {
				fmt.Printf("\nwarning: dimension %s has %d items, max_items is %d (pool will exhaust first)\n",
					dim.ID, len(pool), stop.MaxItems)
			}
		}
		fmt.Printf("\ncoverage ok for study %q\n", study.Name)
	}
}

// #endregion main
