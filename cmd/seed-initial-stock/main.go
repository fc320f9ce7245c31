package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"bitbucket.org/ginoconcreto/estoque_backend/models"
	"github.com/shopspring/decimal"
)

// Opening quantities for a freshly provisioned plant, in kg.
var initialQuantities = map[models.Material]decimal.Decimal{
	models.MaterialBrita0:     decimal.NewFromInt(100000),
	models.MaterialBrita1:     decimal.NewFromInt(150000),
	models.MaterialAreiaMedia: decimal.NewFromInt(200000),
	models.MaterialAreiaBrita: decimal.NewFromInt(80000),
	models.MaterialSilo1:      decimal.NewFromInt(40000),
	models.MaterialSilo2:      decimal.NewFromInt(35000),
}

func main() {
	usinaFlag := flag.String("usina", "", "Optional: seed only one usina. If empty, seeds every usina.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	targets := models.Usinas
	if name := strings.TrimSpace(*usinaFlag); name != "" {
		if !models.ValidUsina(name) {
			fmt.Fprintf(os.Stderr, "unknown usina %q\n", name)
			os.Exit(1)
		}
		targets = []models.Usina{models.Usina(name)}
	}

	items, err := models.ListStockItems(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list stock items: %v\n", err)
		os.Exit(1)
	}
	existing := make(map[string]bool, len(items))
	for _, item := range items {
		existing[item.Usina+"|"+item.Material] = true
	}

	seeded := 0
	for _, usina := range targets {
		for _, material := range models.Materials {
			// Idempotent: never duplicate a row the plant already has.
			if existing[string(usina)+"|"+string(material)] {
				continue
			}
			if _, err := models.CreateStockItem(ctx, usina, material, initialQuantities[material]); err != nil {
				fmt.Fprintf(os.Stderr, "failed to seed %s / %s: %v\n", usina, material, err)
				os.Exit(1)
			}
			seeded++
		}
	}

	fmt.Printf("seeded %d stock rows across %d usina(s)\n", seeded, len(targets))
}
