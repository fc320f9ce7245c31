package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"bitbucket.org/ginoconcreto/estoque_backend/models"
	"bitbucket.org/ginoconcreto/estoque_backend/utils"
	"github.com/shopspring/decimal"
)

func main() {
	usinaFlag := flag.String("usina", "", "Usina to reset (required).")
	yes := flag.Bool("yes", false, "Actually write. Without this flag the tool only prints what it would do.")
	flag.Parse()

	name := strings.TrimSpace(*usinaFlag)
	if name == "" || !models.ValidUsina(name) {
		fmt.Fprintln(os.Stderr, "pass -usina with a valid usina name")
		os.Exit(1)
	}
	usina := models.Usina(name)

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	items, err := models.ListStockItems(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list stock items: %v\n", err)
		os.Exit(1)
	}

	reset := 0
	for _, item := range items {
		if item.Usina != string(usina) || item.Quantity.IsZero() {
			continue
		}
		if !*yes {
			fmt.Printf("would zero %s / %s (currently %s kg)\n", item.Usina, item.Material, item.Quantity.StringFixed(2))
			reset++
			continue
		}
		if err := models.OverwriteStockItemQty(ctx, item.ID, decimal.Zero); err != nil {
			fmt.Fprintf(os.Stderr, "failed to zero %s / %s: %v\n", item.Usina, item.Material, err)
			os.Exit(1)
		}
		details := fmt.Sprintf("Saldo de %s alterado manualmente para %s", item.Material, utils.FormatKg(decimal.Zero))
		if _, err := models.AppendHistory(ctx, usina, models.ActionReset, details); err != nil {
			fmt.Fprintf(os.Stderr, "row zeroed but history append failed for %s: %v\n", item.Material, err)
			os.Exit(1)
		}
		reset++
	}

	if !*yes {
		fmt.Printf("dry run: %d row(s) would be zeroed for %s (pass -yes to apply)\n", reset, usina)
		return
	}
	if reset > 0 {
		models.InvalidateStateCache()
	}
	fmt.Printf("zeroed %d stock row(s) for %s\n", reset, usina)
}
