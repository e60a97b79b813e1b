package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vintagebeauty/storefront-backend/config"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	"github.com/vintagebeauty/storefront-backend/internal/db"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
)

func main() {
	exportPath := flag.String("export", "", "write the catalog to this XLSX file instead of importing")
	assumeYes := flag.Bool("y", false, "import without asking for confirmation")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: import [-y] <products.xlsx>")
		fmt.Fprintln(os.Stderr, "       import -export <out.xlsx>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *exportPath == "" && flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "warn", Format: "console", EnableColor: true})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	productRepo := repository.NewProductRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	productService := service.NewProductService(productRepo, categoryRepo, nil, cfg.Catalog.DefaultBrandName)
	catalog := service.NewCatalogIOService(productService, productRepo, categoryRepo)

	ctx := context.Background()

	if *exportPath != "" {
		out, err := os.Create(*exportPath)
		if err != nil {
			log.Fatal("Failed to create export file:", err)
		}
		defer out.Close()

		if err := catalog.ExportProducts(ctx, out); err != nil {
			log.Fatal("Export failed:", err)
		}
		fmt.Printf("Catalog exported to %s\n", *exportPath)
		return
	}

	filePath := flag.Arg(0)
	if !*assumeYes {
		fmt.Printf("Import products from %s into %s? (yes/no): ", filePath, cfg.Database.DBName)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer file.Close()

	report, err := catalog.ImportProducts(ctx, file)
	if err != nil {
		log.Fatal("Import failed:", err)
	}

	fmt.Printf("\n=== Import Complete ===\n")
	fmt.Printf("Rows:    %d\n", report.Rows)
	fmt.Printf("Created: %d\n", report.Created)
	fmt.Printf("Updated: %d\n", report.Updated)
	fmt.Printf("Failed:  %d\n", report.Failed)
	for _, rowErr := range report.Errors {
		fmt.Printf("  row %d (%s): %s", rowErr.Row, rowErr.Name, rowErr.Error)
		for field, msg := range rowErr.Fields {
			fmt.Printf(" [%s %s]", field, msg)
		}
		fmt.Println()
	}
}
