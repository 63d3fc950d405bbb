package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AA-Fatima/599-cal/internal/ingest"
)

var (
	seedDishesPath    string
	seedSynonymsPath  string
	seedUnitsPath     string
	seedNutritionPath string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reference data (dishes, nutrition, synonyms, unit rates) into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dishesPath := firstNonEmpty(seedDishesPath, cfg.Seed.DishesPath)
		synonymsPath := firstNonEmpty(seedSynonymsPath, cfg.Seed.SynonymsPath)
		unitsPath := firstNonEmpty(seedUnitsPath, cfg.Seed.UnitsPath)
		nutritionPath := firstNonEmpty(seedNutritionPath, cfg.Seed.NutritionPath)

		if dishesPath == "" && synonymsPath == "" && unitsPath == "" && nutritionPath == "" {
			return eris.New("seed: no input files configured")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if dishesPath != "" {
			rows, err := ingest.ReadXLSX(dishesPath, ingest.XLSXOptions{SkipRows: 1})
			if err != nil {
				return err
			}
			dishes, err := ingest.ParseDishRows(rows)
			if err != nil {
				return err
			}
			if err := st.SeedDishes(ctx, dishes); err != nil {
				return err
			}
			zap.L().Info("seeded dishes", zap.Int("count", len(dishes)))
		}

		if nutritionPath != "" {
			records, err := ingest.LoadNutritionRecords(nutritionPath)
			if err != nil {
				return err
			}
			if err := st.SeedNutrition(ctx, records); err != nil {
				return err
			}
			zap.L().Info("seeded nutrition records", zap.Int("count", len(records)))
		}

		if synonymsPath != "" {
			synonyms, err := ingest.LoadSynonyms(synonymsPath)
			if err != nil {
				return err
			}
			if err := st.SeedSynonyms(ctx, synonyms); err != nil {
				return err
			}
			zap.L().Info("seeded synonyms", zap.Int("count", len(synonyms)))
		}

		if unitsPath != "" {
			rates, err := ingest.LoadUnitRates(unitsPath)
			if err != nil {
				return err
			}
			if err := st.SeedUnitRates(ctx, rates); err != nil {
				return err
			}
			zap.L().Info("seeded unit rates", zap.Int("count", len(rates)))
		}

		return nil
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	seedCmd.Flags().StringVar(&seedDishesPath, "dishes", "", "xlsx file of dish recipes")
	seedCmd.Flags().StringVar(&seedSynonymsPath, "synonyms", "", "yaml file of name synonyms")
	seedCmd.Flags().StringVar(&seedUnitsPath, "units", "", "yaml file of unit conversion rates")
	seedCmd.Flags().StringVar(&seedNutritionPath, "nutrition", "", "json file of per-100g nutrition records")
	rootCmd.AddCommand(seedCmd)
}
