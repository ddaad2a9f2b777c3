package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/bizlens/internal/model"
)

// paramFlags are the request parameters shared by the one-shot commands.
type paramFlags struct {
	district     string
	businessType string
	cuisine      string
	address      string
	name         string
}

func (f *paramFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.district, "district", "", "district or neighborhood (required)")
	cmd.Flags().StringVar(&f.businessType, "type", "", "business type, e.g. restaurant (required)")
	cmd.Flags().StringVar(&f.cuisine, "cuisine", "", "cuisine for restaurants")
	cmd.Flags().StringVar(&f.address, "address", "", "street address")
	cmd.Flags().StringVar(&f.name, "name", "", "name of the business being analyzed")
	_ = cmd.MarkFlagRequired("district")
	_ = cmd.MarkFlagRequired("type")
}

func (f *paramFlags) params() model.Params {
	return model.Params{
		District:     f.district,
		BusinessType: f.businessType,
		CuisineType:  f.cuisine,
		Address:      f.address,
		Name:         f.name,
	}
}

var (
	analyzeFlags     paramFlags
	competitorsFlags paramFlags
	trendsFlags      paramFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full business analysis and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		out := env.Service.AnalyzeBusiness(cmd.Context(), analyzeFlags.params())
		snap := env.Service.Store().Snapshot()
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"provenance": out.Provenance,
			"analysis":   snap.Analysis,
		})
	},
}

var competitorsCmd = &cobra.Command{
	Use:   "competitors",
	Short: "Fetch and merge competitors and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		out := env.Service.FetchCompetitors(cmd.Context(), competitorsFlags.params())
		snap := env.Service.Store().Snapshot()
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"provenance":  out.Provenance,
			"competitors": snap.Competitors,
		})
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Fetch search trends and derived categories and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		out := env.Service.FetchTrends(cmd.Context(), trendsFlags.params())
		snap := env.Service.Store().Snapshot()
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"provenance": out.Provenance,
			"trends":     snap.Trends,
			"categories": snap.Categories,
		})
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeFlags.register(analyzeCmd)
	competitorsFlags.register(competitorsCmd)
	trendsFlags.register(trendsCmd)
	rootCmd.AddCommand(analyzeCmd, competitorsCmd, trendsCmd)
}
