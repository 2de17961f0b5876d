package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// seedFile is the YAML document accepted by `patternctl seed`.
type seedFile struct {
	Definitions []seedDefinition `yaml:"definitions"`
}

type seedDefinition struct {
	ID            string              `yaml:"id"`
	Category      string              `yaml:"category"`
	Title         string              `yaml:"title"`
	Problem       string              `yaml:"problem"`
	WhenToUse     string              `yaml:"when_to_use"`
	SystemDefault *seedImplementation `yaml:"system_default"`
}

type seedImplementation struct {
	SASCode        string   `yaml:"sas_code"`
	RCode          string   `yaml:"r_code"`
	Considerations []string `yaml:"considerations"`
	Variations     []string `yaml:"variations"`
}

// seedResult counts what a seed run did.
type seedResult struct {
	Created        int
	Skipped        int
	SystemDefaults int
}

var seedFilePath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create pattern definitions (and their system defaults) from a YAML file",
	Long: `Seed reads a YAML file of definitions and creates each one as the system
administrator. Definitions whose id already exists are skipped. An optional
system_default block is filed under the System author and approved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(seedFilePath)
		if err != nil {
			return fmt.Errorf("opening seed file: %w", err)
		}
		defer f.Close()

		seed, err := parseSeedFile(f)
		if err != nil {
			return err
		}

		a, ctx, cleanup, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := runSeed(ctx, a.Services.Definitions, a.Services.Implementations, seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %d definitions (%d skipped), %d system defaults\n",
			res.Created, res.Skipped, res.SystemDefaults)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFilePath, "file", "", "YAML file of definitions")
	_ = seedCmd.MarkFlagRequired("file")
}

func parseSeedFile(r io.Reader) (*seedFile, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if len(seed.Definitions) == 0 {
		return nil, errors.New("seed file lists no definitions")
	}
	return &seed, nil
}

// runSeed creates every definition in seed as the operator. Existing ids are
// skipped without touching their implementations.
func runSeed(ctx context.Context, defs services.DefinitionService, impls services.ImplementationService, seed *seedFile) (seedResult, error) {
	var res seedResult
	for _, d := range seed.Definitions {
		category, _ := models.ParseCategory(d.Category)
		_, err := defs.Create(ctx, operator, &models.PatternDefinition{
			ID:        d.ID,
			Category:  category,
			Title:     d.Title,
			Problem:   d.Problem,
			WhenToUse: d.WhenToUse,
		})
		if errors.Is(err, apperrors.ErrConflict) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("creating %s: %w", d.ID, err)
		}
		res.Created++

		if d.SystemDefault == nil {
			continue
		}
		impl, err := impls.Create(ctx, operator, services.CreateImplementationInput{
			PatternID:       d.ID,
			SASCode:         d.SystemDefault.SASCode,
			RCode:           d.SystemDefault.RCode,
			Considerations:  d.SystemDefault.Considerations,
			Variations:      d.SystemDefault.Variations,
			AsSystemDefault: true,
		})
		if err != nil {
			return res, fmt.Errorf("creating system default for %s: %w", d.ID, err)
		}
		if _, err := impls.SetStatus(ctx, operator, impl.UUID, models.ImplementationStatusActive); err != nil {
			return res, fmt.Errorf("approving system default for %s: %w", d.ID, err)
		}
		res.SystemDefaults++
	}
	return res, nil
}
