package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/pattern-catalog/pkg/curation"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// selectionFile is the YAML document accepted by `patternctl export --selection`.
type selectionFile struct {
	Selections map[string]string `yaml:"selections"`
}

var (
	selectionPath string
	exportOutPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an export bundle for a selection (or every system default) to a zip file",
	RunE: func(cmd *cobra.Command, args []string) error {
		var selections curation.Selections
		if selectionPath != "" {
			f, err := os.Open(selectionPath)
			if err != nil {
				return fmt.Errorf("opening selection file: %w", err)
			}
			selections, err = parseSelectionFile(f)
			f.Close()
			if err != nil {
				return err
			}
		}

		a, ctx, cleanup, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		if selections == nil {
			selections, err = systemDefaultSelections(ctx, a.Services.Definitions, a.Services.Implementations)
			if err != nil {
				return err
			}
		}

		bundle, err := a.Services.Export.Export(ctx, operator, selections)
		if err != nil {
			return err
		}

		out, err := os.Create(exportOutPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportOutPath, err)
		}
		if err := bundle.WriteZip(out); err != nil {
			out.Close()
			return fmt.Errorf("writing bundle: %w", err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", exportOutPath, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d patterns to %s\n", len(selections), exportOutPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&selectionPath, "selection", "", "YAML file mapping pattern ids to implementation uuids")
	exportCmd.Flags().StringVar(&exportOutPath, "out", "pattern-catalog-export.zip", "output zip path")
}

func parseSelectionFile(r io.Reader) (curation.Selections, error) {
	var file selectionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing selection file: %w", err)
	}
	if len(file.Selections) == 0 {
		return nil, errors.New("selection file lists no patterns")
	}

	selections := make(curation.Selections, len(file.Selections))
	for patternID, raw := range file.Selections {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("selection %s: %q is not a uuid", patternID, raw)
		}
		selections[strings.ToUpper(strings.TrimSpace(patternID))] = id
	}
	return selections, nil
}

// systemDefaultSelections seeds a fresh curation session from the live catalog,
// which selects the system default of every pattern that has one.
func systemDefaultSelections(ctx context.Context, defs services.DefinitionService, impls services.ImplementationService) (curation.Selections, error) {
	definitions, err := defs.List(ctx, operator, services.DefinitionListFilter{})
	if err != nil {
		return nil, err
	}
	implementations, err := impls.List(ctx, operator, services.ImplementationListFilter{Status: models.ImplementationStatusActive})
	if err != nil {
		return nil, err
	}

	session := curation.NewSession()
	session.Initialize(definitions, implementations)
	if session.Len() == 0 {
		return nil, errors.New("no pattern has an active system default")
	}
	return session.Selections(), nil
}
